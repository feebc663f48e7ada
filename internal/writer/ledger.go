package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/insightdelivered/sheetsift/internal/models"
)

var ledgerHeader = []string{"Year", "Direction", "Account", "Counterparty", "Counterparty Account", "Purpose", "Amount", "Signed Amount"}

// LedgerWriter writes canonical transactions to CSV format.
type LedgerWriter struct {
	IncludeHeader bool
}

// WriteToFile writes the ledger to a CSV file at the given path.
func (w *LedgerWriter) WriteToFile(path string, l *models.Ledger) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, l)
}

// Write writes the ledger in CSV format to the given writer.
func (w *LedgerWriter) Write(out io.Writer, l *models.Ledger) error {
	writer := csv.NewWriter(out)

	// metadata rows are padded to the header width
	if w.IncludeHeader {
		if l.BankName != "" {
			if err := writer.Write(metaRow("# Bank", l.BankName)); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
		if l.Variant != "" {
			if err := writer.Write(metaRow("# Format", l.Variant)); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	if err := writer.Write(ledgerHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range l.Transactions {
		row := []string{
			formatYear(txn),
			string(txn.Direction),
			txn.Account,
			txn.Counterparty,
			txn.CounterpartyAccount,
			txn.Purpose,
			txn.Amount.StringFixed(2),
			txn.Signed().StringFixed(2),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatYear(txn models.Transaction) string {
	if !txn.HasYear() {
		return ""
	}
	return strconv.Itoa(txn.Year)
}

func metaRow(key, value string) []string {
	row := make([]string, len(ledgerHeader))
	row[0], row[1] = key, value
	return row
}
