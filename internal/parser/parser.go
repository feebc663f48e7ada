package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/insightdelivered/sheetsift/internal/extractor"
	"github.com/insightdelivered/sheetsift/internal/models"
)

// Normalizer defines the interface for bank export normalizers.
type Normalizer interface {
	// Bank returns the selector this normalizer is registered under.
	Bank() models.BankType
	// BankName returns the human-readable bank name.
	BankName() string
	// Formats lists the known export variants in detection priority order.
	Formats() []Format
	// Detect picks the first variant whose required columns are all present.
	Detect(headers []string) (Format, error)
	// Normalize maps every row of the table into canonical transactions.
	Normalize(table *extractor.Table, format Format) (*Batch, error)
}

// Format is one export layout a bank has shipped.
type Format struct {
	ID       string
	Required []string // exact header names, all must be present
	Layout   models.Layout

	mapRow rowMapper
}

// rowMapper turns one row into zero, one or two transactions. Returning no
// transactions and no error skips the row.
type rowMapper func(r extractor.Row) ([]models.Transaction, error)

// Batch is the normalized output of one table.
type Batch struct {
	Format       Format
	Transactions []models.Transaction
	Rows         int
	Skipped      int // rows that produced no transaction
}

// Detect returns the first format, in the given order, whose required
// columns are all present in headers.
func Detect(headers []string, formats []Format) (Format, error) {
	set := make(map[string]bool, len(headers))
	for _, h := range headers {
		set[h] = true
	}

	for _, f := range formats {
		if hasAll(set, f.Required) {
			return f, nil
		}
	}
	return Format{}, models.Errorf(models.KindFormatMismatch,
		"headers %s match no known layout", quoteAll(headers))
}

func hasAll(set map[string]bool, cols []string) bool {
	for _, c := range cols {
		if !set[c] {
			return false
		}
	}
	return true
}

func quoteAll(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(q, ", ") + "]"
}

// bankNormalizer is the shared Normalizer: per-bank files only declare
// their formats and row mappers.
type bankNormalizer struct {
	bank    models.BankType
	name    string
	formats []Format
}

func (n *bankNormalizer) Bank() models.BankType { return n.bank }

func (n *bankNormalizer) BankName() string { return n.name }

func (n *bankNormalizer) Formats() []Format {
	out := make([]Format, len(n.formats))
	copy(out, n.formats)
	return out
}

func (n *bankNormalizer) Detect(headers []string) (Format, error) {
	f, err := Detect(headers, n.formats)
	if err != nil {
		return Format{}, fmt.Errorf("%s: %w", n.name, err)
	}
	if err := f.Layout.Validate(); err != nil {
		return Format{}, fmt.Errorf("%s: format %q: %w", n.name, f.ID, err)
	}
	return f, nil
}

func (n *bankNormalizer) Normalize(table *extractor.Table, format Format) (*Batch, error) {
	if format.mapRow == nil {
		return nil, fmt.Errorf("%s: format %q has no row mapping", n.name, format.ID)
	}
	if !table.HasColumns(format.Required...) {
		return nil, models.Errorf(models.KindFormatMismatch,
			"%s: sheet %q lacks the columns of format %q", n.name, table.Sheet, format.ID)
	}

	batch := &Batch{Format: format, Rows: len(table.Rows)}
	for _, row := range table.Rows {
		txns, err := format.mapRow(row)
		if err != nil {
			return nil, &models.Error{
				Kind: models.KindMalformedInput,
				Msg:  fmt.Sprintf("%s row %d", n.name, row.Line),
				Err:  err,
			}
		}
		if len(txns) == 0 {
			batch.Skipped++
			continue
		}
		for i := range txns {
			models.ApplyDefaults(&txns[i])
		}
		batch.Transactions = append(batch.Transactions, txns...)
	}
	return batch, nil
}

var registry = map[models.BankType]Normalizer{
	models.BankSEB:      newSEB(),
	models.BankSwedbank: newSwedbank(),
	models.BankLuminor:  newLuminor(),
	models.BankRevolut:  newRevolut(),
	models.BankSiauliu:  newSiauliu(),
	models.BankPaysera:  newPaysera(),
	models.BankCitadele: newCitadele(),
}

// New returns the normalizer for the given bank type.
func New(bankType models.BankType) (Normalizer, error) {
	n, ok := registry[bankType]
	if !ok {
		return nil, models.Errorf(models.KindUnsupportedBank, "unsupported bank type: %q", bankType)
	}
	return n, nil
}

// Banks returns every registered normalizer ordered by selector.
func Banks() []Normalizer {
	out := make([]Normalizer, 0, len(registry))
	for _, n := range registry {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bank() < out[j].Bank() })
	return out
}

// Shared layouts. Labels follow the output workbook vocabulary.
var (
	// account, counterparty, counterparty account; per-account summary
	accountCounterpartyLayout = models.Layout{
		Keys:         []models.Field{models.FieldAccount, models.FieldCounterparty, models.FieldCounterpartyAccount},
		CreditLabels: []string{models.LabelOwnAccount, models.LabelPayer, models.LabelPayerAccount},
		DebitLabels:  []string{models.LabelOwnAccount, models.LabelPayee, models.LabelPayeeAccount},
		MergePurpose: true,
		PerAccount:   true,
	}

	// counterparty, counterparty account; global summary
	counterpartyLayout = models.Layout{
		Keys:         []models.Field{models.FieldCounterparty, models.FieldCounterpartyAccount},
		CreditLabels: []string{models.LabelPayer, models.LabelPayerAccount},
		DebitLabels:  []string{models.LabelPayee, models.LabelPayeeAccount},
		MergePurpose: true,
	}

	// counterparty account only; global summary
	counterpartyAccountLayout = models.Layout{
		Keys:         []models.Field{models.FieldCounterpartyAccount},
		CreditLabels: []string{models.LabelPayerAccount},
		DebitLabels:  []string{models.LabelPayeeAccount},
		MergePurpose: true,
	}

	// own account, counterparty name; per-account summary
	accountNameLayout = models.Layout{
		Keys:         []models.Field{models.FieldAccount, models.FieldCounterparty},
		CreditLabels: []string{models.LabelOwnAccount, models.LabelPayer},
		DebitLabels:  []string{models.LabelOwnAccount, models.LabelPayee},
		MergePurpose: true,
		PerAccount:   true,
	}
)
