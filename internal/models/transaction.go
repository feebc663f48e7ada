package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Direction classifies a transaction as money in or money out.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// Transaction is the canonical, bank-agnostic record every normalizer emits.
type Transaction struct {
	Account             string          `json:"account"`
	Counterparty        string          `json:"counterparty"`
	CounterpartyAccount string          `json:"counterpartyAccount"`
	Purpose             string          `json:"purpose"`
	Year                int             `json:"year,omitempty"` // 0 when the source date did not parse
	Amount              decimal.Decimal `json:"amount"`         // always >= 0, see Direction
	Direction           Direction       `json:"direction"`
}

// HasYear reports whether the transaction carries a parsed year.
func (t Transaction) HasYear() bool {
	return t.Year != 0
}

// Signed returns the amount with credits positive and debits negative.
func (t Transaction) Signed() decimal.Decimal {
	if t.Direction == Debit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Field names one canonical text field; layouts group by fields.
type Field string

const (
	FieldAccount             Field = "account"
	FieldCounterparty        Field = "counterparty"
	FieldCounterpartyAccount Field = "counterparty_account"
	FieldPurpose             Field = "purpose"
)

// Value returns the transaction's value for the field.
func (t Transaction) Value(f Field) string {
	switch f {
	case FieldAccount:
		return t.Account
	case FieldCounterparty:
		return t.Counterparty
	case FieldCounterpartyAccount:
		return t.CounterpartyAccount
	case FieldPurpose:
		return t.Purpose
	}
	return ""
}

// BankType represents supported bank export formats.
type BankType string

const (
	BankSEB      BankType = "seb"
	BankSwedbank BankType = "swedbank"
	BankLuminor  BankType = "luminor"
	BankRevolut  BankType = "revolut"
	BankSiauliu  BankType = "siauliu"
	BankPaysera  BankType = "paysera"
	BankCitadele BankType = "citadele"
)

var bankAliases = map[string]BankType{
	"seb":           BankSEB,
	"swedbank":      BankSwedbank,
	"luminor":       BankLuminor,
	"revolut":       BankRevolut,
	"siauliu":       BankSiauliu,
	"siauliubankas": BankSiauliu,
	"šiaulių":       BankSiauliu,
	"sb":            BankSiauliu,
	"paysera":       BankPaysera,
	"citadele":      BankCitadele,
}

// ParseBankType maps a user-supplied selector to a BankType.
func ParseBankType(s string) (BankType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if b, ok := bankAliases[key]; ok {
		return b, nil
	}
	return "", Errorf(KindUnsupportedBank, "unknown bank %q, supported: %s", s, strings.Join(bankSelectors(), ", "))
}

func bankSelectors() []string {
	seen := make(map[BankType]bool)
	var out []string
	for _, b := range bankAliases {
		if !seen[b] {
			seen[b] = true
			out = append(out, string(b))
		}
	}
	sort.Strings(out)
	return out
}

// Layout describes how one format variant is grouped and labelled.
type Layout struct {
	Keys         []Field
	CreditLabels []string // one per key, income sheet
	DebitLabels  []string // one per key, expense sheet
	MergePurpose bool
	PerAccount   bool
}

// Validate checks that labels line up with keys.
func (l Layout) Validate() error {
	if len(l.Keys) == 0 {
		return fmt.Errorf("layout has no grouping keys")
	}
	if len(l.CreditLabels) != len(l.Keys) || len(l.DebitLabels) != len(l.Keys) {
		return fmt.Errorf("layout has %d keys but %d credit and %d debit labels",
			len(l.Keys), len(l.CreditLabels), len(l.DebitLabels))
	}
	return nil
}

// Pivot is one direction's table: a row per key tuple, a column per year.
type Pivot struct {
	Direction  Direction  `json:"direction"`
	KeyLabels  []string   `json:"keyLabels"`
	MergeLabel string     `json:"mergeLabel,omitempty"` // empty when purposes are not merged
	Years      []int      `json:"years"`
	Rows       []PivotRow `json:"rows"`
}

// PivotRow holds per-year sums for one group key.
type PivotRow struct {
	Key      []string          `json:"key"`
	Amounts  []decimal.Decimal `json:"amounts"` // aligned with Pivot.Years
	Purposes string            `json:"purposes,omitempty"`
}

// Amount returns the row's sum for year, zero when the year is absent.
func (p Pivot) Amount(row PivotRow, year int) decimal.Decimal {
	for i, y := range p.Years {
		if y == year {
			return row.Amounts[i]
		}
	}
	return decimal.Zero
}

// SummaryRow is one gross income or gross expense line of the summary sheet.
type SummaryRow struct {
	Label     string            `json:"label"`
	Account   string            `json:"account,omitempty"`
	Direction Direction         `json:"direction"`
	Amounts   []decimal.Decimal `json:"amounts"`
	Total     decimal.Decimal   `json:"total"`
}

// Report is the full aggregation result handed to the workbook emitter.
type Report struct {
	Bank         BankType     `json:"bank"`
	BankName     string       `json:"bankName"`
	Variant      string       `json:"variant"`
	Years        []int        `json:"years"`
	Credit       Pivot        `json:"credit"`
	Debit        Pivot        `json:"debit"`
	Summary      []SummaryRow `json:"summary"`
	Transactions int          `json:"transactions"`
	Undated      int          `json:"undated"`
}

// Totals returns gross credit and debit over all dated transactions.
func (r *Report) Totals() (credit, debit decimal.Decimal) {
	credit, debit = decimal.Zero, decimal.Zero
	for _, row := range r.Summary {
		switch row.Direction {
		case Credit:
			credit = credit.Add(row.Total)
		case Debit:
			debit = debit.Add(row.Total)
		}
	}
	return credit, debit
}

// Ledger is the flat list of canonical transactions from one export.
type Ledger struct {
	Bank         BankType      `json:"bank"`
	BankName     string        `json:"bankName"`
	Variant      string        `json:"variant"`
	Transactions []Transaction `json:"transactions"`
}
