package parser

import (
	"github.com/insightdelivered/sheetsift/internal/extractor"
	"github.com/insightdelivered/sheetsift/internal/models"
)

const (
	revStartedDate  = "Started Date"
	revDescription  = "Description"
	revAmount       = "Amount"
	revBaseAmount   = "Amount (base currency)"
	revType         = "Type"
	revCurrency     = "Currency"
	revCounterparty = "Counterparty Name"
	revCpAccount    = "Counterparty Account Nbr"
)

// The counterparty export is preferred; the plain statement only has a
// description to group by.
func newRevolut() *bankNormalizer {
	return &bankNormalizer{
		bank: models.BankRevolut,
		name: "Revolut",
		formats: []Format{
			{
				ID:       "revolut_counterparty",
				Required: []string{revStartedDate, revDescription, revBaseAmount, revCounterparty, revCpAccount},
				Layout:   counterpartyLayout,
				mapRow:   revolutCounterpartyRow,
			},
			{
				ID:       "revolut",
				Required: []string{revStartedDate, revDescription, revAmount, revType, revCurrency},
				Layout: models.Layout{
					Keys:         []models.Field{models.FieldPurpose},
					CreditLabels: []string{models.LabelPayer},
					DebitLabels:  []string{models.LabelPayee},
				},
				mapRow: revolutRow,
			},
		},
	}
}

func revolutCounterpartyRow(r extractor.Row) ([]models.Transaction, error) {
	amount := amountOrZero(r, revBaseAmount)
	return fromSigned(models.Transaction{
		Counterparty:        r.Text(revCounterparty),
		CounterpartyAccount: r.Text(revCpAccount),
		Purpose:             r.Text(revDescription),
		Year:                yearOf(r, revStartedDate, datePermissive),
	}, amount), nil
}

func revolutRow(r extractor.Row) ([]models.Transaction, error) {
	amount := amountOrZero(r, revAmount)
	return fromSigned(models.Transaction{
		Purpose: r.Text(revDescription),
		Year:    yearOf(r, revStartedDate, datePermissive),
	}, amount), nil
}
