package parser

import (
	"github.com/insightdelivered/sheetsift/internal/extractor"
	"github.com/insightdelivered/sheetsift/internal/models"
)

const (
	sbAccount = "Sąskaitos Nr."
	sbDate    = "Data"
	sbPurpose = "Mokėjimo paskirtis"
	sbDebit   = "Debetas"
	sbCredit  = "Kreditas"
)

// Šiaulių bankas has no counterparty columns, so rows are grouped by
// account and payment purpose.
func newSiauliu() *bankNormalizer {
	return &bankNormalizer{
		bank: models.BankSiauliu,
		name: "Siauliu",
		formats: []Format{{
			ID:       "siauliu",
			Required: []string{sbAccount, sbDate, sbPurpose, sbDebit, sbCredit},
			Layout: models.Layout{
				Keys:         []models.Field{models.FieldAccount, models.FieldPurpose},
				CreditLabels: []string{models.LabelOwnAccount, models.LabelPurpose},
				DebitLabels:  []string{models.LabelOwnAccount, models.LabelPurpose},
				PerAccount:   true,
			},
			mapRow: siauliuRow,
		}},
	}
}

func siauliuRow(r extractor.Row) ([]models.Transaction, error) {
	credit, err := amountOf(r, sbCredit)
	if err != nil {
		return nil, err
	}
	debit, err := amountOf(r, sbDebit)
	if err != nil {
		return nil, err
	}
	return fromColumns(models.Transaction{
		Account: r.Text(sbAccount),
		Purpose: r.Text(sbPurpose),
		Year:    yearOf(r, sbDate, datePermissive),
	}, credit, debit), nil
}
