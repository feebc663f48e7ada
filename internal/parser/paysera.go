package parser

import (
	"github.com/insightdelivered/sheetsift/internal/extractor"
	"github.com/insightdelivered/sheetsift/internal/models"
)

const (
	payDate         = "Data ir laikas"
	payCounterparty = "Gavėjas / Mokėtojas"
	payCpAccount    = "EVP / IBAN"
	payAmount       = "Suma ir valiuta" // e.g. "-12.50 EUR"
	payPurpose      = "Paskirtis"
	payMarker       = "Kreditas / Debetas"
)

func newPaysera() *bankNormalizer {
	return &bankNormalizer{
		bank: models.BankPaysera,
		name: "Paysera",
		formats: []Format{{
			ID:       "paysera",
			Required: []string{payDate, payCounterparty, payCpAccount, payAmount, payPurpose, payMarker},
			Layout:   counterpartyLayout,
			mapRow:   payseraRow,
		}},
	}
}

func payseraRow(r extractor.Row) ([]models.Transaction, error) {
	dir, ok := marker(r.Get(payMarker), "K", "D")
	if !ok {
		return nil, nil
	}
	amount, err := amountOf(r, payAmount)
	if err != nil {
		return nil, err
	}
	return withMarker(models.Transaction{
		Counterparty:        r.Text(payCounterparty),
		CounterpartyAccount: r.Text(payCpAccount),
		Purpose:             r.Text(payPurpose),
		Year:                yearOf(r, payDate, datePermissive),
	}, dir, amount), nil
}
