package parser

import (
	"github.com/insightdelivered/sheetsift/internal/extractor"
	"github.com/insightdelivered/sheetsift/internal/models"
)

const (
	swedDate         = "Data"
	swedCounterparty = "Gavėjas / Siuntėjas"
	swedCpAccount    = "Gavėjo / Siuntėjo sąskaitos nr."
	swedAccount      = "Sąskaitos Nr."
	swedDetails      = "Detalės"
	swedType         = "Operacijos tipas"
	swedAmount       = "Suma"
)

func newSwedbank() *bankNormalizer {
	return &bankNormalizer{
		bank: models.BankSwedbank,
		name: "Swedbank",
		formats: []Format{{
			ID:       "swedbank",
			Required: []string{swedDate, swedCounterparty, swedCpAccount, swedAccount, swedDetails, swedType, swedAmount},
			Layout:   accountCounterpartyLayout,
			mapRow:   swedbankRow,
		}},
	}
}

// Operacijos tipas is "įplaukos" for income and "išlaidos" for spending.
func swedbankRow(r extractor.Row) ([]models.Transaction, error) {
	dir, ok := marker(r.Get(swedType), "įplaukos", "išlaidos")
	if !ok {
		return nil, nil
	}
	amount, err := amountOf(r, swedAmount)
	if err != nil {
		return nil, err
	}
	return withMarker(models.Transaction{
		Account:             r.Text(swedAccount),
		Counterparty:        r.Text(swedCounterparty),
		CounterpartyAccount: r.Text(swedCpAccount),
		Purpose:             r.Text(swedDetails),
		Year:                yearOf(r, swedDate, datePermissive),
	}, dir, amount), nil
}
