package parser

import (
	"github.com/insightdelivered/sheetsift/internal/extractor"
	"github.com/insightdelivered/sheetsift/internal/models"
)

// SEB exports. The current layout marks direction with C/D; the older one
// carries a signed amount and hides the counterparty IBAN in the description.
const (
	sebDate         = "DATA"
	sebCounterparty = "MOKĖTOJO ARBA GAVĖJO PAVADINIMAS"
	sebCpAccount    = "SĄSKAITA"
	sebPurpose      = "MOKĖJIMO PASKIRTIS"
	sebAccount      = "SĄSKAITOS NR"
	sebMarker       = "DEBETAS/KREDITAS"
	sebAmount       = "SUMA"

	sebLegacyDate        = "Nurašymo / įskaitymo data"
	sebLegacyDescription = "Operacijos aprašymas"
	sebLegacyAmount      = "Suma sąskaitos valiuta"
)

func newSEB() *bankNormalizer {
	return &bankNormalizer{
		bank: models.BankSEB,
		name: "SEB",
		formats: []Format{
			{
				ID:       "seb",
				Required: []string{sebDate, sebCounterparty, sebCpAccount, sebPurpose, sebAccount, sebMarker, sebAmount},
				Layout:   accountCounterpartyLayout,
				mapRow:   sebRow,
			},
			{
				ID:       "seb_legacy",
				Required: []string{sebLegacyDate, sebLegacyDescription, sebLegacyAmount},
				Layout:   counterpartyAccountLayout,
				mapRow:   sebLegacyRow,
			},
		},
	}
}

func sebRow(r extractor.Row) ([]models.Transaction, error) {
	dir, ok := marker(r.Get(sebMarker), "C", "D")
	if !ok {
		return nil, nil
	}
	amount, err := amountOf(r, sebAmount)
	if err != nil {
		return nil, err
	}
	return withMarker(models.Transaction{
		Account:             r.Text(sebAccount),
		Counterparty:        r.Text(sebCounterparty),
		CounterpartyAccount: r.Text(sebCpAccount),
		Purpose:             r.Text(sebPurpose),
		Year:                yearOf(r, sebDate, datePermissive),
	}, dir, amount), nil
}

func sebLegacyRow(r extractor.Row) ([]models.Transaction, error) {
	amount, err := amountOf(r, sebLegacyAmount)
	if err != nil {
		return nil, err
	}
	desc := r.Text(sebLegacyDescription)
	return fromSigned(models.Transaction{
		CounterpartyAccount: ExtractIBAN(desc),
		Purpose:             desc,
		Year:                yearOf(r, sebLegacyDate, datePermissive),
	}, amount), nil
}
