package parser

import (
	"github.com/insightdelivered/sheetsift/internal/extractor"
	"github.com/insightdelivered/sheetsift/internal/models"
)

// Luminor splits amounts into debit and credit columns. The counterparty
// header really contains a line break.
const (
	lumDate         = "Operacijos data"
	lumPurpose      = "Mokėjimo paskirtis"
	lumCounterparty = "Mokėtojas /\nGavėjas"
	lumCpAccount    = "Mokėtojo / Gavėjo sąskaitos numeris, paslaugų teikėjo pavadinimas ir kodas"
	lumDebit        = "Suma nac. valiuta (debetas)"
	lumCredit       = "Suma nac. valiuta (kreditas)"
)

func newLuminor() *bankNormalizer {
	return &bankNormalizer{
		bank: models.BankLuminor,
		name: "Luminor",
		formats: []Format{{
			ID:       "luminor",
			Required: []string{lumDate, lumPurpose, lumCounterparty, lumCpAccount, lumDebit, lumCredit},
			Layout:   counterpartyLayout,
			mapRow:   luminorRow,
		}},
	}
}

// Any non-empty amount column counts, including an explicit zero.
func luminorRow(r extractor.Row) ([]models.Transaction, error) {
	base := models.Transaction{
		Counterparty:        r.Text(lumCounterparty),
		CounterpartyAccount: ExtractIBAN(r.Get(lumCpAccount)),
		Purpose:             r.Text(lumPurpose),
		Year:                yearOf(r, lumDate, datePermissive),
	}

	var out []models.Transaction
	for _, side := range []struct {
		col string
		dir models.Direction
	}{
		{lumCredit, models.Credit},
		{lumDebit, models.Debit},
	} {
		if r.IsEmpty(side.col) {
			continue
		}
		amount, err := amountOf(r, side.col)
		if err != nil {
			return nil, err
		}
		out = append(out, withMarker(base, side.dir, amount)...)
	}
	return out, nil
}
