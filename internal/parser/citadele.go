package parser

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sheetsift/internal/extractor"
	"github.com/insightdelivered/sheetsift/internal/models"
)

// Citadele ships three unrelated exports: English by account number,
// English core-banking (OFS.*) by IBAN, and a Lithuanian one.
const (
	citAccount      = "Account Nr"
	citDate         = "Date"
	citCorrespond   = "Correspondent"
	citDetails      = "Details"
	citCredit       = "Credit in transaction currency"
	citDebit        = "Debit in transaction currency"
	citIBAN         = "IBAN"
	citOfsDate      = "OFS.DATE"
	citOfsName      = "OFS.CNP.NAME"
	citOfsNarrative = "OFS.NARRATIVE"
	citOfsAmount    = "OFS.AMOUNT"
	citSign         = "SIGN"
	citLtDate       = "Data"
	citLtPurpose    = "Operacijos numeris ir paskirtis"
	citLtDebit      = "DR"
	citLtCredit     = "CR"
)

func newCitadele() *bankNormalizer {
	return &bankNormalizer{
		bank: models.BankCitadele,
		name: "Citadele",
		formats: []Format{
			{
				ID:       "citadele_account",
				Required: []string{citAccount, citDate, citCorrespond, citDetails, citCredit, citDebit},
				Layout:   accountNameLayout,
				mapRow:   citadeleAccountRow,
			},
			{
				ID:       "citadele_iban",
				Required: []string{citIBAN, citOfsDate, citOfsName, citOfsNarrative, citOfsAmount, citSign},
				Layout:   accountNameLayout,
				mapRow:   citadeleIBANRow,
			},
			{
				ID:       "citadele_lt",
				Required: []string{citLtDate, citLtPurpose, citLtDebit, citLtCredit},
				Layout:   counterpartyAccountLayout,
				mapRow:   citadeleLTRow,
			},
		},
	}
}

func citadeleAccountRow(r extractor.Row) ([]models.Transaction, error) {
	credit, err := amountOf(r, citCredit)
	if err != nil {
		return nil, err
	}
	debit, err := amountOf(r, citDebit)
	if err != nil {
		return nil, err
	}
	return fromColumns(models.Transaction{
		Account:      r.Text(citAccount),
		Counterparty: r.Text(citCorrespond),
		Purpose:      r.Text(citDetails),
		Year:         yearOf(r, citDate, datePermissive),
	}, credit, debit), nil
}

// SIGN is CR or DR; OFS.DATE is YYYYMMDD. A CR row only counts with a
// positive amount.
func citadeleIBANRow(r extractor.Row) ([]models.Transaction, error) {
	dir, ok := marker(r.Get(citSign), "CR", "DR")
	if !ok {
		return nil, nil
	}
	amount, err := amountOf(r, citOfsAmount)
	if err != nil {
		return nil, err
	}
	base := models.Transaction{
		Account:      r.Text(citIBAN),
		Counterparty: r.Text(citOfsName),
		Purpose:      r.Text(citOfsNarrative),
		Year:         yearOf(r, citOfsDate, dateCompact),
	}
	if dir == models.Credit {
		return fromColumns(base, amount, decimal.Zero), nil
	}
	return fromColumns(base, decimal.Zero, amount), nil
}

func citadeleLTRow(r extractor.Row) ([]models.Transaction, error) {
	credit := amountOrZero(r, citLtCredit)
	debit := amountOrZero(r, citLtDebit)
	purpose := r.Text(citLtPurpose)
	return fromColumns(models.Transaction{
		CounterpartyAccount: ExtractIBAN(purpose),
		Purpose:             purpose,
		Year:                yearOf(r, citLtDate, dateDayFirst),
	}, credit, debit), nil
}
