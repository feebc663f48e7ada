package parser

import (
	"testing"

	"github.com/insightdelivered/sheetsift/internal/models"
)

func TestPaysera_Normalize(t *testing.T) {
	headers := []string{payDate, payCounterparty, payCpAccount, payAmount, payPurpose, payMarker}
	tbl := table(headers,
		[]string{"2021-09-10 14:22:00", "Rimas", "EVP1234567890", "200.00 EUR", "Už darbą", "K"},
		[]string{"2021-09-11 07:01:00", "Telia", "LT777777777777777777", "-19,99 EUR", "Ryšys", "D"},
		[]string{"2021-09-12 07:01:00", "?", "", "1 EUR", "", ""},
	)

	batch := normalize(t, models.BankPaysera, tbl)
	if len(batch.Transactions) != 2 {
		t.Fatalf("transactions: got %d, want 2", len(batch.Transactions))
	}
	assertTxn(t, batch.Transactions[1], models.Transaction{
		Account:             models.AccountUnspecified,
		Counterparty:        "Telia",
		CounterpartyAccount: "LT777777777777777777",
		Purpose:             "Ryšys",
		Year:                2021,
		Amount:              dec("19.99"),
		Direction:           models.Debit,
	})
}
