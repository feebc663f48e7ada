package parser

import (
	"testing"

	"github.com/insightdelivered/sheetsift/internal/models"
)

func TestSEB_Normalize(t *testing.T) {
	tbl := table(
		[]string{sebDate, sebCounterparty, sebCpAccount, sebPurpose, sebAccount, sebMarker, sebAmount},
		[]string{"2024-01-15", "UAB Darbdavys", "LT700000000000000001", "Alga", "LT100000000000000001", "C", "1500"},
		[]string{"2024-02-03", "Maxima", "", "Pirkiniai", "LT100000000000000001", "D", "23.40"},
		[]string{"2024-02-04", "Kažkas", "", "", "LT100000000000000001", "X", "1"},
		[]string{"blogai", "", "", "", "", " C ", "0"},
	)

	batch := normalize(t, models.BankSEB, tbl)
	if batch.Format.ID != "seb" {
		t.Errorf("format: got %q, want %q", batch.Format.ID, "seb")
	}
	if len(batch.Transactions) != 3 {
		t.Fatalf("transactions: got %d, want 3", len(batch.Transactions))
	}
	if batch.Skipped != 1 {
		t.Errorf("skipped: got %d, want 1", batch.Skipped)
	}

	assertTxn(t, batch.Transactions[0], models.Transaction{
		Account:             "LT100000000000000001",
		Counterparty:        "UAB Darbdavys",
		CounterpartyAccount: "LT700000000000000001",
		Purpose:             "Alga",
		Year:                2024,
		Amount:              dec("1500"),
		Direction:           models.Credit,
	})
	assertTxn(t, batch.Transactions[1], models.Transaction{
		Account:             "LT100000000000000001",
		Counterparty:        "Maxima",
		CounterpartyAccount: models.AccountUnspecified,
		Purpose:             "Pirkiniai",
		Year:                2024,
		Amount:              dec("23.4"),
		Direction:           models.Debit,
	})
	// zero amount under a marker format is kept; bad date gives year 0
	assertTxn(t, batch.Transactions[2], models.Transaction{
		Account:             models.AccountUnspecified,
		Counterparty:        models.NameUnspecified,
		CounterpartyAccount: models.AccountUnspecified,
		Purpose:             models.PurposeUnspecified,
		Year:                0,
		Amount:              dec("0"),
		Direction:           models.Credit,
	})
}

func TestSEB_Legacy(t *testing.T) {
	tbl := table(
		[]string{sebLegacyDate, sebLegacyDescription, sebLegacyAmount},
		[]string{"2024-01-01", "Mokėtojas: Jonas LT111111111111111111", "100,00"},
		[]string{"2023-06-30", "Kortelė", "-12,5"},
		[]string{"2023-06-30", "Nulis", "0"},
	)

	batch := normalize(t, models.BankSEB, tbl)
	if batch.Format.ID != "seb_legacy" {
		t.Fatalf("format: got %q, want %q", batch.Format.ID, "seb_legacy")
	}
	if batch.Format.Layout.PerAccount {
		t.Error("legacy layout must use a global summary")
	}
	if len(batch.Transactions) != 2 {
		t.Fatalf("transactions: got %d, want 2", len(batch.Transactions))
	}

	assertTxn(t, batch.Transactions[0], models.Transaction{
		Account:             models.AccountUnspecified,
		Counterparty:        models.NameUnspecified,
		CounterpartyAccount: "LT111111111111111111",
		Purpose:             "Mokėtojas: Jonas LT111111111111111111",
		Year:                2024,
		Amount:              dec("100"),
		Direction:           models.Credit,
	})
	assertTxn(t, batch.Transactions[1], models.Transaction{
		Account:             models.AccountUnspecified,
		Counterparty:        models.NameUnspecified,
		CounterpartyAccount: models.AccountNotFound,
		Purpose:             "Kortelė",
		Year:                2023,
		Amount:              dec("12.5"),
		Direction:           models.Debit,
	})
}
