package parser

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sheetsift/internal/models"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"25.99", "25.99", false},
		{"1,234.56", "1234.56", false},
		{"1.234,56", "1234.56", false},
		{"100,00", "100", false},
		{"1 234,56", "1234.56", false},
		{"1\u00a0234,56", "1234.56", false},
		{"€25.99", "25.99", false},
		{"-12.50 EUR", "-12.5", false},
		{"EUR 7", "7", false},
		{"\u221215", "-15", false},
		{"1.5E-2", "0.015", false},
		{"1,234,567", "1234567", false},
		{"0.00", "0", false},
		{"", "0", false},
		{"-", "0", false},
		{" 25.99 ", "25.99", false},
		{"Nenurodyta", "", true},
		{"12abc", "", true},
		{"1-2", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestParseYear1904Serials(t *testing.T) {
	tests := []struct {
		input    string
		date1904 bool
		expected int
	}{
		{"43000", false, 2017},
		{"43000", true, 2021},
		{"45292", true, 2028},
		// text dates do not depend on the serial system
		{"2024-01-15", true, 2024},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseYear(tt.input, datePermissive, tt.date1904); got != tt.expected {
				t.Errorf("parseYear(%q, 1904=%v): got %d, want %d", tt.input, tt.date1904, got, tt.expected)
			}
		})
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		input    string
		rule     dateRule
		expected int
	}{
		{"2024-01-15", datePermissive, 2024},
		{"2024-01-15 10:22:01", datePermissive, 2024},
		{"2024-01-15T10:22:01Z", datePermissive, 2024},
		{"2023/12/31", datePermissive, 2023},
		{"2023.12.31", datePermissive, 2023},
		{"31.12.2023", datePermissive, 2023},
		{"12/31/2023", datePermissive, 2023},
		{"20240115", datePermissive, 2024},
		{"45292", datePermissive, 2024}, // 2024-01-01
		{"45292.75", datePermissive, 2024},
		{"2022", datePermissive, 2022},
		{"Jan 5, 2021", datePermissive, 2021},
		{"January 5, 2024", datePermissive, 2024},
		{"5 January 2024", datePermissive, 2024},
		{"", datePermissive, 0},
		{"nežinoma", datePermissive, 0},
		{"2024-13-45", datePermissive, 0},
		{"31.02.2023", datePermissive, 0},

		{"20231201", dateCompact, 2023},
		{"2023-12-01", dateCompact, 0},
		{"20231301", dateCompact, 0},

		{"15.03.2022", dateDayFirst, 2022},
		{"15/03/2022", dateDayFirst, 2022},
		{"03/15/2022", dateDayFirst, 0},
		{"2022-03-15", dateDayFirst, 2022},
		{"44635", dateDayFirst, 2022}, // 2022-03-15
		{"xx", dateDayFirst, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseYear(tt.input, tt.rule, false); got != tt.expected {
				t.Errorf("parseYear(%q, %d): got %d, want %d", tt.input, tt.rule, got, tt.expected)
			}
		})
	}
}

func TestExtractIBAN(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"LT123456789012345678 UAB Testas", "LT123456789012345678"},
		{"Pervedimas iš LV123456789012345678, sąskaita", "LV123456789012345678"},
		{"LT12345", models.AccountNotFound},
		{"", models.AccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ExtractIBAN(tt.input); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestMarkerNormalizesUnicode(t *testing.T) {
	// "į" written as "i" + combining ogonek
	decomposed := "i\u0328plaukos"

	dir, ok := marker(" "+decomposed+" ", "įplaukos", "išlaidos")
	if !ok || dir != models.Credit {
		t.Errorf("got (%q, %v), want credit", dir, ok)
	}
	if _, ok := marker("Įplaukos", "įplaukos", "išlaidos"); ok {
		t.Error("marker comparison must stay case-sensitive")
	}
	if _, ok := marker("", "C", "D"); ok {
		t.Error("empty marker must not match")
	}
}

func TestFromColumns(t *testing.T) {
	base := models.Transaction{Account: "LT1"}

	got := fromColumns(base, decimal.NewFromInt(10), decimal.NewFromInt(-4))
	if len(got) != 2 {
		t.Fatalf("transactions: got %d, want 2", len(got))
	}
	if got[0].Direction != models.Credit || !got[0].Amount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("credit: got %+v", got[0])
	}
	if got[1].Direction != models.Debit || !got[1].Amount.Equal(decimal.NewFromInt(4)) {
		t.Errorf("debit: got %+v", got[1])
	}

	if got := fromColumns(base, decimal.Zero, decimal.Zero); len(got) != 0 {
		t.Errorf("zero columns: got %d transactions, want 0", len(got))
	}
	if got := fromColumns(base, decimal.NewFromInt(-3), decimal.Zero); len(got) != 0 {
		t.Errorf("negative credit: got %d transactions, want 0", len(got))
	}
}

func TestFromSigned(t *testing.T) {
	got := fromSigned(models.Transaction{}, decimal.RequireFromString("-42.10"))
	if len(got) != 1 || got[0].Direction != models.Debit || !got[0].Amount.Equal(decimal.RequireFromString("42.1")) {
		t.Errorf("got %+v, want one debit of 42.10", got)
	}
	if got := fromSigned(models.Transaction{}, decimal.Zero); got != nil {
		t.Errorf("zero amount: got %+v, want nil", got)
	}
}
