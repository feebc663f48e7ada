package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/insightdelivered/sheetsift/internal/extractor"
	"github.com/insightdelivered/sheetsift/internal/models"
)

var (
	// leading or trailing ISO currency code, e.g. "-12.50 EUR"
	currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}\s*|\s*[A-Z]{3}$`)
	amountPattern       = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

// parseAmount converts strings like "1 234,56", "-€1,234.56", "12.50 EUR"
// or a raw cell value like "1.5E-2" to a decimal. Empty and "-" are zero.
func parseAmount(s string) (decimal.Decimal, error) {
	orig := s
	s = strings.TrimSpace(s)
	s = currencyCodePattern.ReplaceAllString(s, "")
	s = strings.NewReplacer(
		"€", "",
		"$", "",
		"£", "",
		" ", "",
		"\u00A0", "",
		"\u202F", "",
		"'", "",
		"\u2212", "-",
	).Replace(s)

	if s == "" || s == "-" {
		return decimal.Zero, nil
	}

	s = normalizeSeparators(s)
	if !amountPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("invalid amount %q", orig)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", orig, err)
	}
	return d, nil
}

// normalizeSeparators rewrites thousands and decimal separators to the
// plain "1234.56" form. With both present the last one is the decimal
// mark; a lone comma is a decimal comma; repeated marks are thousands.
func normalizeSeparators(s string) string {
	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")

	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case dot >= 0 && strings.Count(s, ".") > 1 && !strings.ContainsAny(s, "eE"):
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// amountOf parses the named column, naming it in the error.
func amountOf(r extractor.Row, col string) (decimal.Decimal, error) {
	d, err := parseAmount(r.Get(col))
	if err != nil {
		return decimal.Zero, fmt.Errorf("column %q: %w", col, err)
	}
	return d, nil
}

// amountOrZero parses the named column, reading an unparseable cell as
// zero. Formats using it skip such rows instead of failing the run.
func amountOrZero(r extractor.Row, col string) decimal.Decimal {
	d, err := parseAmount(r.Get(col))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// dateRule selects how a date cell is read.
type dateRule int

const (
	// ISO, slash and dot forms in either day/month order, compact
	// YYYYMMDD, Excel serial numbers and bare years
	datePermissive dateRule = iota
	// YYYYMMDD only
	dateCompact
	// day-first text forms and ISO, falling back to Excel serial numbers
	dateDayFirst
)

var (
	dateYearFirst = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})(?:$|[ T])`)
	dateYearLast  = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})(?:$|[ T,])`)
	dateCompact8  = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	dateBareYear  = regexp.MustCompile(`^(\d{4})$`)
	serialNumber  = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// maxExcelSerial is 9999-12-31 in the 1900 date system.
const maxExcelSerial = 2958465

// yearOf parses the named date column of r.
func yearOf(r extractor.Row, col string, rule dateRule) int {
	return parseYear(r.Get(col), rule, r.Date1904())
}

// parseYear extracts the calendar year from a date cell. It returns 0 when
// the cell is empty or does not parse under the rule. Serial numbers count
// from 1904 when date1904 is set.
func parseYear(cell string, rule dateRule, date1904 bool) int {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0
	}

	if m := dateCompact8.FindStringSubmatch(s); m != nil {
		return validYear(m[1], m[2], m[3])
	}
	if rule == dateCompact {
		return 0
	}

	if m := dateYearFirst.FindStringSubmatch(s); m != nil {
		return validYear(m[1], m[2], m[3])
	}
	if m := dateYearLast.FindStringSubmatch(s); m != nil {
		if y := validYear(m[3], m[2], m[1]); y != 0 {
			return y
		}
		if rule == datePermissive {
			return validYear(m[3], m[1], m[2])
		}
		return 0
	}

	if rule == datePermissive {
		if m := dateBareYear.FindStringSubmatch(s); m != nil {
			if y, _ := strconv.Atoi(m[1]); y >= 1900 && y <= 2100 {
				return y
			}
		}
		for _, layout := range []string{time.RFC3339, time.RFC1123, "Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "02 Jan 2006", "2 January 2006"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Year()
			}
		}
	}

	if serialNumber.MatchString(s) {
		return serialYear(s, date1904)
	}
	return 0
}

func validYear(year, month, day string) int {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 || d < 1 {
		return 0
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return 0
	}
	return y
}

func serialYear(s string, date1904 bool) int {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 1 || f > maxExcelSerial {
		return 0
	}
	t, err := excelize.ExcelDateToTime(f, date1904)
	if err != nil {
		return 0
	}
	return t.Year()
}

var ibanPattern = regexp.MustCompile(`[A-Z]{2}\d{18}`)

// ExtractIBAN returns the first IBAN-shaped token in text, or the
// "account not found" sentinel.
func ExtractIBAN(text string) string {
	if m := ibanPattern.FindString(text); m != "" {
		return m
	}
	return models.AccountNotFound
}

// marker compares a direction cell against the credit and debit tokens
// after trimming and NFC normalization.
func marker(cell, credit, debit string) (models.Direction, bool) {
	v := norm.NFC.String(strings.TrimSpace(cell))
	switch v {
	case norm.NFC.String(credit):
		return models.Credit, true
	case norm.NFC.String(debit):
		return models.Debit, true
	}
	return "", false
}

// fromSigned emits one transaction whose direction is the amount's sign.
// Zero amounts emit nothing.
func fromSigned(base models.Transaction, amount decimal.Decimal) []models.Transaction {
	switch amount.Sign() {
	case 1:
		base.Direction = models.Credit
	case -1:
		base.Direction = models.Debit
	default:
		return nil
	}
	base.Amount = amount.Abs()
	return []models.Transaction{base}
}

// fromColumns emits a credit for a positive credit value and a debit for a
// non-zero debit magnitude, so one row can yield both.
func fromColumns(base models.Transaction, credit, debit decimal.Decimal) []models.Transaction {
	var out []models.Transaction
	if credit.IsPositive() {
		t := base
		t.Direction, t.Amount = models.Credit, credit
		out = append(out, t)
	}
	if debit = debit.Abs(); debit.IsPositive() {
		t := base
		t.Direction, t.Amount = models.Debit, debit
		out = append(out, t)
	}
	return out
}

// withMarker emits one transaction in the marked direction. Zero amounts
// are kept.
func withMarker(base models.Transaction, dir models.Direction, amount decimal.Decimal) []models.Transaction {
	base.Direction = dir
	base.Amount = amount.Abs()
	return []models.Transaction{base}
}
