// Package aggregate turns canonical transactions into the income and
// expense pivots and the yearly summary.
package aggregate

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sheetsift/internal/models"
)

// PurposeSeparator joins merged payment purposes within one pivot cell.
const PurposeSeparator = " ||\n"

// Build aggregates txns under layout. Rows, years and summary accounts are
// sorted, so the result does not depend on input order. Undated
// transactions still create their group and contribute purposes but add
// nothing to any year column or total.
func Build(txns []models.Transaction, layout models.Layout) *models.Report {
	years := yearUnion(txns)

	r := &models.Report{
		Years:        years,
		Credit:       pivot(txns, layout, models.Credit, years),
		Debit:        pivot(txns, layout, models.Debit, years),
		Summary:      summary(txns, layout, years),
		Transactions: len(txns),
	}
	for _, t := range txns {
		if !t.HasYear() {
			r.Undated++
		}
	}
	return r
}

// MergePurposes de-duplicates and sorts purposes and joins them with
// PurposeSeparator.
func MergePurposes(purposes []string) string {
	set := make(map[string]struct{}, len(purposes))
	for _, p := range purposes {
		set[p] = struct{}{}
	}
	uniq := make([]string, 0, len(set))
	for p := range set {
		uniq = append(uniq, p)
	}
	sort.Strings(uniq)
	return strings.Join(uniq, PurposeSeparator)
}

func yearUnion(txns []models.Transaction) []int {
	seen := make(map[int]bool)
	years := []int{}
	for _, t := range txns {
		if t.HasYear() && !seen[t.Year] {
			seen[t.Year] = true
			years = append(years, t.Year)
		}
	}
	sort.Ints(years)
	return years
}

type group struct {
	key      []string
	sums     map[int]decimal.Decimal
	purposes []string
}

func pivot(txns []models.Transaction, layout models.Layout, dir models.Direction, years []int) models.Pivot {
	p := models.Pivot{
		Direction: dir,
		KeyLabels: layout.CreditLabels,
		Years:     years,
		Rows:      []models.PivotRow{},
	}
	if dir == models.Debit {
		p.KeyLabels = layout.DebitLabels
	}
	if layout.MergePurpose {
		p.MergeLabel = models.LabelPurpose
	}

	groups := make(map[string]*group)
	for _, t := range txns {
		if t.Direction != dir {
			continue
		}
		key := make([]string, len(layout.Keys))
		for i, f := range layout.Keys {
			key[i] = t.Value(f)
		}
		id := strings.Join(key, "\x00")
		g, ok := groups[id]
		if !ok {
			g = &group{key: key, sums: make(map[int]decimal.Decimal)}
			groups[id] = g
		}
		if t.HasYear() {
			g.sums[t.Year] = g.sums[t.Year].Add(t.Amount)
		}
		g.purposes = append(g.purposes, t.Purpose)
	}

	sorted := make([]*group, 0, len(groups))
	for _, g := range groups {
		sorted = append(sorted, g)
	}
	sort.Slice(sorted, func(i, j int) bool { return lessKey(sorted[i].key, sorted[j].key) })

	for _, g := range sorted {
		row := models.PivotRow{Key: g.key, Amounts: make([]decimal.Decimal, len(years))}
		for i, y := range years {
			row.Amounts[i] = g.sums[y]
		}
		if layout.MergePurpose {
			row.Purposes = MergePurposes(g.purposes)
		}
		p.Rows = append(p.Rows, row)
	}
	return p
}

func lessKey(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func summary(txns []models.Transaction, layout models.Layout, years []int) []models.SummaryRow {
	if !layout.PerAccount {
		return []models.SummaryRow{
			summaryRow(models.LabelGrossIncome, "", models.Credit, txns, years),
			summaryRow(models.LabelGrossExpense, "", models.Debit, txns, years),
		}
	}

	byAccount := make(map[string][]models.Transaction)
	for _, t := range txns {
		byAccount[t.Account] = append(byAccount[t.Account], t)
	}
	accounts := make([]string, 0, len(byAccount))
	for a := range byAccount {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)

	rows := make([]models.SummaryRow, 0, 2*len(accounts))
	for _, a := range accounts {
		rows = append(rows,
			summaryRow(a+" "+models.LabelGrossIncome, a, models.Credit, byAccount[a], years),
			summaryRow(a+" "+models.LabelGrossExpense, a, models.Debit, byAccount[a], years),
		)
	}
	return rows
}

func summaryRow(label, account string, dir models.Direction, txns []models.Transaction, years []int) models.SummaryRow {
	idx := make(map[int]int, len(years))
	for i, y := range years {
		idx[y] = i
	}

	row := models.SummaryRow{
		Label:     label,
		Account:   account,
		Direction: dir,
		Amounts:   make([]decimal.Decimal, len(years)),
		Total:     decimal.Zero,
	}
	for i := range row.Amounts {
		row.Amounts[i] = decimal.Zero
	}
	for _, t := range txns {
		if t.Direction != dir || !t.HasYear() {
			continue
		}
		i := idx[t.Year]
		row.Amounts[i] = row.Amounts[i].Add(t.Amount)
	}
	for _, a := range row.Amounts {
		row.Total = row.Total.Add(a)
	}
	return row
}
