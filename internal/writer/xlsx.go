package writer

import (
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/sheetsift/internal/models"
)

// XLSXWriter writes a report as a workbook with exactly three sheets:
// income pivot, expense pivot and yearly summary.
type XLSXWriter struct{}

const (
	keyColWidth     = 28
	yearColWidth    = 14
	purposeColWidth = 60
)

// WriteToFile writes the workbook to the given path.
func (w *XLSXWriter) WriteToFile(path string, r *models.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := w.Write(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes the workbook to out.
func (w *XLSXWriter) Write(out io.Writer, r *models.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), models.SheetIncome); err != nil {
		return fmt.Errorf("failed to name income sheet: %w", err)
	}
	for _, name := range []string{models.SheetExpense, models.SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", name, err)
		}
	}

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := writePivot(f, st, models.SheetIncome, r.Credit); err != nil {
		return err
	}
	if err := writePivot(f, st, models.SheetExpense, r.Debit); err != nil {
		return err
	}
	if err := writeSummary(f, st, models.SheetSummary, r.Years, r.Summary); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to encode workbook: %w", err)
	}
	return nil
}

type styles struct {
	header  int
	wrap    int
	numeric int
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error
	if st.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return st, fmt.Errorf("failed to create header style: %w", err)
	}
	if st.wrap, err = f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}}); err != nil {
		return st, fmt.Errorf("failed to create wrap style: %w", err)
	}
	if st.numeric, err = f.NewStyle(&excelize.Style{NumFmt: 4}); err != nil { // #,##0.00
		return st, fmt.Errorf("failed to create number style: %w", err)
	}
	return st, nil
}

func writePivot(f *excelize.File, st styles, sheet string, p models.Pivot) error {
	header := make([]interface{}, 0, len(p.KeyLabels)+len(p.Years)+1)
	for _, l := range p.KeyLabels {
		header = append(header, l)
	}
	for _, y := range p.Years {
		header = append(header, y)
	}
	if p.MergeLabel != "" {
		header = append(header, p.MergeLabel)
	}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}

	for i, row := range p.Rows {
		cells := make([]interface{}, 0, len(header))
		for _, k := range row.Key {
			cells = append(cells, k)
		}
		for _, y := range p.Years {
			cells = append(cells, number(p.Amount(row, y)))
		}
		if p.MergeLabel != "" {
			cells = append(cells, row.Purposes)
		}
		if err := writeRow(f, sheet, i+2, cells); err != nil {
			return err
		}
	}

	keys, years := len(p.KeyLabels), len(p.Years)
	if err := styleColumns(f, sheet, 1, keys, keyColWidth, 0); err != nil {
		return err
	}
	if err := styleColumns(f, sheet, keys+1, keys+years, yearColWidth, st.numeric); err != nil {
		return err
	}
	if p.MergeLabel != "" {
		if err := styleColumns(f, sheet, keys+years+1, keys+years+1, purposeColWidth, st.wrap); err != nil {
			return err
		}
	}
	return boldHeader(f, st, sheet, len(header))
}

func writeSummary(f *excelize.File, st styles, sheet string, years []int, rows []models.SummaryRow) error {
	header := make([]interface{}, 0, len(years)+2)
	header = append(header, "")
	for _, y := range years {
		header = append(header, y)
	}
	header = append(header, models.LabelTotal)
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}

	for i, row := range rows {
		cells := make([]interface{}, 0, len(header))
		cells = append(cells, row.Label)
		for _, a := range row.Amounts {
			cells = append(cells, number(a))
		}
		cells = append(cells, number(row.Total))
		if err := writeRow(f, sheet, i+2, cells); err != nil {
			return err
		}
	}

	if err := styleColumns(f, sheet, 1, 1, keyColWidth+10, st.header); err != nil {
		return err
	}
	if err := styleColumns(f, sheet, 2, len(header), yearColWidth, st.numeric); err != nil {
		return err
	}
	return boldHeader(f, st, sheet, len(header))
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// styleColumns sets width, and a style when non-zero, on columns first..last.
func styleColumns(f *excelize.File, sheet string, first, last int, width float64, style int) error {
	if last < first {
		return nil
	}
	from, err := excelize.ColumnNumberToName(first)
	if err != nil {
		return err
	}
	to, err := excelize.ColumnNumberToName(last)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, from, to, width); err != nil {
		return fmt.Errorf("failed to size %s columns: %w", sheet, err)
	}
	if style != 0 {
		if err := f.SetColStyle(sheet, from+":"+to, style); err != nil {
			return fmt.Errorf("failed to style %s columns: %w", sheet, err)
		}
	}
	return nil
}

func boldHeader(f *excelize.File, st styles, sheet string, cols int) error {
	if cols == 0 {
		return nil
	}
	end, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", end, st.header)
}

func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
