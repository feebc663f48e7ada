package extractor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/sheetsift/internal/models"
)

// Table is the first worksheet of an uploaded export: a header row and the
// data rows beneath it.
type Table struct {
	Sheet    string
	Headers  []string
	Rows     []Row
	Date1904 bool // workbook counts serial dates from 1904-01-01
}

// Row is one data row, addressed by header name.
type Row struct {
	Line     int // 1-based sheet row number
	cells    map[string]string
	date1904 bool
}

// NewRow builds a row from a header→value map. Used by tests and callers
// that already hold tabular data.
func NewRow(line int, cells map[string]string) Row {
	return Row{Line: line, cells: cells}
}

// Date1904 reports whether serial dates in this row use the 1904 system.
func (r Row) Date1904() bool {
	return r.date1904
}

// Get returns the raw cell value for the column, "" when missing.
func (r Row) Get(col string) string {
	return r.cells[col]
}

// Text returns the trimmed cell value.
func (r Row) Text(col string) string {
	return strings.TrimSpace(r.cells[col])
}

// IsEmpty reports whether the cell is null (missing or blank).
func (r Row) IsEmpty(col string) bool {
	return r.Text(col) == ""
}

// HasColumns reports whether every column is present in the header row.
func (t *Table) HasColumns(cols ...string) bool {
	set := t.headerSet()
	for _, c := range cols {
		if !set[c] {
			return false
		}
	}
	return true
}

// UsableColumns counts header cells that carry a real name.
func (t *Table) UsableColumns() int {
	n := 0
	for _, h := range t.Headers {
		if !strings.HasPrefix(h, unnamedPrefix) {
			n++
		}
	}
	return n
}

func (t *Table) headerSet() map[string]bool {
	set := make(map[string]bool, len(t.Headers))
	for _, h := range t.Headers {
		set[h] = true
	}
	return set
}

const unnamedPrefix = "Unnamed: "

// ReadFile opens an .xlsx file from disk and reads its first sheet.
func ReadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return Read(bytes.NewReader(data))
}

// Read parses an .xlsx stream and returns its first sheet as a Table.
// Cells are read raw, so date-typed cells arrive as Excel serial numbers.
// A stream that is not a readable workbook yields a MalformedInput error;
// a workbook without a header row yields EmptyInput.
func Read(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, models.Wrap(models.KindMalformedInput, err, "workbook cannot be opened")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, models.Errorf(models.KindEmptyInput, "workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, models.Wrap(models.KindMalformedInput, err, fmt.Sprintf("sheet %q cannot be read", sheets[0]))
	}

	props, err := f.GetWorkbookProps()
	date1904 := err == nil && props.Date1904 != nil && *props.Date1904

	return buildTable(sheets[0], rows, date1904)
}

func buildTable(sheet string, rows [][]string, date1904 bool) (*Table, error) {
	t := &Table{Sheet: sheet, Date1904: date1904}

	headerIdx := -1
	for i, row := range rows {
		if !blank(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, models.Errorf(models.KindEmptyInput, "sheet %q has no header row", sheet)
	}

	t.Headers = headerNames(rows[headerIdx])

	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if blank(row) {
			continue
		}
		cells := make(map[string]string, len(t.Headers))
		for j, h := range t.Headers {
			if j < len(row) {
				cells[h] = row[j]
			}
		}
		t.Rows = append(t.Rows, Row{Line: i + 1, cells: cells, date1904: date1904})
	}

	return t, nil
}

// headerNames keeps header text byte-for-byte. Blank cells become
// "Unnamed: N" and later duplicates get a ".1", ".2" suffix.
func headerNames(raw []string) []string {
	names := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		if strings.TrimSpace(h) == "" {
			h = unnamedPrefix + strconv.Itoa(i)
		}
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			h = h + "." + strconv.Itoa(n+1)
		} else {
			seen[h] = 0
		}
		names[i] = h
	}
	return names
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
