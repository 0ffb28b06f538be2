package parser

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

type xlsxParser struct{}

func (xlsxParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Parse reads the selected sheet; the first row is the header.
func (xlsxParser) Parse(path string, opt Options) (*Records, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	sheet, err := pickSheet(f, opt)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("xlsx: sheet %q is empty, header row required", sheet.Name)
	}
	rec := &Records{Header: normalizeHeader(rowToStrings(sheet.Rows[0]))}
	for _, row := range sheet.Rows[1:] {
		if opt.MaxRows > 0 && len(rec.Rows) >= opt.MaxRows {
			rec.Truncated = true
			break
		}
		cells := rowToStrings(row)
		if blank(cells) {
			continue
		}
		rec.Rows = append(rec.Rows, cells)
	}
	return rec, nil
}

func pickSheet(f *xlsx.File, opt Options) (*xlsx.Sheet, error) {
	if opt.SheetName != "" {
		for name, sheet := range f.Sheet {
			if strings.EqualFold(name, opt.SheetName) {
				return sheet, nil
			}
		}
		names := make([]string, len(f.Sheets))
		for i, s := range f.Sheets {
			names[i] = s.Name
		}
		return nil, eris.Errorf("xlsx: sheet %q not found (available: %s)", opt.SheetName, strings.Join(names, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", idx, len(f.Sheets))
	}
	return f.Sheets[idx-1], nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cellText(cell)
	}
	return cells
}

// cellText returns the stored number for numeric cells so number formats
// never round or decorate the value. Dates and text keep their rendering.
func cellText(cell *xlsx.Cell) string {
	if cell.Type() == xlsx.CellTypeNumeric && !cell.IsTime() {
		if f, err := cell.Float(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return cell.String()
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
