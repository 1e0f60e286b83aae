package fetcher

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Sheet is one worksheet of a workbook with its rows as strings.
type Sheet struct {
	Name string
	Rows [][]string
}

// ReadWorkbook reads every sheet of an XLSX file in workbook order.
func ReadWorkbook(path string) ([]Sheet, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheets := make([]Sheet, 0, len(f.Sheets))
	for _, sh := range f.Sheets {
		s := Sheet{Name: sh.Name}
		for _, row := range sh.Rows {
			if row == nil {
				s.Rows = append(s.Rows, nil)
				continue
			}
			s.Rows = append(s.Rows, rowToStrings(row))
		}
		sheets = append(sheets, s)
	}
	return sheets, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
