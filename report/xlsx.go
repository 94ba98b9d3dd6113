package report

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/zalepa/vacstat/stats"
)

// SheetName is the worksheet holding the statistics table.
const SheetName = "Statistics by year"

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// SaveXLSX writes the statistics table to a workbook at path: one header
// row followed by one row per year, every cell bordered and columns sized to
// their widest value.
func SaveXLSX(path string, s stats.Statistics) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Border:    thinBorder,
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	cellStyle, err := f.NewStyle(&excelize.Style{Border: thinBorder})
	if err != nil {
		return err
	}

	headers := Headers(s.Profession)
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return err
	}

	rows := s.Rows()
	for i, r := range rows {
		values := []any{r.Year, r.Salary, r.ProfessionSalary, r.Count, r.ProfessionCount}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return err
		}
		for j, v := range values {
			widths[j] = max(widths[j], len(fmt.Sprint(v)))
		}
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return err
	}
	if len(rows) > 0 {
		bottom, err := excelize.CoordinatesToCellName(len(headers), len(rows)+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, "A2", bottom, cellStyle); err != nil {
			return err
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, float64(w+2)); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
