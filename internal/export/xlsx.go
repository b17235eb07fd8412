package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Timesheets"

// XLSXRenderer writes a spreadsheet with a bold header row and a totals row.
type XLSXRenderer struct{}

func (XLSXRenderer) ID() string { return "xlsx" }
func (XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (XLSXRenderer) Extension() string { return "xlsx" }

func (XLSXRenderer) Render(w io.Writer, data Data) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", xlsxSheet)

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range data.Headers() {
		if err := setCell(f, i+1, 1, header); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(xlsxSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	rows := data.Rows()
	for r, row := range rows {
		for c, value := range row {
			if value == nil {
				continue
			}
			if err := setCell(f, c+1, r+2, value); err != nil {
				return err
			}
		}
	}

	// totals below the records, aligned with the duration and rate columns
	totalRow := len(rows) + 2
	if err := setCell(f, 1, totalRow, "Total"); err != nil {
		return err
	}
	for c, col := range data.Columns {
		var value interface{}
		switch col.Name {
		case "duration":
			value = ColumnConverter{DurationFormat: data.DurationFormat}.duration(data.Summary.Duration)
		case "rate", "internal_rate":
			if len(data.Summary.ByCurrency) == 1 {
				if col.Name == "rate" {
					value = data.Summary.ByCurrency[0].Rate
				} else {
					value = data.Summary.ByCurrency[0].InternalRate
				}
			}
		}
		if value == nil {
			continue
		}
		if err := setCell(f, c+1, totalRow, value); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(xlsxSheet, totalRow, totalRow, bold); err != nil {
		return fmt.Errorf("failed to style totals: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx export: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("invalid cell %d/%d: %w", col, row, err)
	}
	if b, ok := value.(bool); ok {
		value = FormatValue(b)
	}
	if err := f.SetCellValue(xlsxSheet, cell, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", cell, err)
	}
	return nil
}
