package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"collection-kpi/models"
	"collection-kpi/services"
)

const maxSheetName = 31

// XLSXWriter writes a report as a single workbook, one sheet per table.
type XLSXWriter struct {
	path string
}

func NewXLSXWriter(path string) (*XLSXWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("xlsx: create output dir: %w", err)
	}
	return &XLSXWriter{path: path}, nil
}

// Export writes the report and non-empty check tables to the workbook path.
func (x *XLSXWriter) Export(r *models.Report, checks *models.CheckReport) (string, error) {
	tables := services.ReportTables(r)
	if checks != nil {
		tables = append(tables, services.CheckTables(checks)...)
	}
	if err := WriteWorkbook(x.path, tables); err != nil {
		return "", err
	}
	return x.path, nil
}

// WriteWorkbook saves tables to path with a bold, filled header row on each
// sheet.
func WriteWorkbook(path string, tables []models.Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("xlsx: no tables to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"305496"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("xlsx: header style: %w", err)
	}

	used := make(map[string]bool)
	for i, t := range tables {
		name := sheetName(t.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("xlsx: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("xlsx: new sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, t, headerStyle); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx: save %q: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t models.Table, headerStyle int) error {
	header := t.Columns
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx: write header of %q: %w", sheet, err)
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("xlsx: write row %d of %q: %w", i+2, sheet, err)
		}
	}

	if len(t.Columns) == 0 {
		return nil
	}
	last, err := excelize.ColumnNumberToName(len(t.Columns))
	if err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return fmt.Errorf("xlsx: style header of %q: %w", sheet, err)
	}
	if err := f.SetColWidth(sheet, "A", last, 20); err != nil {
		return fmt.Errorf("xlsx: column width of %q: %w", sheet, err)
	}
	return nil
}

// sheetName trims name to Excel's limit and keeps it unique within the
// workbook.
func sheetName(name string, used map[string]bool) string {
	if name == "" {
		name = "Sheet"
	}
	base := name
	if len(base) > maxSheetName {
		base = base[:maxSheetName]
	}
	candidate := base
	for n := 2; used[candidate]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		cut := base
		if len(cut)+len(suffix) > maxSheetName {
			cut = cut[:maxSheetName-len(suffix)]
		}
		candidate = cut + suffix
	}
	used[candidate] = true
	return candidate
}
