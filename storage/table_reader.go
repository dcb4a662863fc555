package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"collection-kpi/models"
)

var (
	// ErrEmptyTable is returned for files without a header or without data rows.
	ErrEmptyTable = errors.New("table has no data rows")
	// ErrUnsupportedFormat is returned for extensions other than csv, xlsx and xls.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

const utf8BOM = "\uFEFF"

// ReadTable loads the first sheet of a CSV, XLSX or XLS file as strings.
func ReadTable(path string) (*models.RawTable, error) {
	source := filepath.Base(path)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("reader: open %q: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f, source)

	case ".xlsx", ".xlsm":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("reader: open %q: %w", path, err)
		}
		defer f.Close()
		return ReadXLSX(f, source)

	case ".xls":
		return readXLS(path, source)
	}
	return nil, fmt.Errorf("reader: %w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// ReadCSV parses CSV data. Input that is not valid UTF-8 is decoded as
// Windows-1252, which covers Latin-1 exports.
func ReadCSV(r io.Reader, source string) (*models.RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reader: read %s: %w", source, err)
	}
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("reader: decode %s: %w", source, err)
		}
		data = decoded
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var records [][]string
	var lines []int
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reader: parse %s: %w", source, err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return buildTable(source, records, lines)
}

// ReadXLSX parses the first worksheet of an XLSX workbook. Cell values are
// read raw so dates stay as Excel serial numbers.
func ReadXLSX(r io.Reader, source string) (*models.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("reader: open workbook %s: %w", source, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("reader: %s: %w", source, ErrEmptyTable)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reader: read sheet %q of %s: %w", sheets[0], source, err)
	}
	table, err := buildTable(source, rows, nil)
	if err != nil {
		return nil, err
	}
	table.DateSerials = true
	return table, nil
}

func readXLS(path, source string) (*models.RawTable, error) {
	book, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("reader: open workbook %s: %w", source, err)
	}
	if book.NumSheets() == 0 {
		return nil, fmt.Errorf("reader: %s: %w", source, ErrEmptyTable)
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("reader: %s: %w", source, ErrEmptyTable)
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	table, err := buildTable(source, rows, nil)
	if err != nil {
		return nil, err
	}
	table.DateSerials = true
	return table, nil
}

// buildTable takes the first non-blank record as the header row, drops
// blank rows and pads every data row to the header width. lines gives the
// source line of each record; when nil, record i sits on line i+1.
func buildTable(source string, records [][]string, lines []int) (*models.RawTable, error) {
	start := 0
	for start < len(records) && isBlankRecord(records[start]) {
		start++
	}
	if start >= len(records) {
		return nil, fmt.Errorf("reader: %s: %w", source, ErrEmptyTable)
	}

	headerRow := records[start]
	width := len(headerRow)
	for width > 0 && strings.TrimSpace(headerRow[width-1]) == "" {
		width--
	}
	headers := make([]string, width)
	for i := 0; i < width; i++ {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(headerRow[i], utf8BOM))
	}

	table := &models.RawTable{Source: source, Headers: headers}
	for i := start + 1; i < len(records); i++ {
		rec := records[i]
		if isBlankRecord(rec) {
			continue
		}
		row := make([]string, width)
		copy(row, rec)
		table.Rows = append(table.Rows, row)

		line := i + 1
		if i < len(lines) {
			line = lines[i]
		}
		table.Lines = append(table.Lines, line)
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("reader: %s: %w", source, ErrEmptyTable)
	}
	return table, nil
}

func isBlankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
