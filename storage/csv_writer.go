package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"collection-kpi/models"
	"collection-kpi/services"
)

// CSVWriter writes report tables as one CSV file per table into a directory.
// It is safe for concurrent use.
type CSVWriter struct {
	mu  sync.Mutex
	dir string
}

// NewCSVWriter creates the output directory if needed.
func NewCSVWriter(dir string) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVWriter{dir: dir}, nil
}

// Export writes every report table and every non-empty check table. It
// returns the output directory.
func (c *CSVWriter) Export(r *models.Report, checks *models.CheckReport) (string, error) {
	tables := services.ReportTables(r)
	if checks != nil {
		for _, t := range services.CheckTables(checks) {
			t.Name = "check_" + t.Name
			tables = append(tables, t)
		}
	}
	if _, err := c.WriteTables(tables); err != nil {
		return "", err
	}
	return c.dir, nil
}

// WriteTables writes each table to <dir>/<name>.csv, truncating existing
// files, and returns the paths written.
func (c *CSVWriter) WriteTables(tables []models.Table) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		path := filepath.Join(c.dir, t.Name+".csv")
		if err := writeTableFile(path, t); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeTableFile(path string, t models.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	if err := WriteCSV(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteCSV writes t's header row followed by its rows.
func WriteCSV(w io.Writer, t models.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteItems writes the canonical rendering of ds. Reading the output back
// through the cleaner reproduces ds.
func WriteItems(w io.Writer, ds *models.Dataset) error {
	raw := services.CanonicalTable(ds)
	return WriteCSV(w, models.Table{Name: "items", Columns: raw.Headers, Rows: raw.Rows})
}
