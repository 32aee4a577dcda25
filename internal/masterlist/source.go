package masterlist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"censys-toolkit/internal/formatter"
	"censys-toolkit/internal/model"
)

var csvHeaders = map[string]bool{
	"domain":    true,
	"domains":   true,
	"name":      true,
	"hostname":  true,
	"subdomain": true,
	"fqdn":      true,
}

// ReadSource reads incoming names for a merge. The format follows the
// extension: .txt, .list or none for one name per line, .json for a collect
// document or name array, .csv for the first column.
func (m *Manager) ReadSource(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case "", ".txt", ".list", ".json", ".csv":
	default:
		return nil, &model.ConfigurationError{Setting: "source", Value: path, Reason: "unsupported extension " + ext}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "read source", Path: path, Err: err}
	}
	defer f.Close()

	var names []string
	switch ext {
	case ".json":
		raw, err := formatter.ReadNames(f)
		if err != nil {
			return nil, &IOError{Op: "read source", Path: path, Err: err}
		}
		names = m.clean(raw, path)
	case ".csv":
		raw, err := readCSVColumn(f)
		if err != nil {
			return nil, &IOError{Op: "read source", Path: path, Err: err}
		}
		names = m.clean(raw, path)
	default:
		names, err = m.readLines(f, path)
		if err != nil {
			return nil, &IOError{Op: "read source", Path: path, Err: err}
		}
	}
	m.logger.Debug("source read", "path", path, "names", len(names))
	return names, nil
}

// readCSVColumn returns the first column. A first row naming the column is
// treated as a header.
func readCSVColumn(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var out []string
	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		cell := strings.TrimSpace(record[0])
		if row == 0 && csvHeaders[strings.ToLower(cell)] {
			continue
		}
		if cell != "" {
			out = append(out, cell)
		}
	}
}
