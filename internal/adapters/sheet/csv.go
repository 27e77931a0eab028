// Package sheet reads and writes ledger tables as CSV.
package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/vists/internal/domain/model"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadTable parses a CSV stream into a table. A UTF-8 or UTF-16 byte order
// mark is honored and dropped. Short rows are padded to the header width.
func ReadTable(r io.Reader) (model.Table, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	if len(records) == 0 {
		return model.Table{}, nil
	}

	width := len(records[0])
	table := make(model.Table, len(records))
	for i, rec := range records {
		if len(rec) < width {
			rec = append(rec, make([]string, width-len(rec))...)
		}
		table[i] = rec
	}
	return table, nil
}

// ReadFile reads a CSV table from path.
func ReadFile(path string) (model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer func() { _ = f.Close() }()
	return ReadTable(f)
}

// WriteTable writes t as CSV.
func WriteTable(w io.Writer, t model.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// WriteFile replaces path with t. The table is written to a sibling temp
// file first so a failed write leaves the old file intact.
func WriteFile(path string, t model.Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".vists-*.csv")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := WriteTable(tmp, t); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// KeyValues reads a two-column key/value sheet. A header row, if any, becomes
// one more key. Blank keys are skipped and later keys win.
func KeyValues(t model.Table) map[string]string {
	out := make(map[string]string, len(t))
	for _, row := range t {
		if len(row) < 2 {
			continue
		}
		key := strings.TrimSpace(row[0])
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(row[1])
	}
	return out
}
