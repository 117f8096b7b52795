package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"sipstructure/internal/fileutil"
)

// HashRecord is one row of a per-folder hash log.
type HashRecord struct {
	RelativePath string
	Digest       string
}

// WriteHashLog writes Relative_Path,{column}_Hash rows to path.
func WriteHashLog(path, column string, records []HashRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.RelativePath, r.Digest})
	}
	return WriteTable(path, []string{"Relative_Path", column + "_Hash"}, rows)
}

// ReadHashLog loads a log written by WriteHashLog.
func ReadHashLog(path string) ([]HashRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hash log: %w", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse hash log %s: %w", path, err)
	}
	var out []HashRecord
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		out = append(out, HashRecord{RelativePath: row[0], Digest: row[1]})
	}
	return out, nil
}

// WriteTable writes a header and rows as CSV to path, creating its folder.
func WriteTable(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}
