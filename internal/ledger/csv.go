package ledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sipstructure/internal/fileutil"
)

// TimestampLayout is the day-first layout used for ledger timestamps.
const TimestampLayout = "02-01-2006 15:04:05"

const dateLayout = "02-01-2006"

// Header is the ledger CSV column order.
var Header = []string{"RelativeSourcePath", "SourceDigest", "DestinationDigest", "Timestamp", "Status"}

// SafeName reduces a path to its final element with spaces replaced, for use
// inside generated filenames.
func SafeName(path string) string {
	return strings.ReplaceAll(filepath.Base(filepath.Clean(path)), " ", "_")
}

// FileName returns copyLog_{source}_to_{destination}_{dd-mm-yyyy}.csv.
func FileName(source, destination string, day time.Time) string {
	return fmt.Sprintf("copyLog_%s_to_%s_%s.csv", SafeName(source), SafeName(destination), day.Format(dateLayout))
}

// WriteCSV serializes the ledger to path, replacing any previous version.
// Before reconciliation the status column is left blank.
func (l *Ledger) WriteCSV(path string) error {
	var buf bytes.Buffer
	if err := l.Encode(&buf); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write ledger %s: %w", path, err)
	}
	return nil
}

// Encode writes the ledger as CSV with a header row.
func (l *Ledger) Encode(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, e := range l.Entries() {
		timestamp := ""
		if !e.CompletedAt.IsZero() {
			timestamp = e.CompletedAt.Format(TimestampLayout)
		}
		status := ""
		if l.reconciled {
			status = string(e.Status())
		}
		if err := writer.Write([]string{e.RelativePath, e.SourceDigest, e.DestinationDigest, timestamp, status}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV loads ledger rows from path. The Status column is ignored: callers
// reconcile the returned entries to recompute it, after RestoreSkips when the
// run's layout is known.
func ReadCSV(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses ledger CSV content.
func Decode(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("ledger is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range Header {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("ledger header missing column %q", name)
		}
	}
	field := func(record []string, name string) string {
		i := columns[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var entries []Entry
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger line %d: %w", line, err)
		}
		entry := Entry{
			RelativePath:      field(record, "RelativeSourcePath"),
			SourceDigest:      field(record, "SourceDigest"),
			DestinationDigest: field(record, "DestinationDigest"),
		}
		if ts := field(record, "Timestamp"); ts != "" {
			at, err := time.ParseInLocation(TimestampLayout, ts, time.Local)
			if err != nil {
				return nil, fmt.Errorf("ledger line %d: bad timestamp %q: %w", line, ts, err)
			}
			entry.CompletedAt = at
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// RestoreSkips marks entries without a destination digest as skipped when
// skippable reports a reason for their path. The decision comes from the
// caller's routing rules, never from a stored status.
func RestoreSkips(entries []Entry, skippable func(relativePath string) (string, bool)) {
	for i := range entries {
		e := &entries[i]
		if strings.TrimSpace(e.DestinationDigest) != "" {
			continue
		}
		if reason, ok := skippable(e.RelativePath); ok {
			e.Skipped = true
			e.SkipReason = reason
		}
	}
}
