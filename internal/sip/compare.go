package sip

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"sipstructure/internal/apperr"
	"sipstructure/internal/digest"
	"sipstructure/internal/ledger"
	"sipstructure/internal/logging"
	"sipstructure/internal/preflight"
)

// Comparison statuses.
const (
	StatusDuplicate = "Duplicate - Present in both folders"
	StatusMismatch  = "Hash mismatch"
	uniquePrefix    = "Unique - Only in "
)

// UniqueStatus is the status for a path found only under folder.
func UniqueStatus(folder string) string {
	return uniquePrefix + ledger.SafeName(folder)
}

// ComparisonRow is the verdict for one relative path.
type ComparisonRow struct {
	RelativePath string `json:"relative_path"`
	DigestA      string `json:"digest_a,omitempty"`
	DigestB      string `json:"digest_b,omitempty"`
	Status       string `json:"status"`
}

// Differs reports whether the row is anything other than an identical copy.
func (r ComparisonRow) Differs() bool { return r.Status != StatusDuplicate }

// Comparison fingerprints two trees against each other.
type Comparison struct {
	FolderA   string              `json:"folder_a"`
	FolderB   string              `json:"folder_b"`
	Algorithm digest.Algorithm    `json:"hash_algorithm"`
	HashesA   []ledger.HashRecord `json:"-"`
	HashesB   []ledger.HashRecord `json:"-"`
	Rows      []ComparisonRow     `json:"rows"`
}

// Counts tallies rows by status.
func (c *Comparison) Counts() map[string]int {
	counts := make(map[string]int)
	for _, row := range c.Rows {
		counts[row.Status]++
	}
	return counts
}

// Compare hashes every file under folderA and folderB and classifies each
// relative path. Paths present in both trees with different digests are
// reported as mismatches.
func Compare(ctx context.Context, hasher digest.Hasher, logger *slog.Logger, folderA, folderB string) (*Comparison, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	folderA, folderB = cleanPath(folderA), cleanPath(folderB)
	for _, res := range []preflight.Result{
		preflight.CheckReadableDirectory("First folder", folderA),
		preflight.CheckReadableDirectory("Second folder", folderB),
	} {
		if !res.Passed {
			return nil, apperr.Wrap(apperr.ErrConfiguration, "compare", "check folders", res.Name+": "+res.Detail, nil)
		}
	}
	hashesA, err := hashTree(ctx, hasher, logger, folderA)
	if err != nil {
		return nil, err
	}
	hashesB, err := hashTree(ctx, hasher, logger, folderB)
	if err != nil {
		return nil, err
	}

	c := &Comparison{FolderA: folderA, FolderB: folderB, Algorithm: hasher.Algorithm(), HashesA: hashesA, HashesB: hashesB}
	a := indexHashes(hashesA)
	b := indexHashes(hashesB)
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		da, inA := a[key]
		db, inB := b[key]
		row := ComparisonRow{RelativePath: key, DigestA: da, DigestB: db}
		switch {
		case !inA:
			row.Status = UniqueStatus(folderB)
		case !inB:
			row.Status = UniqueStatus(folderA)
		case !strings.EqualFold(da, db):
			row.Status = StatusMismatch
		default:
			row.Status = StatusDuplicate
		}
		c.Rows = append(c.Rows, row)
	}
	logger.Info("folders compared",
		logging.String(logging.FieldEventType, "compare_complete"),
		logging.String("folder_a", folderA),
		logging.String("folder_b", folderB),
		logging.Int("paths", len(c.Rows)),
	)
	return c, nil
}

func hashTree(ctx context.Context, hasher digest.Hasher, logger *slog.Logger, root string) ([]ledger.HashRecord, error) {
	files, err := Scan(ctx, root)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, "compare", "scan", root, err)
	}
	records := make([]ledger.HashRecord, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sum, err := hasher.HashFile(f.Path())
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrTransient, "compare", "hash", f.RelativePath, err)
		}
		records = append(records, ledger.HashRecord{RelativePath: f.RelativePath, Digest: sum})
	}
	logger.Debug("folder hashed", logging.String("folder", root), logging.Int("files", len(records)))
	return records, nil
}

func indexHashes(records []ledger.HashRecord) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		out[r.RelativePath] = r.Digest
	}
	return out
}

// CompareReport names the files written by WriteComparison.
type CompareReport struct {
	HashLogA string
	HashLogB string
	Report   string
}

// WriteComparison writes the two per-folder hash logs and the comparison
// report into dir, named after the folders and the given day.
func WriteComparison(dir string, c *Comparison, day string) (CompareReport, error) {
	nameA, nameB := ledger.SafeName(c.FolderA), ledger.SafeName(c.FolderB)
	out := CompareReport{
		HashLogA: filepath.Join(dir, fmt.Sprintf("%s_hashes_%s.csv", nameA, day)),
		HashLogB: filepath.Join(dir, fmt.Sprintf("%s_hashes_%s.csv", nameB, day)),
		Report:   filepath.Join(dir, fmt.Sprintf("comparison_report_%s_vs_%s_%s.csv", nameA, nameB, day)),
	}
	column := strings.ToUpper(string(c.Algorithm))
	if err := ledger.WriteHashLog(out.HashLogA, column, c.HashesA); err != nil {
		return out, err
	}
	if err := ledger.WriteHashLog(out.HashLogB, column, c.HashesB); err != nil {
		return out, err
	}
	rows := make([][]string, 0, len(c.Rows))
	for _, r := range c.Rows {
		rows = append(rows, []string{r.RelativePath, r.DigestA, r.DigestB, r.Status})
	}
	if err := ledger.WriteTable(out.Report, []string{"Relative_Path", "Folder1_" + column, "Folder2_" + column, "Status"}, rows); err != nil {
		return out, err
	}
	return out, nil
}
