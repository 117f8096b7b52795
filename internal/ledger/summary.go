package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"sipstructure/internal/fileutil"
)

// Summary is the YAML sidecar written next to the ledger CSV at the end of a
// run.
type Summary struct {
	RunID       string    `yaml:"run_id"`
	Source      string    `yaml:"source"`
	Destination string    `yaml:"destination"`
	Catalogue   string    `yaml:"catalogue"`
	Structure   string    `yaml:"structure"`
	Algorithm   string    `yaml:"hash_algorithm"`
	StartedAt   time.Time `yaml:"started_at"`
	FinishedAt  time.Time `yaml:"finished_at"`
	Ledger      string    `yaml:"ledger_csv"`
	BytesCopied uint64    `yaml:"bytes_copied"`
	Transferred string    `yaml:"transferred"`
	Report      Report    `yaml:"reconciliation"`
}

// SummaryPath returns the sidecar path for a ledger CSV.
func SummaryPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".summary.yaml"
}

// WriteSummary encodes s as YAML at path.
func WriteSummary(path string, s Summary) error {
	if s.Transferred == "" {
		s.Transferred = humanize.Bytes(s.BytesCopied)
	}
	payload, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode run summary: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, payload, 0o644); err != nil {
		return fmt.Errorf("write run summary: %w", err)
	}
	return nil
}

// ReadSummary loads a sidecar written by WriteSummary.
func ReadSummary(path string) (Summary, error) {
	var s Summary
	payload, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read run summary: %w", err)
	}
	if err := yaml.Unmarshal(payload, &s); err != nil {
		return s, fmt.Errorf("decode run summary: %w", err)
	}
	return s, nil
}
