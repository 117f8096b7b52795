package logs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrRunLogNotFound is returned when no run log matches an id.
var ErrRunLogNotFound = errors.New("run log not found")

// FindRunLog returns {dir}/{id}.log for the run whose id is id or starts with
// it. A prefix matching several runs is an error.
func FindRunLog(dir, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("run id is required")
	}
	exact := filepath.Join(dir, id+".log")
	if info, err := os.Stat(exact); err == nil && !info.IsDir() {
		return exact, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, globEscape(id)+"*.log"))
	if err != nil {
		return "", fmt.Errorf("search run logs: %w", err)
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunLogNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("run id prefix %q matches %d run logs", id, len(matches))
	}
}

func globEscape(value string) string {
	return strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`).Replace(value)
}
