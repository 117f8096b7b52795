package preflight

import (
	"errors"
	"strings"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Request describes the paths a run will touch.
type Request struct {
	Source      string
	Destination string
	// RequiredBytes is the space the copy needs at the destination. Zero skips
	// the free space check.
	RequiredBytes uint64
}

// RunAll executes every check for a run. Later checks still run when earlier
// ones fail so the caller can report everything at once.
func RunAll(req Request) []Result {
	results := []Result{
		CheckReadableDirectory("Source directory", req.Source),
		CheckDirectoryAccess("Destination directory", req.Destination),
		CheckSeparateTrees(req.Source, req.Destination),
	}
	if req.RequiredBytes > 0 {
		results = append(results, CheckFreeSpace("Destination free space", req.Destination, req.RequiredBytes))
	}
	return results
}

// Err folds failed results into a single error, or nil when all passed.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r.Name+": "+r.Detail)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return errors.New(strings.Join(failed, "; "))
}
