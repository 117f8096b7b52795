package ledger

import (
	"strings"
	"time"
)

// Status is the reconciliation verdict for one entry.
type Status string

const (
	StatusMissingSource      Status = "Missing source hash"
	StatusMissingDestination Status = "Missing destination hash"
	StatusMismatch           Status = "Hash mismatch"
	StatusMatch              Status = "MATCH"
	// StatusSkipped marks files that were deliberately not transferred.
	StatusSkipped Status = "Skipped"
)

// Entry is the ledger row for one source file.
type Entry struct {
	RelativePath      string
	SourceDigest      string
	DestinationDigest string
	DestinationPath   string
	CompletedAt       time.Time
	Skipped           bool
	SkipReason        string
}

// Status derives the verdict from the digests. A skipped file with no
// destination digest reports Skipped instead of a missing hash.
func (e Entry) Status() Status {
	src := strings.TrimSpace(e.SourceDigest)
	dst := strings.TrimSpace(e.DestinationDigest)
	switch {
	case src == "":
		return StatusMissingSource
	case dst == "" && e.Skipped:
		return StatusSkipped
	case dst == "":
		return StatusMissingDestination
	case !strings.EqualFold(src, dst):
		return StatusMismatch
	default:
		return StatusMatch
	}
}

// Failed reports whether the entry is an integrity failure.
func (e Entry) Failed() bool {
	status := e.Status()
	return status != StatusMatch && status != StatusSkipped
}

// Ledger is the in-memory record of one run, keyed by relative source path
// and kept in insertion order.
type Ledger struct {
	entries    map[string]*Entry
	order      []string
	reconciled bool
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[string]*Entry)}
}

// FromEntries rebuilds a ledger from persisted rows.
func FromEntries(entries []Entry) *Ledger {
	l := New()
	for _, e := range entries {
		entry := l.entry(e.RelativePath)
		*entry = e
	}
	return l
}

func (l *Ledger) entry(rel string) *Entry {
	if e, ok := l.entries[rel]; ok {
		return e
	}
	e := &Entry{RelativePath: rel}
	l.entries[rel] = e
	l.order = append(l.order, rel)
	return e
}

// RecordSource stores the source digest for rel, creating the entry.
func (l *Ledger) RecordSource(rel, digest string) {
	l.entry(rel).SourceDigest = digest
}

// RecordDestination stores the destination fingerprint for rel. An empty
// digest records a failed copy or hash; the entry then reconciles as missing.
func (l *Ledger) RecordDestination(rel, digest, path string, at time.Time) {
	e := l.entry(rel)
	e.DestinationDigest = digest
	e.DestinationPath = path
	e.CompletedAt = at
}

// MarkSkipped flags rel as deliberately not transferred.
func (l *Ledger) MarkSkipped(rel, reason string) {
	e := l.entry(rel)
	e.Skipped = true
	e.SkipReason = reason
}

// Get returns a copy of the entry for rel.
func (l *Ledger) Get(rel string) (Entry, bool) {
	e, ok := l.entries[rel]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns copies of every entry in insertion order.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, 0, len(l.order))
	for _, rel := range l.order {
		out = append(out, *l.entries[rel])
	}
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.order) }
