package ledger

// Discrepancy is one entry that failed reconciliation.
type Discrepancy struct {
	RelativePath      string `json:"relative_path" yaml:"relative_path"`
	SourceDigest      string `json:"source_digest" yaml:"source_digest"`
	DestinationDigest string `json:"destination_digest" yaml:"destination_digest"`
	Status            Status `json:"status" yaml:"status"`
}

// Report summarizes a reconciliation pass.
type Report struct {
	Total         int           `json:"total" yaml:"total"`
	Matched       int           `json:"matched" yaml:"matched"`
	Skipped       int           `json:"skipped" yaml:"skipped"`
	Discrepancies []Discrepancy `json:"discrepancies" yaml:"discrepancies,omitempty"`
}

// OK reports whether every transferred file matched.
func (r Report) OK() bool { return len(r.Discrepancies) == 0 }

// Reconcile derives a status for every entry and marks the ledger as
// reconciled, so subsequent CSV writes include the status column. It never
// re-copies or re-hashes anything.
func (l *Ledger) Reconcile() Report {
	l.reconciled = true
	return Reconcile(l.Entries())
}

// Reconciled reports whether Reconcile has run.
func (l *Ledger) Reconciled() bool { return l.reconciled }

// Reconcile builds a report for entries in the given order.
func Reconcile(entries []Entry) Report {
	report := Report{Total: len(entries), Discrepancies: []Discrepancy{}}
	for _, e := range entries {
		switch status := e.Status(); status {
		case StatusMatch:
			report.Matched++
		case StatusSkipped:
			report.Skipped++
		default:
			report.Discrepancies = append(report.Discrepancies, Discrepancy{
				RelativePath:      e.RelativePath,
				SourceDigest:      e.SourceDigest,
				DestinationDigest: e.DestinationDigest,
				Status:            status,
			})
		}
	}
	return report
}
