// Package ledger records source and destination fingerprints for every file a
// run touches and reconciles them once copying is done.
//
// A Ledger is held in memory for the duration of a run and serialized to CSV
// twice: once after source hashing, so a crashed run still leaves a record of
// what it meant to copy, and again after reconciliation. Entry status is
// always derived from the two digests and never stored as truth; reading a
// CSV back recomputes it.
package ledger
