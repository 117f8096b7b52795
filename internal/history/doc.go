// Package history archives completed runs in SQLite so past transfers and
// their reconciliation verdicts can be listed after the CSV ledgers have been
// moved or pruned.
package history
