// Package preflight provides readiness checks for the filesystem paths a
// restructuring run depends on.
//
// These checks run in two contexts:
//   - The runner calls RunAll before hashing anything. If any check fails the
//     run stops before it has written to the destination.
//   - The CLI "config validate" command uses the individual checks to report
//     whether the configured state, log and ledger directories are usable.
package preflight
