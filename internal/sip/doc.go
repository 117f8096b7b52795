// Package sip restructures a flat export into a submission information
// package and proves the copy with a fingerprint ledger.
//
// A Runner drives one run end to end: it checks the request and the paths,
// takes a per-destination lock, hashes every source file, verifies that the
// catalogue's OPEX descriptors are present, routes and copies each file,
// hashes the copy and reconciles the two digests. Validation happens once up
// front and aborts the run before anything is copied. Per-file copy or hash
// failures never stop the run; they surface as ledger discrepancies.
//
// Plan performs the same resolution and routing without touching the
// destination, and Compare fingerprints two existing trees against each other.
package sip
