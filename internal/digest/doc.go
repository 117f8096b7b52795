// Package digest computes content fingerprints for ledger reconciliation.
//
// MD5 is the default because existing transfer logs and downstream ingest
// manifests use it; SHA-256 and BLAKE3 are available when a run needs a
// stronger fingerprint. All algorithms stream files so memory use does not
// depend on file size.
package digest
