// Package config loads, normalizes, and validates sipstructure configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SIPSTRUCTURE_HASH_ALGORITHM. The Config type centralizes where ledgers,
// logs, locks and run history are kept, and which catalogue, layout and
// digest a run uses when the command line does not say.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and canonical names.
package config
