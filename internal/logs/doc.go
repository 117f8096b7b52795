// Package logs reads the application log and per-run JSON logs for the CLI.
//
// Reads are bounded: Last keeps only the requested number of lines in memory
// and Follow polls from a byte offset, so large logs from long runs can be
// viewed without loading them whole. Run logs are named {run-id}.log and can
// be located by a unique id prefix.
package logs
