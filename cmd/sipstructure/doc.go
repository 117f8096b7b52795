// Command sipstructure restructures flat archival exports into submission
// information packages and verifies every copy against a fingerprint ledger.
//
// Commands:
//
//	run        copy a source folder into a Standard or PAX layout
//	plan       show where every file would go without copying
//	compare    fingerprint two folders against each other
//	ledger     re-check a ledger CSV written by a previous run
//	history    list and inspect archived runs
//	config     create or validate the configuration file
//
// A .env file in the working directory is loaded before configuration so
// SIPSTRUCTURE_* fallbacks can be kept alongside a project.
package main
