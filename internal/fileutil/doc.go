// Package fileutil holds the copy and write primitives used by restructuring
// runs.
package fileutil
