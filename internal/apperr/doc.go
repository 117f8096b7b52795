// Package apperr defines the error markers shared by every stage of a
// restructuring run.
//
// Stage code wraps failures with Wrap so that the CLI can classify them with
// errors.Is (configuration vs. missing metadata vs. transient I/O) and pick an
// exit status without parsing messages. Domain packages add typed errors on
// top (for example opex.MissingMetadataError) that also match these markers.
package apperr
