package opex

import (
	"errors"
	"fmt"
	"strings"

	"sipstructure/internal/apperr"
)

// ErrMalformedRange marks ranged descriptor filenames that could not be parsed.
// It is a warning: the descriptor contributes no coverage but the run goes on.
var ErrMalformedRange = errors.New("malformed range descriptor")

// MalformedRangeError describes one unparsable ranged descriptor.
type MalformedRangeError struct {
	Filename string
	Reason   string
}

func (e *MalformedRangeError) Error() string {
	return fmt.Sprintf("could not parse OPEX range file %s: %s", e.Filename, e.Reason)
}

func (e *MalformedRangeError) Unwrap() error { return ErrMalformedRange }

// MissingMetadataError lists every reference that has no covering descriptor.
type MissingMetadataError struct {
	Prefixes []string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("%d reference prefix(es) missing required OPEX files: %s",
		len(e.Prefixes), strings.Join(e.Prefixes, ", "))
}

func (e *MissingMetadataError) Unwrap() error { return apperr.ErrMissingMetadata }
