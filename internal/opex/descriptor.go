package opex

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Extension is the metadata descriptor file extension, including the dot.
const Extension = ".opex"

// IsDescriptor reports whether name has the descriptor extension (any case).
func IsDescriptor(name string) bool {
	return len(name) > len(Extension) && strings.EqualFold(name[len(name)-len(Extension):], Extension)
}

// Kind distinguishes single-reference descriptors from ranged ones.
type Kind int

const (
	Exact Kind = iota
	Ranged
)

func (k Kind) String() string {
	if k == Ranged {
		return "ranged"
	}
	return "exact"
}

// Descriptor is one OPEX metadata file found in the source root.
type Descriptor struct {
	Filename string
	// Base is the filename without the descriptor extension. For ranged
	// descriptors it doubles as the group label ("PH.681.1-3").
	Base       string
	Kind       Kind
	TextPrefix string
	Start      int
	End        int
}

var rangePattern = regexp.MustCompile(`^(.*?)(\d+)-(\d+)$`)

// ParseDescriptor classifies a descriptor filename. When ranged is false every
// descriptor is exact. When ranged is true, a hyphenated base must have the
// form {textPrefix}{start}-{end} with start <= end, otherwise a
// *MalformedRangeError is returned.
func ParseDescriptor(filename string, ranged bool) (Descriptor, error) {
	base := filename
	if IsDescriptor(filename) {
		base = filename[:len(filename)-len(Extension)]
	}
	d := Descriptor{Filename: filename, Base: base, Kind: Exact}
	if !ranged || !strings.Contains(base, "-") {
		return d, nil
	}
	match := rangePattern.FindStringSubmatch(base)
	if match == nil {
		return d, &MalformedRangeError{Filename: filename, Reason: "expected {prefix}{start}-{end}"}
	}
	start, err := strconv.Atoi(match[2])
	if err != nil {
		return d, &MalformedRangeError{Filename: filename, Reason: fmt.Sprintf("start: %v", err)}
	}
	end, err := strconv.Atoi(match[3])
	if err != nil {
		return d, &MalformedRangeError{Filename: filename, Reason: fmt.Sprintf("end: %v", err)}
	}
	if start > end {
		return d, &MalformedRangeError{Filename: filename, Reason: fmt.Sprintf("start %d is after end %d", start, end)}
	}
	d.Kind = Ranged
	d.TextPrefix = match[1]
	d.Start = start
	d.End = end
	return d, nil
}

// Contains reports whether a ranged descriptor covers ref. References must
// spell the number without leading zeros, as the descriptor's span expands to
// {textPrefix}{i} for each integer i.
func (d Descriptor) Contains(ref string) bool {
	if d.Kind != Ranged || !strings.HasPrefix(ref, d.TextPrefix) {
		return false
	}
	digits := ref[len(d.TextPrefix):]
	n, err := strconv.Atoi(digits)
	if err != nil || strconv.Itoa(n) != digits {
		return false
	}
	return n >= d.Start && n <= d.End
}
