package opex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"sipstructure/internal/fileutil"
)

// Coverage is the run-scoped index of descriptors found in a source root.
// It is built once per run and read by both validation and routing.
type Coverage struct {
	descriptors []Descriptor
	exact       map[string]struct{}
	ranges      []Descriptor
	malformed   []*MalformedRangeError
}

// Discover lists descriptor files directly inside sourceRoot. With ranged set,
// hyphenated descriptors are parsed as spans; unparsable ones are recorded as
// malformed and cover nothing.
func Discover(sourceRoot string, ranged bool) (*Coverage, error) {
	entries, err := os.ReadDir(sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("list descriptors in %s: %w", sourceRoot, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsDescriptor(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	return NewCoverage(names, ranged), nil
}

// NewCoverage indexes the given descriptor filenames.
func NewCoverage(filenames []string, ranged bool) *Coverage {
	sorted := append([]string(nil), filenames...)
	sort.Strings(sorted)

	c := &Coverage{exact: make(map[string]struct{}, len(sorted))}
	for _, name := range sorted {
		d, err := ParseDescriptor(name, ranged)
		c.descriptors = append(c.descriptors, d)
		if err != nil {
			var malformed *MalformedRangeError
			if errors.As(err, &malformed) {
				c.malformed = append(c.malformed, malformed)
			}
			continue
		}
		switch d.Kind {
		case Ranged:
			c.ranges = append(c.ranges, d)
		default:
			c.exact[d.Base] = struct{}{}
		}
	}
	return c
}

// Covers reports whether an exact descriptor or any span covers ref.
func (c *Coverage) Covers(ref string) bool {
	if c == nil {
		return false
	}
	if _, ok := c.exact[ref]; ok {
		return true
	}
	for _, d := range c.ranges {
		if d.Contains(ref) {
			return true
		}
	}
	return false
}

// GroupFor returns the label of the span that groups ref. References with their
// own exact descriptor are not grouped. When several spans overlap the first in
// filename order wins.
func (c *Coverage) GroupFor(ref string) (string, bool) {
	if c == nil {
		return "", false
	}
	if _, ok := c.exact[ref]; ok {
		return "", false
	}
	for _, d := range c.ranges {
		if d.Contains(ref) {
			return d.Base, true
		}
	}
	return "", false
}

// Descriptors returns every descriptor found, malformed ones included, in
// filename order.
func (c *Coverage) Descriptors() []Descriptor {
	if c == nil {
		return nil
	}
	return append([]Descriptor(nil), c.descriptors...)
}

// Malformed returns the ranged descriptors that could not be parsed.
func (c *Coverage) Malformed() []*MalformedRangeError {
	if c == nil {
		return nil
	}
	return append([]*MalformedRangeError(nil), c.malformed...)
}

// EnsureDescriptorFolders creates {destinationRoot}/{base} for every
// descriptor. Existing folders are left alone, so the call is safe to repeat.
func (c *Coverage) EnsureDescriptorFolders(destinationRoot string) ([]string, error) {
	if c == nil {
		return nil, nil
	}
	created := make([]string, 0, len(c.descriptors))
	for _, d := range c.descriptors {
		dir := filepath.Join(destinationRoot, d.Base)
		if err := fileutil.EnsureDir(dir); err != nil {
			return created, err
		}
		created = append(created, dir)
	}
	return created, nil
}
