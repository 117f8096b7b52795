package opex

import (
	"path/filepath"
	"sort"

	"sipstructure/internal/catalogue"
)

// Validator confirms that every reference in a file set has metadata.
type Validator interface {
	// Name identifies the validation policy in logs.
	Name() string
	// Validate returns a *MissingMetadataError listing every uncovered
	// reference, or nil.
	Validate(files []string) error
}

// NewValidator picks the validation policy for a catalogue and layout. Calm
// content has no metadata requirement; TMS multi-asset packages accept ranged
// descriptors; every other combination needs one exact descriptor per
// reference.
func NewValidator(cat catalogue.Catalogue, structure catalogue.Structure, resolver catalogue.Resolver, coverage *Coverage) Validator {
	switch {
	case !cat.RequiresMetadata():
		return noneValidator{}
	case cat == catalogue.TMS && structure == catalogue.PAX:
		return rangedValidator{resolver: resolver, coverage: coverage}
	default:
		return exactValidator{resolver: resolver, coverage: coverage}
	}
}

// RangedDescriptors reports whether the policy for this combination parses
// hyphenated descriptors as spans.
func RangedDescriptors(cat catalogue.Catalogue, structure catalogue.Structure) bool {
	return cat == catalogue.TMS && structure == catalogue.PAX
}

type noneValidator struct{}

func (noneValidator) Name() string { return "none" }

func (noneValidator) Validate([]string) error { return nil }

// exactValidator checks the prefix of every non-descriptor file against an
// exact {prefix}.opex in the source root.
type exactValidator struct {
	resolver catalogue.Resolver
	coverage *Coverage
}

func (exactValidator) Name() string { return "required-exact" }

func (v exactValidator) Validate(files []string) error {
	return collectMissing(files, v.resolver, v.coverage)
}

// rangedValidator checks content files (descriptors excluded) against exact
// or ranged descriptors.
type rangedValidator struct {
	resolver catalogue.Resolver
	coverage *Coverage
}

func (rangedValidator) Name() string { return "required-ranged" }

func (v rangedValidator) Validate(files []string) error {
	return collectMissing(files, v.resolver, v.coverage)
}

func collectMissing(files []string, resolver catalogue.Resolver, coverage *Coverage) error {
	seen := make(map[string]struct{})
	var missing []string
	for _, file := range files {
		name := filepath.Base(file)
		if IsDescriptor(name) {
			continue
		}
		prefix := resolver.Resolve(name).Prefix
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		if !coverage.Covers(prefix) {
			missing = append(missing, prefix)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &MissingMetadataError{Prefixes: missing}
}
