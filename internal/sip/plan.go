package sip

import (
	"context"
	"errors"

	"sipstructure/internal/apperr"
	"sipstructure/internal/catalogue"
	"sipstructure/internal/distribution"
	"sipstructure/internal/opex"
	"sipstructure/internal/preflight"
)

// PlannedFile is the routing decision for one source file.
type PlannedFile struct {
	File        SourceFile
	Reference   catalogue.Reference
	Destination distribution.Destination
	// Target is the destination file path; empty when skipped.
	Target     string
	SkipReason string
	// Conflict names the earlier file that already claims this file's target.
	// A run leaves the target alone and reports the file as a missing
	// destination hash.
	Conflict string
}

// Skipped reports whether the file is excluded from the run.
func (p PlannedFile) Skipped() bool { return p.SkipReason != "" }

// Copied reports whether a run would copy the file.
func (p PlannedFile) Copied() bool { return !p.Skipped() && p.Conflict == "" }

// PlanResult is the outcome of a dry run.
type PlanResult struct {
	Request   Request
	Files     []PlannedFile
	Coverage  *opex.Coverage
	Malformed []*opex.MalformedRangeError
	// MetadataErr is the validation failure a real run would abort with.
	MetadataErr error
	TotalBytes  uint64
}

// Transferable counts the files a run would copy.
func (p *PlanResult) Transferable() int {
	n := 0
	for _, f := range p.Files {
		if f.Copied() {
			n++
		}
	}
	return n
}

// Conflicts returns the files whose target an earlier file already claims.
func (p *PlanResult) Conflicts() []PlannedFile {
	var out []PlannedFile
	for _, f := range p.Files {
		if f.Conflict != "" {
			out = append(out, f)
		}
	}
	return out
}

// MissingPrefixes returns the references a run would reject, or nil.
func (p *PlanResult) MissingPrefixes() []string {
	var missing *opex.MissingMetadataError
	if errors.As(p.MetadataErr, &missing) {
		return missing.Prefixes
	}
	return nil
}

// Plan resolves, validates and routes every source file without touching the
// destination. The destination does not need to exist yet.
func Plan(ctx context.Context, req Request) (*PlanResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if res := preflight.CheckReadableDirectory("Source directory", req.Source); !res.Passed {
		return nil, apperr.Wrap(apperr.ErrConfiguration, "preflight", "check source", res.Detail, nil)
	}
	files, err := Scan(ctx, req.Source)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, StageScan, "walk source", "", err)
	}
	resolver, err := catalogue.NewResolver(req.Catalogue)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrValidation, StageValidate, "resolver", "", err)
	}

	result := &PlanResult{Request: req, TotalBytes: totalSize(files)}
	if req.Catalogue.RequiresMetadata() {
		coverage, err := opex.Discover(req.Source, opex.RangedDescriptors(req.Catalogue, req.Structure))
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrTransient, StageValidate, "discover descriptors", "", err)
		}
		result.Coverage = coverage
		result.Malformed = coverage.Malformed()
	}
	validator := opex.NewValidator(req.Catalogue, req.Structure, resolver, result.Coverage)
	if err := validator.Validate(relativePaths(files)); err != nil {
		result.MetadataErr = apperr.Wrap(apperr.ErrMissingMetadata, StageValidate, validator.Name(), "", err)
	}

	router := distribution.NewRouter(req.Destination, req.Catalogue, req.Structure, result.Coverage)
	claimed := make(map[string]string, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref := resolver.Resolve(f.Name)
		dest := router.Route(f.Name, ref)
		planned := PlannedFile{File: f, Reference: ref, Destination: dest}
		switch {
		case dest.Skipped:
			planned.SkipReason = dest.Reason.Error()
		default:
			target := dest.Path(f.Name)
			if prior, ok := claimed[target]; ok {
				planned.Conflict = prior
				break
			}
			claimed[target] = f.RelativePath
			planned.Target = target
		}
		result.Files = append(result.Files, planned)
	}
	return result, nil
}
