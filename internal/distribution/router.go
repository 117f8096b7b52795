package distribution

import (
	"errors"
	"fmt"
	"path/filepath"

	"sipstructure/internal/catalogue"
	"sipstructure/internal/fileutil"
	"sipstructure/internal/opex"
)

// ErrUnroutable marks files whose format maps to no representation.
var ErrUnroutable = errors.New("unroutable format")

// Destination is the resolved output folder for one source file.
type Destination struct {
	Dir            string
	Representation Representation
	Family         Family
	// Skipped is set when the file must not be transferred; Reason says why.
	Skipped bool
	Reason  error
}

// Path returns the destination file path for filename.
func (d Destination) Path(filename string) string {
	return filepath.Join(d.Dir, filepath.Base(filename))
}

// Router maps source files to destination folders for one run.
type Router struct {
	root      string
	catalogue catalogue.Catalogue
	structure catalogue.Structure
	coverage  *opex.Coverage
}

// NewRouter builds a router. coverage may be nil when the catalogue does not
// use ranged descriptors.
func NewRouter(destinationRoot string, cat catalogue.Catalogue, structure catalogue.Structure, coverage *opex.Coverage) *Router {
	return &Router{root: destinationRoot, catalogue: cat, structure: structure, coverage: coverage}
}

// Unroutable returns an ErrUnroutable error when structure cannot place
// filename: only PAX skips, and only non-descriptor files whose format has no
// representation. It returns nil otherwise.
func Unroutable(structure catalogue.Structure, filename string) error {
	if structure != catalogue.PAX || opex.IsDescriptor(filename) {
		return nil
	}
	ext := catalogue.Ext(filename)
	if _, ok := RepresentationFor(ext); ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnroutable, ext)
}

// Route resolves the destination for a file with the given reference.
func (r *Router) Route(filename string, ref catalogue.Reference) Destination {
	if r.structure != catalogue.PAX {
		return Destination{Dir: filepath.Join(r.root, ref.Path())}
	}
	if opex.IsDescriptor(filename) {
		return Destination{Dir: r.itemFolder(ref)}
	}
	if err := Unroutable(r.structure, filename); err != nil {
		return Destination{Skipped: true, Reason: err}
	}
	ext := catalogue.Ext(filename)
	rep, _ := RepresentationFor(ext)
	family := FamilyFor(ext)
	return Destination{
		Dir:            filepath.Join(r.assetFolder(ref), string(rep), string(family)),
		Representation: rep,
		Family:         family,
	}
}

// Prepare creates the destination folder. Several files routinely share a
// folder, so repeated calls succeed.
func (r *Router) Prepare(dest Destination) error {
	if dest.Skipped {
		return nil
	}
	return fileutil.EnsureDir(dest.Dir)
}

// itemFolder is where an item's descriptor sits, beside its package.
func (r *Router) itemFolder(ref catalogue.Reference) string {
	return filepath.Join(r.root, ref.Path())
}

// assetFolder is the package folder that representation buckets hang off.
func (r *Router) assetFolder(ref catalogue.Reference) string {
	switch r.catalogue {
	case catalogue.Calm:
		if ref.Nested() {
			return filepath.Join(r.root, ref.Path())
		}
		return filepath.Join(r.root, ref.Prefix+".pax")
	case catalogue.TMS:
		parent := ref.Prefix
		if group, ok := r.coverage.GroupFor(ref.Prefix); ok {
			parent = group
		}
		return filepath.Join(r.root, parent, ref.Prefix+".pax")
	default:
		return filepath.Join(r.root, ref.Prefix, ref.Prefix+".pax")
	}
}
