package catalogue

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Reference is the catalogue identifier derived from a filename.
type Reference struct {
	// Prefix is the reference token used for metadata lookup.
	Prefix string
	// Hierarchy is the folder path for the reference, outermost first. It has
	// one element except for nested Calm references.
	Hierarchy []string
}

// Path joins the hierarchy into a relative folder path.
func (r Reference) Path() string {
	if len(r.Hierarchy) == 0 {
		return r.Prefix
	}
	return filepath.Join(r.Hierarchy...)
}

// Nested reports whether the reference spans more than one folder level.
func (r Reference) Nested() bool {
	return len(r.Hierarchy) > 1
}

func flatReference(prefix string) Reference {
	return Reference{Prefix: prefix, Hierarchy: []string{prefix}}
}

// Resolver derives references from filenames for one catalogue.
type Resolver interface {
	Catalogue() Catalogue
	Resolve(filename string) Reference
}

// NewResolver returns the resolver for the given catalogue.
func NewResolver(c Catalogue) (Resolver, error) {
	switch c {
	case TMS:
		return tmsResolver{}, nil
	case Koha:
		return kohaResolver{}, nil
	case Calm:
		return calmResolver{}, nil
	default:
		_, err := ParseCatalogue(string(c))
		return nil, err
	}
}

// Stem returns the filename without directories and without its final
// extension. Names that are nothing but an extension (".DS_Store") are
// returned whole.
func Stem(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return base
	}
	return stem
}

// Ext returns the lowercased extension without its leading dot.
func Ext(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

var tmsPattern = regexp.MustCompile(`^(.*\D)?(\d+)[a-z]?$`)

type tmsResolver struct{}

func (tmsResolver) Catalogue() Catalogue { return TMS }

// Resolve keeps everything up to the trailing digit run and drops a single
// lowercase part letter after it: foo123a.tif -> foo123.
func (tmsResolver) Resolve(filename string) Reference {
	stem := Stem(filename)
	match := tmsPattern.FindStringSubmatch(stem)
	if match == nil {
		return flatReference(stem)
	}
	return flatReference(match[1] + match[2])
}

type kohaResolver struct{}

func (kohaResolver) Catalogue() Catalogue { return Koha }

// Resolve takes the leading record number after dropping a trailing
// lowercase letter: 12345a.tif -> 12345.
func (kohaResolver) Resolve(filename string) Reference {
	name := Stem(filename)
	if n := len(name); n > 0 && name[n-1] >= 'a' && name[n-1] <= 'z' {
		name = name[:n-1]
	}
	i := 0
	for i < len(name) && name[i] >= '0' && name[i] <= '9' {
		i++
	}
	if i == 0 {
		return flatReference(Stem(filename))
	}
	return flatReference(name[:i])
}

// calmMinSegments is the number of hyphen-separated levels at which a Calm
// reference is nested under its parent level.
const calmMinSegments = 4

type calmResolver struct{}

func (calmResolver) Catalogue() Catalogue { return Calm }

// Resolve nests deep references under their parent level:
// CAMB-1-17-2-2.tif -> CAMB-1-17-2/CAMB-1-17-2-2.
func (calmResolver) Resolve(filename string) Reference {
	stem := Stem(filename)
	parts := strings.Split(stem, "-")
	if len(parts) < calmMinSegments {
		return flatReference(stem)
	}
	top := strings.Join(parts[:len(parts)-1], "-")
	return Reference{Prefix: stem, Hierarchy: []string{top, stem}}
}
