package catalogue

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Catalogue identifies the cataloguing system the content was described in.
type Catalogue string

const (
	TMS  Catalogue = "TMS"
	Koha Catalogue = "Koha"
	Calm Catalogue = "Calm"
)

// Structure identifies the submission package layout to produce.
type Structure string

const (
	Standard Structure = "Standard"
	PAX      Structure = "PAX"
)

// Catalogues lists every supported catalogue in display order.
var Catalogues = []Catalogue{TMS, Koha, Calm}

// Structures lists every supported layout in display order.
var Structures = []Structure{Standard, PAX}

var fold = cases.Fold()

// ParseCatalogue resolves a user supplied catalogue name, ignoring case.
func ParseCatalogue(value string) (Catalogue, error) {
	folded := fold.String(strings.TrimSpace(value))
	for _, c := range Catalogues {
		if fold.String(string(c)) == folded {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown catalogue %q (want TMS, Koha or Calm)", value)
}

// ParseStructure resolves a user supplied layout name, ignoring case.
func ParseStructure(value string) (Structure, error) {
	folded := fold.String(strings.TrimSpace(value))
	for _, s := range Structures {
		if fold.String(string(s)) == folded {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown structure %q (want Standard or PAX)", value)
}

// RequiresMetadata reports whether content from this catalogue must be backed
// by OPEX descriptors before it can be transferred.
func (c Catalogue) RequiresMetadata() bool {
	return c == TMS || c == Koha
}

func (c Catalogue) String() string { return string(c) }

func (s Structure) String() string { return string(s) }
