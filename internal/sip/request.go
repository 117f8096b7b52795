package sip

import (
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"sipstructure/internal/apperr"
	"sipstructure/internal/catalogue"
)

// Request is the configuration of one run.
type Request struct {
	Source      string
	Destination string
	Catalogue   catalogue.Catalogue
	Structure   catalogue.Structure
}

// Validate checks the request shape before any filesystem work.
func (r *Request) Validate() error {
	r.Source = cleanPath(r.Source)
	r.Destination = cleanPath(r.Destination)
	err := validation.ValidateStruct(r,
		validation.Field(&r.Source, validation.Required),
		validation.Field(&r.Destination, validation.Required,
			validation.NotIn(r.Source).Error("must differ from the source")),
		validation.Field(&r.Catalogue, validation.Required,
			validation.In(catalogue.TMS, catalogue.Koha, catalogue.Calm).Error("must be TMS, Koha or Calm")),
		validation.Field(&r.Structure, validation.Required,
			validation.In(catalogue.Standard, catalogue.PAX).Error("must be Standard or PAX")),
	)
	if err != nil {
		return apperr.Wrap(apperr.ErrValidation, "request", "validate", "", err)
	}
	return nil
}

func cleanPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
