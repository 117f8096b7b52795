package apperr_test

import (
	"errors"
	"strings"
	"testing"

	"sipstructure/internal/apperr"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := apperr.Wrap(apperr.ErrTransient, "transfer", "copy", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, apperr.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transfer", "copy", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := apperr.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, apperr.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "run failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, apperr.ExitOK},
		{"missing metadata", apperr.Wrap(apperr.ErrMissingMetadata, "validate", "opex", "missing", nil), apperr.ExitMissingMetadata},
		{"validation", apperr.Wrap(apperr.ErrValidation, "request", "", "bad catalogue", nil), apperr.ExitConfiguration},
		{"configuration", apperr.Wrap(apperr.ErrConfiguration, "config", "", "bad", nil), apperr.ExitConfiguration},
		{"transient", apperr.Wrap(apperr.ErrTransient, "scan", "", "io", errors.New("io")), apperr.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.ExitCode(tt.err); got != tt.want {
				t.Fatalf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
