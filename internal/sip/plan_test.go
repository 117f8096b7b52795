package sip_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sipstructure/internal/catalogue"
	"sipstructure/internal/sip"
)

func TestPlanDoesNotTouchDestination(t *testing.T) {
	source := t.TempDir()
	dest := filepath.Join(t.TempDir(), "not-yet")
	writeSource(t, source, "12345.opex", "12345a.tif", "12345.zip", "678.pdf")

	plan, err := sip.Plan(context.Background(), sip.Request{
		Source: source, Destination: dest, Catalogue: catalogue.Koha, Structure: catalogue.PAX,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("destination created: %v", err)
	}
	if got := strings.Join(plan.MissingPrefixes(), ","); got != "678" {
		t.Fatalf("missing = %q", got)
	}
	if plan.Transferable() != 3 {
		t.Fatalf("transferable = %d", plan.Transferable())
	}
	for _, f := range plan.Files {
		switch f.File.Name {
		case "12345.zip":
			if !f.Skipped() {
				t.Fatal("zip should be skipped")
			}
		case "12345a.tif":
			want := filepath.Join(dest, "12345", "12345.pax", "Representation_Preservation", "Image", "12345a.tif")
			if f.Target != want {
				t.Fatalf("target = %s, want %s", f.Target, want)
			}
		}
	}
}

func TestPlanReportsDestinationConflicts(t *testing.T) {
	source := t.TempDir()
	writeSource(t, source, "CAMB-1.jpg", "nested/CAMB-1.jpg")
	plan, err := sip.Plan(context.Background(), sip.Request{
		Source: source, Destination: t.TempDir(), Catalogue: catalogue.Calm, Structure: catalogue.Standard,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Transferable() != 1 {
		t.Fatalf("transferable = %d", plan.Transferable())
	}
	second := plan.Files[1]
	if second.Skipped() {
		t.Fatalf("Standard routing never skips: %+v", second)
	}
	if second.Conflict != "CAMB-1.jpg" || second.Copied() {
		t.Fatalf("conflict not reported: %+v", second)
	}
	if got := plan.Conflicts(); len(got) != 1 || got[0].File.RelativePath != "nested/CAMB-1.jpg" {
		t.Fatalf("conflicts = %+v", got)
	}
}
