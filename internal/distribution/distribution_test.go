package distribution

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sipstructure/internal/catalogue"
	"sipstructure/internal/opex"
)

func resolve(t *testing.T, c catalogue.Catalogue, filename string) catalogue.Reference {
	t.Helper()
	r, err := catalogue.NewResolver(c)
	if err != nil {
		t.Fatal(err)
	}
	return r.Resolve(filename)
}

func TestFormatMaps(t *testing.T) {
	cases := []struct {
		ext    string
		family Family
		rep    Representation
		ok     bool
	}{
		{"tif", Image, Preservation, true},
		{".JPG", Image, Access, true},
		{"pdf", Document, Access, true},
		{"docx", Document, Preservation, true},
		{"wav", Audio, Preservation, true},
		{"mp3", Audio, Access, true},
		{"mov", Video, Preservation, true},
		{"mp4", Video, Access, true},
		{"zip", Unknown, "", false},
	}
	for _, tc := range cases {
		if got := FamilyFor(tc.ext); got != tc.family {
			t.Errorf("FamilyFor(%q) = %q, want %q", tc.ext, got, tc.family)
		}
		rep, ok := RepresentationFor(tc.ext)
		if ok != tc.ok || rep != tc.rep {
			t.Errorf("RepresentationFor(%q) = %q, %v", tc.ext, rep, ok)
		}
	}
}

func TestStandardRouting(t *testing.T) {
	root := t.TempDir()
	r := NewRouter(root, catalogue.Koha, catalogue.Standard, nil)

	dest := r.Route("12345a.zip", resolve(t, catalogue.Koha, "12345a.zip"))
	if dest.Skipped {
		t.Fatal("standard layout never skips")
	}
	if want := filepath.Join(root, "12345"); dest.Dir != want {
		t.Fatalf("dir = %s, want %s", dest.Dir, want)
	}

	dest = r.Route("CAMB-1-17-2-2.tif", resolve(t, catalogue.Calm, "CAMB-1-17-2-2.tif"))
	if want := filepath.Join(root, "CAMB-1-17-2", "CAMB-1-17-2-2"); dest.Dir != want {
		t.Fatalf("dir = %s, want %s", dest.Dir, want)
	}
}

func TestCalmPAXNestedScenario(t *testing.T) {
	root := t.TempDir()
	r := NewRouter(root, catalogue.Calm, catalogue.PAX, nil)
	name := "CAMB-1-17-2-2.tif"
	dest := r.Route(name, resolve(t, catalogue.Calm, name))
	want := filepath.Join(root, "CAMB-1-17-2", "CAMB-1-17-2-2", "Representation_Preservation", "Image", name)
	if got := dest.Path(name); got != want {
		t.Fatalf("path = %s, want %s", got, want)
	}
	if dest.Representation != Preservation || dest.Family != Image {
		t.Fatalf("unexpected buckets %+v", dest)
	}
}

func TestCalmPAXFlat(t *testing.T) {
	root := t.TempDir()
	r := NewRouter(root, catalogue.Calm, catalogue.PAX, nil)
	dest := r.Route("CAMB-1.jpg", resolve(t, catalogue.Calm, "CAMB-1.jpg"))
	want := filepath.Join(root, "CAMB-1.pax", "Representation_Access", "Image")
	if dest.Dir != want {
		t.Fatalf("dir = %s, want %s", dest.Dir, want)
	}
}

func TestKohaPAX(t *testing.T) {
	root := t.TempDir()
	r := NewRouter(root, catalogue.Koha, catalogue.PAX, nil)

	dest := r.Route("12345b.pdf", resolve(t, catalogue.Koha, "12345b.pdf"))
	want := filepath.Join(root, "12345", "12345.pax", "Representation_Access", "Document")
	if dest.Dir != want {
		t.Fatalf("dir = %s, want %s", dest.Dir, want)
	}

	dest = r.Route("12345.opex", resolve(t, catalogue.Koha, "12345.opex"))
	if want := filepath.Join(root, "12345"); dest.Dir != want {
		t.Fatalf("descriptor dir = %s, want %s", dest.Dir, want)
	}
}

func TestTMSPAXRangeGrouping(t *testing.T) {
	root := t.TempDir()
	cov := opex.NewCoverage([]string{"PH.681.1-3.opex", "PH.700.opex"}, true)
	r := NewRouter(root, catalogue.TMS, catalogue.PAX, cov)

	dest := r.Route("PH.681.2a.tif", resolve(t, catalogue.TMS, "PH.681.2a.tif"))
	want := filepath.Join(root, "PH.681.1-3", "PH.681.2.pax", "Representation_Preservation", "Image")
	if dest.Dir != want {
		t.Fatalf("grouped dir = %s, want %s", dest.Dir, want)
	}

	dest = r.Route("PH.700.mp3", resolve(t, catalogue.TMS, "PH.700.mp3"))
	want = filepath.Join(root, "PH.700", "PH.700.pax", "Representation_Access", "Audio")
	if dest.Dir != want {
		t.Fatalf("exact dir = %s, want %s", dest.Dir, want)
	}

	dest = r.Route("PH.681.1-3.opex", resolve(t, catalogue.TMS, "PH.681.1-3.opex"))
	if want := filepath.Join(root, "PH.681.1-3"); dest.Dir != want {
		t.Fatalf("descriptor dir = %s, want %s", dest.Dir, want)
	}
}

func TestUnroutableFormatIsSkipped(t *testing.T) {
	root := t.TempDir()
	r := NewRouter(root, catalogue.Koha, catalogue.PAX, nil)
	dest := r.Route("12345.zip", resolve(t, catalogue.Koha, "12345.zip"))
	if !dest.Skipped {
		t.Fatal("expected zip to be skipped")
	}
	if !errors.Is(dest.Reason, ErrUnroutable) {
		t.Fatalf("reason = %v", dest.Reason)
	}
	if err := r.Prepare(dest); err != nil {
		t.Fatalf("prepare skipped: %v", err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("skipped file created folders: %v", entries)
	}
}

func TestPrepareIsIdempotent(t *testing.T) {
	root := t.TempDir()
	r := NewRouter(root, catalogue.Koha, catalogue.PAX, nil)
	dest := r.Route("1a.tif", resolve(t, catalogue.Koha, "1a.tif"))
	for i := 0; i < 2; i++ {
		if err := r.Prepare(dest); err != nil {
			t.Fatalf("prepare %d: %v", i, err)
		}
	}
	if info, err := os.Stat(dest.Dir); err != nil || !info.IsDir() {
		t.Fatalf("expected folder %s: %v", dest.Dir, err)
	}
}

func TestUnroutable(t *testing.T) {
	cases := []struct {
		structure catalogue.Structure
		name      string
		skip      bool
	}{
		{catalogue.PAX, "123.zip", true},
		{catalogue.PAX, "123a.TIF", false},
		{catalogue.PAX, "123.opex", false},
		{catalogue.Standard, "123.zip", false},
	}
	for _, tc := range cases {
		err := Unroutable(tc.structure, tc.name)
		if (err != nil) != tc.skip {
			t.Errorf("Unroutable(%s, %s) = %v, want skip %v", tc.structure, tc.name, err, tc.skip)
		}
		if err != nil && !errors.Is(err, ErrUnroutable) {
			t.Errorf("Unroutable(%s, %s) = %v, want ErrUnroutable", tc.structure, tc.name, err)
		}
	}
}
