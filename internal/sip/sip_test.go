package sip_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"sipstructure/internal/apperr"
	"sipstructure/internal/catalogue"
	"sipstructure/internal/fileutil"
	"sipstructure/internal/history"
	"sipstructure/internal/ledger"
	"sipstructure/internal/opex"
	"sipstructure/internal/sip"
	"sipstructure/internal/testsupport"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)

type recorder struct {
	runs    []history.Run
	entries [][]ledger.Entry
}

func (r *recorder) RecordRun(_ context.Context, run history.Run, entries []ledger.Entry) error {
	r.runs = append(r.runs, run)
	r.entries = append(r.entries, entries)
	return nil
}

type copierFunc func(src, dst string) error

func (f copierFunc) Copy(src, dst string) error { return f(src, dst) }

func writeSource(t *testing.T, dir string, names ...string) {
	t.Helper()
	testsupport.WriteTree(t, dir, names...)
}

type fixture struct {
	source, dest, state string
	history             *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{source: t.TempDir(), dest: t.TempDir(), state: t.TempDir(), history: &recorder{}}
}

func (f *fixture) runner(t *testing.T, mutate func(*sip.Options)) *sip.Runner {
	t.Helper()
	opts := sip.Options{
		LedgerDir:    filepath.Join(f.state, "ledgers"),
		LockDir:      filepath.Join(f.state, "locks"),
		RunLogDir:    filepath.Join(f.state, "runs"),
		History:      f.history,
		WriteSummary: true,
		Now:          func() time.Time { return fixedNow },
		NewID:        func() string { return "run-0001" },
	}
	if mutate != nil {
		mutate(&opts)
	}
	r, err := sip.NewRunner(opts)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func (f *fixture) request(cat catalogue.Catalogue, structure catalogue.Structure) sip.Request {
	return sip.Request{Source: f.source, Destination: f.dest, Catalogue: cat, Structure: structure}
}

func assertExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s: %v", path, err)
	}
}

func TestRunCalmPAXScenarioVerifies(t *testing.T) {
	f := newFixture(t)
	writeSource(t, f.source, "CAMB-1-17-2-2.tif")

	res, err := f.runner(t, nil).Run(context.Background(), f.request(catalogue.Calm, catalogue.PAX))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	target := filepath.Join(f.dest, "CAMB-1-17-2", "CAMB-1-17-2-2", "Representation_Preservation", "Image", "CAMB-1-17-2-2.tif")
	assertExists(t, target)
	if !res.OK() || res.Report.Matched != 1 {
		t.Fatalf("report = %+v", res.Report)
	}
	if got := res.Entries[0].Status(); got != ledger.StatusMatch {
		t.Fatalf("status = %s", got)
	}

	wantCSV := filepath.Join(f.state, "ledgers", ledger.FileName(f.source, f.dest, fixedNow))
	if res.LedgerPath != wantCSV {
		t.Fatalf("ledger path = %s, want %s", res.LedgerPath, wantCSV)
	}
	data, err := os.ReadFile(wantCSV)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "CAMB-1-17-2-2.tif") || !strings.Contains(string(data), ",MATCH") {
		t.Fatalf("ledger csv missing verdict:\n%s", data)
	}
	summary, err := ledger.ReadSummary(res.SummaryPath)
	if err != nil {
		t.Fatalf("ReadSummary: %v", err)
	}
	if summary.RunID != "run-0001" || summary.Report.Matched != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	assertExists(t, res.RunLogPath)

	if len(f.history.runs) != 1 || f.history.runs[0].Outcome != history.OutcomeVerified {
		t.Fatalf("history = %+v", f.history.runs)
	}
}

func TestRunMissingMetadataAbortsBeforeCopy(t *testing.T) {
	f := newFixture(t)
	writeSource(t, f.source, "12345.opex", "12345a.tif", "678.tif", "999b.jpg")

	res, err := f.runner(t, nil).Run(context.Background(), f.request(catalogue.Koha, catalogue.Standard))
	if !errors.Is(err, apperr.ErrMissingMetadata) {
		t.Fatalf("err = %v, want missing metadata", err)
	}
	if apperr.ExitCode(err) != apperr.ExitMissingMetadata {
		t.Fatalf("exit code = %d", apperr.ExitCode(err))
	}
	var missing *opex.MissingMetadataError
	if !errors.As(err, &missing) {
		t.Fatalf("err %T does not carry the missing list", err)
	}
	if strings.Join(missing.Prefixes, ",") != "678,999" {
		t.Fatalf("prefixes = %v", missing.Prefixes)
	}
	entries, _ := os.ReadDir(f.dest)
	if len(entries) != 0 {
		t.Fatalf("destination touched: %v", entries)
	}
	if res == nil || len(res.Entries) != 4 {
		t.Fatalf("expected source-hashed entries, got %+v", res)
	}
	if len(f.history.runs) != 1 || f.history.runs[0].Outcome != history.OutcomeAborted {
		t.Fatalf("history = %+v", f.history.runs)
	}
}

func TestRunReportsMismatchWithoutError(t *testing.T) {
	f := newFixture(t)
	writeSource(t, f.source, "CAMB-1.jpg", "CAMB-2.jpg")
	corrupt := copierFunc(func(src, dst string) error {
		if err := fileutil.CopyPreserving(src, dst); err != nil {
			return err
		}
		if filepath.Base(src) != "CAMB-2.jpg" {
			return nil
		}
		return os.WriteFile(dst, []byte("bit rot"), 0o644)
	})

	res, err := f.runner(t, func(o *sip.Options) { o.Copier = corrupt }).
		Run(context.Background(), f.request(catalogue.Calm, catalogue.Standard))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OK() || len(res.Report.Discrepancies) != 1 {
		t.Fatalf("report = %+v", res.Report)
	}
	d := res.Report.Discrepancies[0]
	if d.RelativePath != "CAMB-2.jpg" || d.Status != ledger.StatusMismatch {
		t.Fatalf("discrepancy = %+v", d)
	}
	if f.history.runs[0].Outcome != history.OutcomeDiscrepancies {
		t.Fatalf("outcome = %s", f.history.runs[0].Outcome)
	}
}

func TestRunCopyFailureLeavesDestinationDigestEmpty(t *testing.T) {
	f := newFixture(t)
	writeSource(t, f.source, "CAMB-1.jpg", "CAMB-2.jpg")
	failing := copierFunc(func(src, dst string) error {
		if filepath.Base(src) == "CAMB-1.jpg" {
			return errors.New("device full")
		}
		return fileutil.CopyPreserving(src, dst)
	})

	res, err := f.runner(t, func(o *sip.Options) { o.Copier = failing }).
		Run(context.Background(), f.request(catalogue.Calm, catalogue.Standard))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Report.Matched != 1 || len(res.Report.Discrepancies) != 1 {
		t.Fatalf("report = %+v", res.Report)
	}
	if got := res.Report.Discrepancies[0].Status; got != ledger.StatusMissingDestination {
		t.Fatalf("status = %s", got)
	}
}

func TestRunSharedTargetFailsVerification(t *testing.T) {
	f := newFixture(t)
	writeSource(t, f.source, "CAMB-1.jpg", "nested/CAMB-1.jpg")

	res, err := f.runner(t, nil).Run(context.Background(), f.request(catalogue.Calm, catalogue.Standard))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OK() || res.Report.Skipped != 0 || res.Report.Matched != 1 || len(res.Report.Discrepancies) != 1 {
		t.Fatalf("report = %+v", res.Report)
	}
	d := res.Report.Discrepancies[0]
	if d.RelativePath != "nested/CAMB-1.jpg" || d.Status != ledger.StatusMissingDestination {
		t.Fatalf("discrepancy = %+v", d)
	}
	var firstTarget string
	for _, e := range res.Entries {
		if e.RelativePath == "CAMB-1.jpg" {
			firstTarget = e.DestinationPath
		}
	}
	copied, err := os.ReadFile(firstTarget)
	if err != nil {
		t.Fatal(err)
	}
	if string(copied) != "content of CAMB-1.jpg" {
		t.Fatalf("earlier file was overwritten: %q", copied)
	}
	if f.history.runs[0].Outcome != history.OutcomeDiscrepancies {
		t.Fatalf("outcome = %s", f.history.runs[0].Outcome)
	}
}

func TestRunSkipsUnroutableFormatsUnderPAX(t *testing.T) {
	f := newFixture(t)
	writeSource(t, f.source, "12345.opex", "12345.zip", "12345a.tif")

	res, err := f.runner(t, nil).Run(context.Background(), f.request(catalogue.Koha, catalogue.PAX))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.OK() || res.Report.Skipped != 1 || res.Report.Matched != 2 {
		t.Fatalf("report = %+v", res.Report)
	}
	for _, e := range res.Entries {
		if e.RelativePath == "12345.zip" && e.Status() != ledger.StatusSkipped {
			t.Fatalf("zip status = %s", e.Status())
		}
	}
	assertExists(t, filepath.Join(f.dest, "12345", "12345.opex"))
	assertExists(t, filepath.Join(f.dest, "12345", "12345.pax", "Representation_Preservation", "Image", "12345a.tif"))
	found := false
	_ = filepath.WalkDir(f.dest, func(path string, d os.DirEntry, err error) error {
		if err == nil && strings.HasSuffix(path, ".zip") {
			found = true
		}
		return nil
	})
	if found {
		t.Fatal("zip was copied")
	}
}

func TestRunGroupsTMSRanges(t *testing.T) {
	f := newFixture(t)
	writeSource(t, f.source, "PH.681.1-3.opex", "PH.681.2a.tif", "PH.681.3.mp4", "PH.900.opex")

	res, err := f.runner(t, nil).Run(context.Background(), f.request(catalogue.TMS, catalogue.PAX))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.OK() {
		t.Fatalf("report = %+v", res.Report)
	}
	assertExists(t, filepath.Join(f.dest, "PH.681.1-3", "PH.681.1-3.opex"))
	assertExists(t, filepath.Join(f.dest, "PH.681.1-3", "PH.681.2.pax", "Representation_Preservation", "Image", "PH.681.2a.tif"))
	assertExists(t, filepath.Join(f.dest, "PH.681.1-3", "PH.681.3.pax", "Representation_Access", "Video", "PH.681.3.mp4"))
	// Every descriptor gets its folder, even with no content under it.
	assertExists(t, filepath.Join(f.dest, "PH.900"))
	if len(res.DescriptorFolders) != 2 {
		t.Fatalf("descriptor folders = %v", res.DescriptorFolders)
	}
}

func TestRunRejectsBusyDestination(t *testing.T) {
	f := newFixture(t)
	writeSource(t, f.source, "CAMB-1.jpg")
	lockDir := filepath.Join(f.state, "locks")
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(sip.LockPath(lockDir, f.dest))
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("pre-lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	_, err := f.runner(t, nil).Run(context.Background(), f.request(catalogue.Calm, catalogue.Standard))
	if !errors.Is(err, sip.ErrDestinationBusy) {
		t.Fatalf("err = %v, want busy", err)
	}
}

func TestRunCancellationPersistsPartialLedger(t *testing.T) {
	f := newFixture(t)
	writeSource(t, f.source, "CAMB-1.jpg", "CAMB-2.jpg", "CAMB-3.jpg")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cancelling := copierFunc(func(src, dst string) error {
		cancel()
		return fileutil.CopyPreserving(src, dst)
	})

	res, err := f.runner(t, func(o *sip.Options) { o.Copier = cancelling }).
		Run(ctx, f.request(catalogue.Calm, catalogue.Standard))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want cancellation", err)
	}
	if res.Report.Matched != 1 || len(res.Report.Discrepancies) != 2 {
		t.Fatalf("report = %+v", res.Report)
	}
	entries, err := ledger.ReadCSV(res.LedgerPath)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	if f.history.runs[0].Outcome != history.OutcomeAborted {
		t.Fatalf("outcome = %s", f.history.runs[0].Outcome)
	}
}

func TestRequestValidation(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		req  sip.Request
	}{
		{"missing catalogue", sip.Request{Source: dir, Destination: dir + "-out", Structure: catalogue.PAX}},
		{"unknown structure", sip.Request{Source: dir, Destination: dir + "-out", Catalogue: catalogue.TMS, Structure: "Flat"}},
		{"same folders", sip.Request{Source: dir, Destination: dir, Catalogue: catalogue.TMS, Structure: catalogue.PAX}},
		{"missing source", sip.Request{Destination: dir, Catalogue: catalogue.TMS, Structure: catalogue.PAX}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestScanIsSortedAndRecursive(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "b.tif", "sub/a.jpg", "a.pdf")
	files, err := sip.Scan(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, f := range files {
		got = append(got, f.RelativePath)
	}
	if strings.Join(got, ",") != "a.pdf,b.tif,sub/a.jpg" {
		t.Fatalf("scan order = %v", got)
	}
	if files[2].Ext != "jpg" || files[2].Name != "a.jpg" {
		t.Fatalf("file = %+v", files[2])
	}
}
