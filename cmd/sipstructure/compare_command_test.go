package main

import (
	"os"
	"path/filepath"
	"testing"

	"sipstructure/internal/testsupport"
)

func TestCompareCommandWritesReport(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTree(t, env.source, "a.tif", "b.tif")
	testsupport.WriteTree(t, env.dest, "a.tif", "c.tif")
	reports := filepath.Join(env.baseDir, "reports")

	out, _, err := runCLI(t, []string{"compare", env.source, env.dest, "-o", reports}, env.configPath)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	requireContains(t, out, "Duplicate - Present in both folders")
	requireContains(t, out, "Unique - Only in export")
	requireContains(t, out, "Unique - Only in sip")

	entries, err := os.ReadDir(reports)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected two hash logs and a report, got %v", entries)
	}
}
