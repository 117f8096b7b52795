package sip_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"sipstructure/internal/digest"
	"sipstructure/internal/ledger"
	"sipstructure/internal/sip"
)

func TestCompareClassifiesPaths(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "folder one")
	b := filepath.Join(root, "folder_two")
	writeSource(t, a, "same.tif", "only-a.jpg", "changed.pdf")
	writeSource(t, b, "same.tif", "only-b.mp3", "changed.pdf")
	if err := os.WriteFile(filepath.Join(b, "changed.pdf"), []byte("edited"), 0o644); err != nil {
		t.Fatal(err)
	}
	hasher, err := digest.New(digest.MD5)
	if err != nil {
		t.Fatal(err)
	}

	c, err := sip.Compare(context.Background(), hasher, nil, a, b)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	want := map[string]string{
		"changed.pdf": sip.StatusMismatch,
		"only-a.jpg":  "Unique - Only in folder_one",
		"only-b.mp3":  "Unique - Only in folder_two",
		"same.tif":    sip.StatusDuplicate,
	}
	if len(c.Rows) != len(want) {
		t.Fatalf("rows = %+v", c.Rows)
	}
	for _, row := range c.Rows {
		if want[row.RelativePath] != row.Status {
			t.Errorf("%s: status %q, want %q", row.RelativePath, row.Status, want[row.RelativePath])
		}
	}
	if c.Counts()[sip.StatusDuplicate] != 1 {
		t.Fatalf("counts = %v", c.Counts())
	}

	out, err := sip.WriteComparison(filepath.Join(root, "logs"), c, "14-03-2026")
	if err != nil {
		t.Fatalf("WriteComparison: %v", err)
	}
	if filepath.Base(out.Report) != "comparison_report_folder_one_vs_folder_two_14-03-2026.csv" {
		t.Fatalf("report name = %s", out.Report)
	}
	records, err := ledger.ReadHashLog(out.HashLogA)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || records[0].RelativePath != "changed.pdf" {
		t.Fatalf("hash log = %+v", records)
	}
	data, err := os.ReadFile(out.Report)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data[:len("Relative_Path,Folder1_MD5,Folder2_MD5,Status")]); got != "Relative_Path,Folder1_MD5,Folder2_MD5,Status" {
		t.Fatalf("report header = %q", got)
	}
}
