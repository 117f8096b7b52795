package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sipstructure/internal/logs"
)

func TestLastReturnsTrailingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sipstructure.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if strings.Join(lines, ",") != "b,c" {
		t.Fatalf("lines = %#v", lines)
	}
	if offset != 6 {
		t.Fatalf("offset = %d", offset)
	}

	lines, _, err = logs.Last(path, 10)
	if err != nil || len(lines) != 3 {
		t.Fatalf("short file: %#v %v", lines, err)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("got %#v %d %v", lines, offset, err)
	}
}

func TestReadFromLeavesPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	if err := os.WriteFile(path, []byte("one\ntwo\npart"), 0o644); err != nil {
		t.Fatal(err)
	}
	lines, offset, err := logs.ReadFrom(path, 0)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if strings.Join(lines, ",") != "one,two" || offset != 8 {
		t.Fatalf("lines = %#v offset = %d", lines, offset)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("ial\n")
	f.Close()
	lines, _, err = logs.ReadFrom(path, offset)
	if err != nil || len(lines) != 1 || lines[0] != "partial" {
		t.Fatalf("lines = %#v err = %v", lines, err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, offset, err := logs.Last(path, 1)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stop := errors.New("stop")
	got := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, func(line string) error {
			got <- line
			return stop
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("later\n")
	f.Close()

	if err := <-done; !errors.Is(err, stop) {
		t.Fatalf("Follow err = %v", err)
	}
	if line := <-got; line != "later" {
		t.Fatalf("line = %q", line)
	}
}

func TestFindRunLog(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []string{"3f2a91c0-1111", "3f2a91c0-2222", "9b00aa11-3333"} {
		if err := os.WriteFile(filepath.Join(dir, id+".log"), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	path, err := logs.FindRunLog(dir, "9b00")
	if err != nil || filepath.Base(path) != "9b00aa11-3333.log" {
		t.Fatalf("prefix: %s %v", path, err)
	}
	path, err = logs.FindRunLog(dir, "3f2a91c0-2222")
	if err != nil || filepath.Base(path) != "3f2a91c0-2222.log" {
		t.Fatalf("exact: %s %v", path, err)
	}
	if _, err := logs.FindRunLog(dir, "3f2a"); err == nil {
		t.Fatal("expected ambiguous prefix error")
	}
	if _, err := logs.FindRunLog(dir, "ffff"); !errors.Is(err, logs.ErrRunLogNotFound) {
		t.Fatalf("missing: %v", err)
	}
}
