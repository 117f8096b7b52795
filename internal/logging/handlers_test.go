package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestTeeLoggerRespectsEachLevel(t *testing.T) {
	var console, runFile bytes.Buffer
	base := slog.New(slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger := TeeLogger(base, slog.NewJSONHandler(&runFile, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Debug("hashed source", String(FieldFile, "a.tif"))
	logger.Info("copied", String(FieldFile, "a.tif"))

	if strings.Contains(console.String(), "hashed source") {
		t.Fatalf("console should not receive debug records: %q", console.String())
	}
	if !strings.Contains(runFile.String(), "hashed source") || !strings.Contains(runFile.String(), "copied") {
		t.Fatalf("run file should receive every record: %q", runFile.String())
	}
}

func TestTeeLoggerWithAttrsReachesBothHandlers(t *testing.T) {
	var a, b bytes.Buffer
	logger := TeeLogger(slog.New(slog.NewJSONHandler(&a, nil)), slog.NewJSONHandler(&b, nil))
	logger.With(String(FieldRunID, "run-1")).WithGroup("ledger").Info("reconciled", Int("matched", 3))

	for name, buf := range map[string]*bytes.Buffer{"main": &a, "run": &b} {
		out := buf.String()
		if !strings.Contains(out, `"run_id":"run-1"`) || !strings.Contains(out, `"ledger":{"matched":3}`) {
			t.Fatalf("%s handler missing attrs: %q", name, out)
		}
	}
}

func TestTeeLoggerNilBase(t *testing.T) {
	var buf bytes.Buffer
	TeeLogger(nil, slog.NewJSONHandler(&buf, nil)).InfoContext(context.Background(), "only run")
	if !strings.Contains(buf.String(), "only run") {
		t.Fatalf("expected run output, got %q", buf.String())
	}
}

func TestConsoleHandlerGroupsAndOverrides(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, level, false))

	logger.With(String("file", "a.tif")).WithGroup("copy").Info("copied",
		Int("bytes", 2_500_000),
		Int("retries", 0),
		slog.Group("digest", String("source", "abc")),
	)
	logger.With(String("file", "a.tif")).Info("renamed", String("file", "b.tif"))

	out := buf.String()
	for _, want := range []string{
		"    - file: a.tif\n",
		"    - copy.bytes: 2.5 MB\n",
		"    - copy.retries: 0\n",
		"    - copy.digest.source: abc\n",
		"    - file: b.tif\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if strings.Count(out, "- file:") != 2 {
		t.Fatalf("duplicate keys should collapse: %q", out)
	}
}

func TestConsoleHandlerCountsHiddenFieldsOnWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar), false))
	WarnWithContext(logger, "hash mismatch", "hash_mismatch", Error(errors.New("digests differ")))

	out := buf.String()
	if !strings.Contains(out, "WARN – hash mismatch") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "    - error: \"digests differ\"\n") {
		t.Fatalf("error should be quoted: %q", out)
	}
	if !strings.Contains(out, "+ 1 more field hidden") {
		t.Fatalf("expected hidden event_type note: %q", out)
	}
}

func TestConsoleValue(t *testing.T) {
	cases := []struct {
		key  string
		v    slog.Value
		want string
	}{
		{"name", slog.StringValue(""), `""`},
		{"name", slog.StringValue("k=v"), `"k=v"`},
		{"size", slog.Int64Value(1000), "1.0 kB"},
		{"size", slog.Int64Value(-1), "-1"},
		{"count", slog.Int64Value(1000), "1000"},
		{"elapsed", slog.DurationValue(1500 * time.Microsecond), "1.5ms"},
		{"elapsed", slog.DurationValue(2*time.Second + 1234567*time.Nanosecond), "2.001s"},
		{"ok", slog.BoolValue(true), "true"},
	}
	for _, tc := range cases {
		if got := consoleValue(tc.key, tc.v); got != tc.want {
			t.Errorf("consoleValue(%q, %v) = %q, want %q", tc.key, tc.v, got, tc.want)
		}
	}
}

func TestSubject(t *testing.T) {
	cases := map[[2]string]string{
		{"0123456789", "copy"}: "Run 01234567 (copy)",
		{"abc", ""}:            "Run abc",
		{"", "scan"}:           "scan",
		{"", ""}:               "",
	}
	for in, want := range cases {
		if got := subject(in[0], in[1]); got != want {
			t.Errorf("subject(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}

func TestFileProgress(t *testing.T) {
	p := NewFileProgress(20, 25)
	var reported []int
	for i := 0; i < 20; i++ {
		if done, report := p.Advance(); report {
			reported = append(reported, done)
		}
	}
	want := []int{1, 5, 10, 15, 20}
	if len(reported) != len(want) {
		t.Fatalf("reported %v, want %v", reported, want)
	}
	for i := range want {
		if reported[i] != want[i] {
			t.Fatalf("reported %v, want %v", reported, want)
		}
	}

	empty := NewFileProgress(0, 0)
	if _, report := empty.Advance(); report {
		t.Fatal("zero total should never report")
	}
}
