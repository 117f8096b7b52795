package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

// quietKeys are carried for JSON consumers but kept off the console at info
// level and above.
var quietKeys = map[string]bool{
	FieldEventType:    true,
	FieldDecisionType: true,
}

type field struct {
	key   string
	value slog.Value
}

// consoleHandler renders one header line per record followed by an indented
// list of fields. Group names become dotted key prefixes.
type consoleHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Leveler
	source bool
	prefix string
	preset []field
}

func newConsoleHandler(w io.Writer, level slog.Leveler, source bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: level, source: source}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]field, len(h.preset), len(h.preset)+r.NumAttrs())
	copy(fields, h.preset)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendField(fields, h.prefix, a)
		return true
	})

	var component, runID, stage string
	body := make([]field, 0, len(fields))
	hidden := 0
	for _, f := range lastWins(fields) {
		switch {
		case f.key == FieldComponent:
			component = plainValue(f.value)
		case f.key == FieldRunID:
			runID = plainValue(f.value)
		case f.key == FieldStage:
			stage = plainValue(f.value)
		case quietKeys[f.key] && r.Level >= slog.LevelInfo:
			hidden++
		default:
			body = append(body, f)
		}
	}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "(no message)"
	}

	var b strings.Builder
	b.WriteString(ts.Local().Format(consoleTimeLayout))
	b.WriteString(" ")
	b.WriteString(levelLabel(r.Level))
	if component != "" {
		fmt.Fprintf(&b, " [%s]", component)
	}
	if s := subject(runID, stage); s != "" {
		b.WriteString(" ")
		b.WriteString(s)
	}
	b.WriteString(" – ")
	b.WriteString(msg)
	if h.source && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		fmt.Fprintf(&b, " [%s:%d]", filepath.Base(frame.File), frame.Line)
	}
	b.WriteByte('\n')
	for _, f := range body {
		fmt.Fprintf(&b, "    - %s: %s\n", f.key, consoleValue(f.key, f.value))
	}
	if hidden > 0 && r.Level >= slog.LevelWarn {
		noun := "fields"
		if hidden == 1 {
			noun = "field"
		}
		fmt.Fprintf(&b, "    + %d more %s hidden\n", hidden, noun)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = make([]field, len(h.preset), len(h.preset)+len(attrs))
	copy(next.preset, h.preset)
	for _, a := range attrs {
		next.preset = appendField(next.preset, h.prefix, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = joinKey(h.prefix, name)
	return &next
}

// subject builds the "Run 01234567 (stage)" label, keeping the first eight
// characters of the run id.
func subject(runID, stage string) string {
	runID = strings.TrimSpace(runID)
	stage = strings.TrimSpace(stage)
	if len(runID) > 8 {
		runID = runID[:8]
	}
	if runID == "" {
		return stage
	}
	if stage == "" {
		return "Run " + runID
	}
	return "Run " + runID + " (" + stage + ")"
}

func appendField(dst []field, prefix string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	key := joinKey(prefix, a.Key)
	if a.Value.Kind() == slog.KindGroup {
		for _, member := range a.Value.Group() {
			dst = appendField(dst, key, member)
		}
		return dst
	}
	return append(dst, field{key: key, value: a.Value})
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// lastWins keeps the first position of each key with its most recent value.
func lastWins(fields []field) []field {
	index := make(map[string]int, len(fields))
	out := fields[:0:0]
	for _, f := range fields {
		if f.key == "" {
			continue
		}
		if at, seen := index[f.key]; seen {
			out[at].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

func plainValue(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() != slog.KindAny {
		return v.String()
	}
	if err, ok := v.Any().(error); ok {
		return err.Error()
	}
	return fmt.Sprint(v.Any())
}

// consoleValue formats a field for humans. Integer byte counts are shown in
// SI units and times use the local console layout.
func consoleValue(key string, v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindInt64:
		if n := v.Int64(); n >= 0 && isByteKey(key) {
			return humanize.Bytes(uint64(n))
		}
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		if isByteKey(key) {
			return humanize.Bytes(v.Uint64())
		}
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		if d := v.Duration(); d >= time.Second {
			return d.Round(time.Millisecond).String()
		}
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Local().Format(consoleTimeLayout)
	}
	s := plainValue(v)
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

func isByteKey(key string) bool {
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	return key == "bytes" || key == "size" || strings.HasSuffix(key, "_bytes")
}
