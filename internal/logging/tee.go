package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler writes each record to the application handler and to a run
// handler, each filtered by its own level.
type teeHandler struct {
	main slog.Handler
	run  slog.Handler
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.main.Enabled(ctx, level) || t.run.Enabled(ctx, level)
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	if t.main.Enabled(ctx, r.Level) {
		errs = append(errs, t.main.Handle(ctx, r.Clone()))
	}
	if t.run.Enabled(ctx, r.Level) {
		errs = append(errs, t.run.Handle(ctx, r))
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{main: t.main.WithAttrs(attrs), run: t.run.WithAttrs(attrs)}
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{main: t.main.WithGroup(name), run: t.run.WithGroup(name)}
}

// TeeLogger returns a logger that also writes into run. A nil base yields a
// logger backed by run alone.
func TeeLogger(base *slog.Logger, run slog.Handler) *slog.Logger {
	if base == nil {
		return slog.New(run)
	}
	if run == nil {
		return base
	}
	return slog.New(teeHandler{main: base.Handler(), run: run})
}
