package testsupport

import (
	"context"
	"testing"

	"sipstructure/internal/config"
	"sipstructure/internal/history"
)

// MustOpenHistory opens the run archive for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(context.Background(), cfg.Paths.HistoryDB)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
