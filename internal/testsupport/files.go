package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTree creates each named file under root with content derived from its
// name, so distinct names hash differently.
func WriteTree(t testing.TB, root string, names ...string) {
	t.Helper()

	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte("content of "+name), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}
