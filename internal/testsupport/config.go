package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"sipstructure/internal/catalogue"
	"sipstructure/internal/config"
	"sipstructure/internal/digest"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LedgerDir = filepath.Join(base, "ledgers")
	cfgVal.Paths.HistoryDB = filepath.Join(base, "state", "history.db")
	cfgVal.Run.HashAlgorithm = string(digest.MD5)
	cfgVal.Logging.Level = "info"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDefaultCatalogue sets the catalogue used when --catalogue is omitted.
func WithDefaultCatalogue(c catalogue.Catalogue) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.DefaultCatalogue = string(c)
	}
}

// WithHashAlgorithm overrides the digest algorithm on the test config.
func WithHashAlgorithm(alg digest.Algorithm) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.HashAlgorithm = string(alg)
	}
}

// WithoutHistory disables the run archive.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.RecordHistory = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// WriteConfig encodes cfg as TOML at path so it can be loaded with --config.
func WriteConfig(t testing.TB, path string, cfg *config.Config) {
	t.Helper()

	payload, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
