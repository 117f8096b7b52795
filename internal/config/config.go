package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"sipstructure/internal/catalogue"
	"sipstructure/internal/digest"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for run artefacts.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	LedgerDir string `toml:"ledger_dir"`
	HistoryDB string `toml:"history_db"`
}

// Run contains defaults applied to restructuring runs when flags are omitted.
type Run struct {
	DefaultCatalogue string `toml:"default_catalogue"`
	DefaultStructure string `toml:"default_structure"`
	HashAlgorithm    string `toml:"hash_algorithm"`
	WriteSummary     bool   `toml:"write_summary"`
	RecordHistory    bool   `toml:"record_history"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for sipstructure.
//
// Configuration sections:
//   - Paths: state, log, ledger and history locations
//   - Run: default catalogue, layout and digest algorithm
//   - Logging: log format, level, and per-run log retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	Run     Run     `toml:"run"`
	Logging Logging `toml:"logging"`
}

const (
	defaultConfigPath = "~/.config/sipstructure/config.toml"
	projectConfigName = "sipstructure.toml"
	envHashAlgorithm  = "SIPSTRUCTURE_HASH_ALGORITHM"
	envLogLevel       = "SIPSTRUCTURE_LOG_LEVEL"
	lockDirName       = "locks"
	runLogDirName     = "runs"
	historyDBFileName = "history.db"
	mainLogFileName   = "sipstructure.log"
)

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state, lock, log and ledger directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.LockDir(), c.Paths.LogDir, c.RunLogDir(), c.Paths.LedgerDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockDir is where per-destination run locks live.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, lockDirName)
}

// RunLogDir is where per-run JSON logs are written.
func (c *Config) RunLogDir() string {
	return filepath.Join(c.Paths.LogDir, runLogDirName)
}

// LogFile is the main application log.
func (c *Config) LogFile() string {
	return filepath.Join(c.Paths.LogDir, mainLogFileName)
}

// Catalogue returns the configured default catalogue, if any.
func (c *Config) Catalogue() (catalogue.Catalogue, bool) {
	if c.Run.DefaultCatalogue == "" {
		return "", false
	}
	value, err := catalogue.ParseCatalogue(c.Run.DefaultCatalogue)
	if err != nil {
		return "", false
	}
	return value, true
}

// Structure returns the configured default layout.
func (c *Config) Structure() catalogue.Structure {
	value, err := catalogue.ParseStructure(c.Run.DefaultStructure)
	if err != nil {
		return catalogue.Standard
	}
	return value
}

// Algorithm returns the configured digest algorithm.
func (c *Config) Algorithm() digest.Algorithm {
	value, err := digest.ParseAlgorithm(c.Run.HashAlgorithm)
	if err != nil {
		return digest.Default
	}
	return value
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
