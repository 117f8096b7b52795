package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sipstructure/internal/catalogue"
	"sipstructure/internal/digest"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRun()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LedgerDir) == "" {
		c.Paths.LedgerDir = filepath.Join(c.Paths.StateDir, "ledgers")
	}
	if c.Paths.LedgerDir, err = expandPath(c.Paths.LedgerDir); err != nil {
		return fmt.Errorf("paths.ledger_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = filepath.Join(c.Paths.StateDir, historyDBFileName)
	}
	if c.Paths.HistoryDB, err = expandPath(c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

// normalizeRun canonicalizes recognised names. Unrecognised values are left
// as written so Validate can report them.
func (c *Config) normalizeRun() {
	c.Run.DefaultCatalogue = strings.TrimSpace(c.Run.DefaultCatalogue)
	if parsed, err := catalogue.ParseCatalogue(c.Run.DefaultCatalogue); err == nil {
		c.Run.DefaultCatalogue = parsed.String()
	}
	c.Run.DefaultStructure = strings.TrimSpace(c.Run.DefaultStructure)
	if c.Run.DefaultStructure == "" {
		c.Run.DefaultStructure = defaultStructure
	}
	if parsed, err := catalogue.ParseStructure(c.Run.DefaultStructure); err == nil {
		c.Run.DefaultStructure = parsed.String()
	}
	c.Run.HashAlgorithm = strings.TrimSpace(c.Run.HashAlgorithm)
	if c.Run.HashAlgorithm == "" {
		if value, ok := os.LookupEnv(envHashAlgorithm); ok {
			c.Run.HashAlgorithm = strings.TrimSpace(value)
		}
	}
	if c.Run.HashAlgorithm == "" {
		c.Run.HashAlgorithm = string(digest.Default)
	}
	if parsed, err := digest.ParseAlgorithm(c.Run.HashAlgorithm); err == nil {
		c.Run.HashAlgorithm = string(parsed)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		if value, ok := os.LookupEnv(envLogLevel); ok {
			c.Logging.Level = strings.ToLower(strings.TrimSpace(value))
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
