package config

import (
	"fmt"

	"sipstructure/internal/catalogue"
	"sipstructure/internal/digest"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRun(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRun() error {
	if c.Run.DefaultCatalogue != "" {
		if _, err := catalogue.ParseCatalogue(c.Run.DefaultCatalogue); err != nil {
			return fmt.Errorf("run.default_catalogue: %w", err)
		}
	}
	if _, err := catalogue.ParseStructure(c.Run.DefaultStructure); err != nil {
		return fmt.Errorf("run.default_structure: %w", err)
	}
	if _, err := digest.ParseAlgorithm(c.Run.HashAlgorithm); err != nil {
		return fmt.Errorf("run.hash_algorithm: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q (want debug, info, warn or error)", c.Logging.Level)
	}
}
