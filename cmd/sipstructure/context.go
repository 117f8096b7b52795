package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"sipstructure/internal/apperr"
	"sipstructure/internal/catalogue"
	"sipstructure/internal/config"
	"sipstructure/internal/digest"
	"sipstructure/internal/history"
	"sipstructure/internal/logging"
	"sipstructure/internal/sip"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	jsonFlag     *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		jsonFlag:     jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = apperr.Wrap(apperr.ErrConfiguration, "config", "load", "", err)
			return
		}
		if level := c.logLevel(); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
			if err := cfg.Validate(); err != nil {
				c.configErr = apperr.Wrap(apperr.ErrConfiguration, "flags", "log-level", "", err)
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = apperr.Wrap(apperr.ErrConfiguration, "config", "ensure directories", "", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logLevel() string {
	if c.logLevelFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.logLevelFlag)
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// ensureLogger builds the application logger once per invocation.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = apperr.Wrap(apperr.ErrConfiguration, "logging", "init", "", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// openHistory opens the run archive. The caller closes it.
func (c *commandContext) openHistory(ctx context.Context) (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(ctx, cfg.Paths.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	return store, nil
}

func (c *commandContext) hasher(override string) (digest.Hasher, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	alg := cfg.Algorithm()
	if strings.TrimSpace(override) != "" {
		parsed, err := digest.ParseAlgorithm(override)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrValidation, "flags", "hash", "", err)
		}
		alg = parsed
	}
	return digest.New(alg)
}

// requestFlags are shared by run and plan.
type requestFlags struct {
	source      string
	destination string
	catalogue   string
	structure   string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.source, "source", "s", "", "Flat export folder to restructure")
	cmd.Flags().StringVarP(&f.destination, "destination", "d", "", "Destination root for the SIP")
	cmd.Flags().StringVar(&f.catalogue, "catalogue", "", "Catalogue system: TMS, Koha or Calm (default from config)")
	cmd.Flags().StringVar(&f.structure, "structure", "", "Output layout: Standard or PAX (default from config)")
}

func (f *requestFlags) request(cfg *config.Config) (sip.Request, error) {
	req := sip.Request{Source: f.source, Destination: f.destination}
	for _, value := range []*string{&req.Source, &req.Destination} {
		if strings.TrimSpace(*value) == "" {
			continue
		}
		expanded, err := config.ExpandPath(*value)
		if err != nil {
			return req, apperr.Wrap(apperr.ErrValidation, "flags", "expand path", *value, err)
		}
		*value = expanded
	}

	if strings.TrimSpace(f.catalogue) != "" {
		cat, err := catalogue.ParseCatalogue(f.catalogue)
		if err != nil {
			return req, apperr.Wrap(apperr.ErrValidation, "flags", "catalogue", "", err)
		}
		req.Catalogue = cat
	} else if cat, ok := cfg.Catalogue(); ok {
		req.Catalogue = cat
	}

	req.Structure = cfg.Structure()
	if strings.TrimSpace(f.structure) != "" {
		structure, err := catalogue.ParseStructure(f.structure)
		if err != nil {
			return req, apperr.Wrap(apperr.ErrValidation, "flags", "structure", "", err)
		}
		req.Structure = structure
	}
	return req, req.Validate()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
