package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sipstructure/internal/config"
	"sipstructure/internal/fileutil"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the sipstructure configuration file",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				switch _, err := os.Stat(target); {
				case err == nil:
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := fileutil.EnsureDir(filepath.Dir(target)); err != nil {
				return err
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set default_catalogue under [run] to skip --catalogue on every run.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the file (default: the user config path)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

// initTarget expands an explicit --path or falls back to the default config
// location.
func initTarget(path string) (string, error) {
	if path = strings.TrimSpace(path); path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	def, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return def, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration, create its directories and print the effective settings",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = *ctx.configFlag
			}
			cfg, resolved, exists, err := config.Load(strings.TrimSpace(path))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			rep := newReport(cmd.OutOrStdout())
			fmt.Fprintf(rep.out, "Config path: %s\n", resolved)
			if !exists {
				fmt.Fprintln(rep.out, "Config file did not exist; defaults were used")
			}
			rep.table([]string{"Setting", "Value"}, settingRows(cfg))
			fmt.Fprintln(rep.out, "Configuration valid")
			return nil
		},
	}
}

func settingRows(cfg *config.Config) [][]string {
	catalogueLabel := "(none, --catalogue required)"
	if cat, ok := cfg.Catalogue(); ok {
		catalogueLabel = string(cat)
	}
	return [][]string{
		{"Default catalogue", catalogueLabel},
		{"Default structure", string(cfg.Structure())},
		{"Hash algorithm", string(cfg.Algorithm())},
		{"Ledger dir", cfg.Paths.LedgerDir},
		{"Run log dir", cfg.RunLogDir()},
		{"History", cfg.Paths.HistoryDB},
		{"Record history", yesNo(cfg.Run.RecordHistory)},
		{"Write summary", yesNo(cfg.Run.WriteSummary)},
		{"Log retention", fmt.Sprintf("%d days", cfg.Logging.RetentionDays)},
		{"Log", cfg.LogFile()},
	}
}
