package config

const (
	defaultStateDir         = "~/.local/share/sipstructure"
	defaultStructure        = "Standard"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
)

// Default returns a Config populated with repository defaults. The log and
// ledger directories, digest algorithm and log level are left empty so state
// dir and environment fallbacks can apply during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Run: Run{
			DefaultStructure: defaultStructure,
			WriteSummary:     true,
			RecordHistory:    true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
