package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sipstructure/internal/config"
	"sipstructure/internal/ledger"
	"sipstructure/internal/logging"
	"sipstructure/internal/opex"
	"sipstructure/internal/sip"
)

type runOutput struct {
	RunID             string        `json:"run_id"`
	Source            string        `json:"source"`
	Destination       string        `json:"destination"`
	Catalogue         string        `json:"catalogue"`
	Structure         string        `json:"structure"`
	Verified          bool          `json:"verified"`
	Ledger            string        `json:"ledger"`
	Summary           string        `json:"summary,omitempty"`
	RunLog            string        `json:"run_log,omitempty"`
	BytesCopied       uint64        `json:"bytes_copied"`
	DescriptorFolders []string      `json:"descriptor_folders,omitempty"`
	Report            ledger.Report `json:"report"`
	MissingMetadata   []string      `json:"missing_metadata,omitempty"`
	Error             string        `json:"error,omitempty"`
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags requestFlags
	var hashFlag string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Copy a flat export into a verified SIP layout",
		Long: "Hash every source file, check that the catalogue's OPEX metadata is present, copy each\n" +
			"file into its destination folder, hash the copy and reconcile both digests in a ledger CSV.\n" +
			"Missing metadata aborts the run before anything is copied.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req, err := flags.request(cfg)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			hasher, err := ctx.hasher(hashFlag)
			if err != nil {
				return err
			}
			pruneRunLogs(logger, cfg)

			opts := sip.Options{
				Hasher:       hasher,
				Logger:       logging.NewComponentLogger(logger, "runner"),
				LedgerDir:    cfg.Paths.LedgerDir,
				LockDir:      cfg.LockDir(),
				RunLogDir:    cfg.RunLogDir(),
				WriteSummary: cfg.Run.WriteSummary,
			}
			if cfg.Run.RecordHistory {
				store, err := ctx.openHistory(cmd.Context())
				if err != nil {
					logging.WarnWithContext(logger, "run history unavailable", "history_unavailable",
						logging.Error(err),
						logging.String(logging.FieldImpact, "run will not be archived"),
					)
				} else {
					defer store.Close()
					opts.History = store
				}
			}
			runner, err := sip.NewRunner(opts)
			if err != nil {
				return err
			}

			result, runErr := runner.Run(cmd.Context(), req)
			out := buildRunOutput(req, result, runErr)
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, out); err != nil {
					return err
				}
				return runErr
			}
			printRunOutput(newReport(cmd.OutOrStdout()), out)
			return runErr
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&hashFlag, "hash", "", "Digest algorithm: md5, sha256 or blake3 (default from config)")
	return cmd
}

func pruneRunLogs(logger *slog.Logger, cfg *config.Config) {
	removed := logging.PruneRunLogs(logger, cfg.RunLogDir(), cfg.Logging.RetentionDays, time.Now())
	if removed > 0 {
		logger.Info("pruned old run logs",
			logging.String(logging.FieldEventType, "log_retention"),
			logging.Int("removed", removed),
		)
	}
}

func buildRunOutput(req sip.Request, result *sip.Result, runErr error) runOutput {
	out := runOutput{
		Source:      req.Source,
		Destination: req.Destination,
		Catalogue:   string(req.Catalogue),
		Structure:   string(req.Structure),
	}
	if result != nil {
		out.RunID = result.RunID
		out.Verified = runErr == nil && result.OK()
		out.Ledger = result.LedgerPath
		out.Summary = result.SummaryPath
		out.RunLog = result.RunLogPath
		out.BytesCopied = result.BytesCopied
		out.DescriptorFolders = result.DescriptorFolders
		out.Report = result.Report
	}
	var missing *opex.MissingMetadataError
	if errors.As(runErr, &missing) {
		out.MissingMetadata = missing.Prefixes
	}
	if runErr != nil {
		out.Error = runErr.Error()
	}
	return out
}

func printRunOutput(rep *report, r runOutput) {
	out := rep.out
	if len(r.MissingMetadata) > 0 {
		rep.section("Missing OPEX metadata")
		fmt.Fprintf(out, "%d reference(s) have no matching .opex file; nothing was copied:\n", len(r.MissingMetadata))
		rep.bullets(r.MissingMetadata)
		return
	}
	if r.RunID == "" {
		return
	}

	rep.section("Run "+shortID(r.RunID))
	rep.info("Layout", r.Catalogue+" / "+r.Structure)
	rep.info("Files", strconv.Itoa(r.Report.Total))
	rep.info("Transferred", humanize.Bytes(r.BytesCopied))
	rep.status("Matched", statusOK, strconv.Itoa(r.Report.Matched))
	if r.Report.Skipped > 0 {
		rep.status("Skipped", statusWarn, strconv.Itoa(r.Report.Skipped))
	}
	if r.Error != "" {
		rep.status("Run", statusError, r.Error)
	}
	if len(r.Report.Discrepancies) == 0 {
		rep.status("Integrity", statusOK, "every transferred file verified")
	} else {
		rep.status("Integrity", statusError,
			fmt.Sprintf("%d file(s) failed verification", len(r.Report.Discrepancies)))
		fmt.Fprintln(out)
		rep.table(discrepancyHeaders, discrepancyRows(r.Report.Discrepancies))
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Ledger: %s\n", r.Ledger)
	if r.Summary != "" {
		fmt.Fprintf(out, "Summary: %s\n", r.Summary)
	}
	if r.RunLog != "" {
		fmt.Fprintf(out, "Run log: %s\n", r.RunLog)
	}
}

var discrepancyHeaders = []string{"File", "Status", "Source", "Destination"}

func discrepancyRows(items []ledger.Discrepancy) [][]string {
	rows := make([][]string, 0, len(items))
	for _, d := range items {
		rows = append(rows, []string{d.RelativePath, string(d.Status), shortDigest(d.SourceDigest), shortDigest(d.DestinationDigest)})
	}
	return rows
}
