package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sipstructure/internal/logging"
	"sipstructure/internal/sip"
)

type compareOutput struct {
	*sip.Comparison
	HashLogs []string `json:"hash_logs,omitempty"`
	Report   string   `json:"report,omitempty"`
}

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var hashFlag string
	var outDir string
	var noReport bool
	var differencesOnly bool

	cmd := &cobra.Command{
		Use:   "compare <folder-a> <folder-b>",
		Short: "Fingerprint two folders and report duplicates, unique files and mismatches",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
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
			comparison, err := sip.Compare(cmd.Context(), hasher, logging.NewComponentLogger(logger, "compare"), args[0], args[1])
			if err != nil {
				return err
			}

			result := compareOutput{Comparison: comparison}
			if !noReport {
				dir := outDir
				if dir == "" {
					dir = cfg.Paths.LedgerDir
				}
				files, err := sip.WriteComparison(dir, comparison, time.Now().Format("02-01-2006"))
				if err != nil {
					return fmt.Errorf("write comparison report: %w", err)
				}
				result.HashLogs = []string{files.HashLogA, files.HashLogB}
				result.Report = files.Report
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			printComparison(newReport(cmd.OutOrStdout()), result, differencesOnly)
			return nil
		},
	}

	cmd.Flags().StringVar(&hashFlag, "hash", "", "Digest algorithm: md5, sha256 or blake3 (default from config)")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Folder for the hash logs and report (default: ledger_dir)")
	cmd.Flags().BoolVar(&noReport, "no-report", false, "Do not write CSV files")
	cmd.Flags().BoolVar(&differencesOnly, "differences", false, "Only list paths that are not identical in both folders")
	return cmd
}

func printComparison(rep *report, r compareOutput, differencesOnly bool) {
	out := rep.out
	rep.section("Comparison")
	counts := r.Counts()
	rep.info("Paths", strconv.Itoa(len(r.Rows)))
	rep.status("Duplicates", statusOK, strconv.Itoa(counts[sip.StatusDuplicate]))
	unique := len(r.Rows) - counts[sip.StatusDuplicate] - counts[sip.StatusMismatch]
	rep.status("Unique", statusWarn, strconv.Itoa(unique))
	mismatchKind := statusOK
	if counts[sip.StatusMismatch] > 0 {
		mismatchKind = statusError
	}
	rep.status("Mismatches", mismatchKind, strconv.Itoa(counts[sip.StatusMismatch]))

	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		if differencesOnly && !row.Differs() {
			continue
		}
		rows = append(rows, []string{row.RelativePath, row.Status})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out)
		rep.table([]string{"File", "Status"}, rows)
	}
	if r.Report != "" {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Report: %s\n", r.Report)
	}
}
