package main

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/spf13/cobra"

	"sipstructure/internal/apperr"
	"sipstructure/internal/catalogue"
	"sipstructure/internal/distribution"
	"sipstructure/internal/ledger"
)

// errLedgerDiscrepancies is returned by `ledger check` so scripts can branch
// on the exit status.
var errLedgerDiscrepancies = errors.New("ledger has unverified files")

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect ledger CSV files",
	}
	ledgerCmd.AddCommand(newLedgerCheckCommand(ctx))
	return ledgerCmd
}

func newLedgerCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "check <ledger.csv>",
		Short:       "Re-derive statuses from a ledger and list discrepancies",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := ledger.ReadCSV(args[0])
			if err != nil {
				return apperr.Wrap(apperr.ErrValidation, "ledger", "read", args[0], err)
			}
			var summary *ledger.Summary
			if s, err := ledger.ReadSummary(ledger.SummaryPath(args[0])); err == nil {
				summary = &s
			} else if !errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			if summary != nil {
				if structure, err := catalogue.ParseStructure(summary.Structure); err == nil {
					ledger.RestoreSkips(entries, unroutableIn(structure))
				}
			}
			report := ledger.Reconcile(entries)

			if ctx.jsonOutput() {
				payload := struct {
					Ledger  string          `json:"ledger"`
					Report  ledger.Report   `json:"report"`
					Summary *ledger.Summary `json:"summary,omitempty"`
				}{args[0], report, summary}
				if err := writeJSON(cmd, payload); err != nil {
					return err
				}
			} else {
				rep := newReport(cmd.OutOrStdout())
				rep.section("Ledger "+ledger.SafeName(args[0]))
				if summary != nil {
					rep.info("Run", summary.RunID)
					rep.info("Layout", summary.Catalogue+" / "+summary.Structure)
				}
				rep.info("Files", strconv.Itoa(report.Total))
				rep.status("Matched", statusOK, strconv.Itoa(report.Matched))
				if report.Skipped > 0 {
					rep.status("Skipped", statusWarn, strconv.Itoa(report.Skipped))
				}
				if report.OK() {
					rep.status("Integrity", statusOK, "every transferred file verified")
				} else {
					rep.status("Integrity", statusError,
						fmt.Sprintf("%d file(s) failed verification", len(report.Discrepancies)))
					fmt.Fprintln(rep.out)
					rep.table(discrepancyHeaders, discrepancyRows(report.Discrepancies))
				}
			}
			if !report.OK() {
				return fmt.Errorf("%w: %d of %d", errLedgerDiscrepancies, len(report.Discrepancies), report.Total)
			}
			return nil
		},
	}
}

// unroutableIn re-applies the routing rules of structure to ledger paths.
func unroutableIn(structure catalogue.Structure) func(string) (string, bool) {
	return func(rel string) (string, bool) {
		if err := distribution.Unroutable(structure, path.Base(rel)); err != nil {
			return err.Error(), true
		}
		return "", false
	}
}
