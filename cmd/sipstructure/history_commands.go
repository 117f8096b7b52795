package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sipstructure/internal/apperr"
	"sipstructure/internal/history"
	"sipstructure/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List archived runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, historyRunsJSON(runs))
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(runs))
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its unverified files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, history.ErrNotFound) {
					return apperr.Wrap(apperr.ErrNotFound, "history", "show", "", err)
				}
				return err
			}
			entries, err := store.RunEntries(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, struct {
					Run     historyRunJSON `json:"run"`
					Entries []entryJSON    `json:"entries"`
				}{toHistoryRunJSON(run), toEntriesJSON(entries)})
			}
			printHistoryRun(newReport(cmd.OutOrStdout()), run, entries, showAll)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "List every file, not only discrepancies")
	return cmd
}

type historyRunJSON struct {
	ID            string  `json:"id"`
	Source        string  `json:"source"`
	Destination   string  `json:"destination"`
	Catalogue     string  `json:"catalogue"`
	Structure     string  `json:"structure"`
	HashAlgorithm string  `json:"hash_algorithm"`
	Outcome       string  `json:"outcome"`
	TotalFiles    int     `json:"total_files"`
	Matched       int     `json:"matched"`
	Skipped       int     `json:"skipped"`
	Failed        int     `json:"failed"`
	BytesCopied   int64   `json:"bytes_copied"`
	LedgerPath    string  `json:"ledger_path"`
	Error         string  `json:"error,omitempty"`
	StartedAt     string  `json:"started_at"`
	FinishedAt    string  `json:"finished_at"`
	Seconds       float64 `json:"duration_seconds"`
}

type entryJSON struct {
	RelativePath      string `json:"relative_path"`
	SourceDigest      string `json:"source_digest"`
	DestinationDigest string `json:"destination_digest"`
	DestinationPath   string `json:"destination_path,omitempty"`
	Status            string `json:"status"`
}

func toHistoryRunJSON(r history.Run) historyRunJSON {
	return historyRunJSON{
		ID:            r.ID,
		Source:        r.Source,
		Destination:   r.Destination,
		Catalogue:     r.Catalogue,
		Structure:     r.Structure,
		HashAlgorithm: r.HashAlgorithm,
		Outcome:       string(r.Outcome),
		TotalFiles:    r.TotalFiles,
		Matched:       r.Matched,
		Skipped:       r.Skipped,
		Failed:        r.Failed,
		BytesCopied:   r.BytesCopied,
		LedgerPath:    r.LedgerPath,
		Error:         r.ErrorMessage,
		StartedAt:     r.StartedAt.Format(time.RFC3339),
		FinishedAt:    r.FinishedAt.Format(time.RFC3339),
		Seconds:       r.Duration().Seconds(),
	}
}

func historyRunsJSON(runs []history.Run) []historyRunJSON {
	out := make([]historyRunJSON, 0, len(runs))
	for _, r := range runs {
		out = append(out, toHistoryRunJSON(r))
	}
	return out
}

func toEntriesJSON(entries []ledger.Entry) []entryJSON {
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryJSON{
			RelativePath:      e.RelativePath,
			SourceDigest:      e.SourceDigest,
			DestinationDigest: e.DestinationDigest,
			DestinationPath:   e.DestinationPath,
			Status:            string(e.Status()),
		})
	}
	return out
}

func renderHistoryTable(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Catalogue + "/" + r.Structure,
			strconv.Itoa(r.TotalFiles),
			strconv.Itoa(r.Matched),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
			string(r.Outcome),
			r.Duration().Round(time.Second).String(),
		})
	}
	return renderTable(
		[]string{"ID", "Started", "Layout", "Files", "Matched", "Skipped", "Failed", "Outcome", "Took"},
		rows,
		3, 4, 5, 6, 8,
	)
}

func outcomeKind(outcome history.Outcome) statusKind {
	switch outcome {
	case history.OutcomeVerified:
		return statusOK
	case history.OutcomeDiscrepancies:
		return statusError
	default:
		return statusWarn
	}
}

func printHistoryRun(rep *report, r history.Run, entries []ledger.Entry, showAll bool) {
	out := rep.out
	rep.section("Run "+r.ID)
	rep.status("Outcome", outcomeKind(r.Outcome), string(r.Outcome))
	rep.info("Source", r.Source)
	rep.info("Destination", r.Destination)
	rep.info("Layout", r.Catalogue+" / "+r.Structure)
	rep.info("Digest", r.HashAlgorithm)
	rep.info("Started", r.StartedAt.Local().Format(time.RFC1123))
	rep.info("Took", r.Duration().Round(time.Millisecond).String())
	rep.info("Transferred", humanize.Bytes(uint64(max(r.BytesCopied, 0))))
	rep.status("Files", statusInfo,
		fmt.Sprintf("%d total, %d matched, %d skipped, %d failed", r.TotalFiles, r.Matched, r.Skipped, r.Failed))
	if r.ErrorMessage != "" {
		rep.status("Error", statusError, r.ErrorMessage)
	}
	if r.LedgerPath != "" {
		rep.info("Ledger", r.LedgerPath)
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		if !showAll && !e.Failed() {
			continue
		}
		rows = append(rows, []string{e.RelativePath, string(e.Status()), shortDigest(e.SourceDigest), shortDigest(e.DestinationDigest)})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out)
		rep.table(discrepancyHeaders, rows)
	}
}
