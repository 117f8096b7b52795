package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = map[statusKind]struct {
	label string
	color text.Color
}{
	statusInfo:  {"INFO", text.FgBlue},
	statusOK:    {"OK", text.FgGreen},
	statusWarn:  {"WARN", text.FgYellow},
	statusError: {"ERROR", text.FgRed},
}

const statusLabelWidth = 20

// report writes the human-readable summaries of the run, plan, compare,
// ledger and history commands. Colour is used only on terminals.
type report struct {
	out   io.Writer
	color bool
}

func newReport(out io.Writer) *report {
	return &report{out: out, color: shouldColorize(out)}
}

func (r *report) paint(c text.Color, s string) string {
	if !r.color {
		return s
	}
	return c.Sprint(s)
}

// status prints "  Label:   [KIND] message".
func (r *report) status(label string, kind statusKind, message string) {
	style := statusStyles[kind]
	tag := "[" + style.label + "]"
	if message != "" {
		tag += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", tag)
	fmt.Fprintln(r.out, r.paint(style.color, line))
}

func (r *report) info(label, message string) {
	r.status(label, statusInfo, message)
}

func (r *report) section(title string) {
	heading := "== " + strings.TrimSpace(title) + " =="
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.paint(text.FgBlue, heading))
	fmt.Fprintln(r.out, r.paint(text.FgBlue, strings.Repeat("-", len(heading))))
}

func (r *report) bullets(items []string) {
	for _, item := range items {
		fmt.Fprintf(r.out, "  - %s\n", item)
	}
}

func (r *report) table(headers []string, rows [][]string, rightAligned ...int) {
	fmt.Fprintln(r.out, renderTable(headers, rows, rightAligned...))
}

// renderTable draws a rounded table. Columns listed in rightAligned (zero
// based) are right aligned; short rows are padded.
func renderTable(headers []string, rows [][]string, rightAligned ...int) string {
	if len(headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, len(headers)))
	for _, row := range rows {
		tw.AppendRow(toRow(row, len(headers)))
	}
	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if slices.Contains(rightAligned, i) {
			configs[i].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// shortDigest trims a hex digest for table display.
func shortDigest(value string) string {
	const width = 12
	switch {
	case value == "":
		return "-"
	case len(value) <= width:
		return value
	}
	return value[:width] + "…"
}

// shortID trims a run id to the eight characters shown in logs.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
