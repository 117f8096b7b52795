package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/disiqueira/gotree/v3"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sipstructure/internal/sip"
)

type planFile struct {
	Source         string `json:"source"`
	Reference      string `json:"reference"`
	Target         string `json:"target,omitempty"`
	Representation string `json:"representation,omitempty"`
	Family         string `json:"family,omitempty"`
	SkipReason     string `json:"skip_reason,omitempty"`
	ConflictWith   string `json:"conflict_with,omitempty"`
}

type planOutput struct {
	Source          string     `json:"source"`
	Destination     string     `json:"destination"`
	Catalogue       string     `json:"catalogue"`
	Structure       string     `json:"structure"`
	TotalBytes      uint64     `json:"total_bytes"`
	Files           []planFile `json:"files"`
	MissingMetadata []string   `json:"missing_metadata,omitempty"`
	Malformed       []string   `json:"malformed_descriptors,omitempty"`
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the destination layout without copying anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req, err := flags.request(cfg)
			if err != nil {
				return err
			}
			plan, err := sip.Plan(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := buildPlanOutput(plan)
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, out); err != nil {
					return err
				}
				return plan.MetadataErr
			}
			printPlan(newReport(cmd.OutOrStdout()), plan, out)
			return plan.MetadataErr
		},
	}

	flags.register(cmd)
	return cmd
}

func buildPlanOutput(plan *sip.PlanResult) planOutput {
	out := planOutput{
		Source:          plan.Request.Source,
		Destination:     plan.Request.Destination,
		Catalogue:       string(plan.Request.Catalogue),
		Structure:       string(plan.Request.Structure),
		TotalBytes:      plan.TotalBytes,
		MissingMetadata: plan.MissingPrefixes(),
	}
	for _, m := range plan.Malformed {
		out.Malformed = append(out.Malformed, m.Error())
	}
	for _, f := range plan.Files {
		out.Files = append(out.Files, planFile{
			Source:         f.File.RelativePath,
			Reference:      f.Reference.Prefix,
			Target:         f.Target,
			Representation: string(f.Destination.Representation),
			Family:         string(f.Destination.Family),
			SkipReason:     f.SkipReason,
			ConflictWith:   f.Conflict,
		})
	}
	return out
}

// renderPlanTree draws the destination folders relative to the destination
// root, the same way a directory listing would show them after the run.
func renderPlanTree(root string, plan *sip.PlanResult) string {
	tree := gotree.New(root)
	dirs := make(map[string]gotree.Tree)
	var getDir func(string) gotree.Tree
	getDir = func(dir string) gotree.Tree {
		if dir == "." {
			return tree
		}
		if node, ok := dirs[dir]; ok {
			return node
		}
		node := getDir(filepath.Dir(dir)).Add(filepath.Base(dir))
		dirs[dir] = node
		return node
	}

	var targets []string
	for _, f := range plan.Files {
		if f.Target == "" {
			continue
		}
		if rel, err := filepath.Rel(root, f.Target); err == nil {
			targets = append(targets, rel)
		}
	}
	sort.Strings(targets)
	for _, rel := range targets {
		getDir(filepath.Dir(rel)).Add(filepath.Base(rel))
	}
	return tree.Print()
}

func printPlan(rep *report, plan *sip.PlanResult, summary planOutput) {
	out := rep.out
	rep.section("Plan")
	rep.info("Layout", summary.Catalogue+" / "+summary.Structure)
	rep.info("Files", fmt.Sprintf("%d (%s)", len(plan.Files), humanize.Bytes(plan.TotalBytes)))
	rep.status("To copy", statusOK, fmt.Sprint(plan.Transferable()))
	fmt.Fprintln(out)
	fmt.Fprint(out, renderPlanTree(plan.Request.Destination, plan))

	var skipped [][]string
	for _, f := range plan.Files {
		if f.Skipped() {
			skipped = append(skipped, []string{f.File.RelativePath, f.SkipReason})
		}
	}
	if len(skipped) > 0 {
		rep.section("Skipped")
		rep.table([]string{"File", "Reason"}, skipped)
	}
	if conflicts := plan.Conflicts(); len(conflicts) > 0 {
		rows := make([][]string, 0, len(conflicts))
		for _, f := range conflicts {
			rows = append(rows, []string{f.File.RelativePath, f.Conflict})
		}
		rep.section("Destination conflicts")
		fmt.Fprintf(out, "%d file(s) share a target with an earlier file; a run would not copy them and would report a missing destination hash:\n", len(rows))
		rep.table([]string{"File", "Target claimed by"}, rows)
	}
	if len(summary.Malformed) > 0 {
		rep.section("Malformed range descriptors")
		rep.bullets(summary.Malformed)
	}
	if len(summary.MissingMetadata) > 0 {
		rep.section("Missing OPEX metadata")
		fmt.Fprintf(out, "%d reference(s) have no matching .opex file; a run would abort:\n", len(summary.MissingMetadata))
		rep.bullets(summary.MissingMetadata)
	}
}
