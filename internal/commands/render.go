package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/colonyops/ticketflow/internal/core/styles"
	"github.com/colonyops/ticketflow/internal/flow"
	"github.com/colonyops/ticketflow/pkg/iojson"
)

// renderResult writes a stage result in the requested output format.
func renderResult(w io.Writer, res *flow.Result, output string) error {
	if output == OutputJSON {
		return iojson.WriteWith(w, w, res)
	}

	plan := res.Plan

	mode := "dry-run"
	if res.Executed {
		mode = "executed"
	}
	fmt.Fprintf(w, "%s %s (%s)\n", styles.Bold.Render(string(plan.Stage)), plan.ID, mode)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if plan.Branch != "" {
		fmt.Fprintf(tw, "  branch\t%s\n", plan.Branch)
	}
	if plan.Stage == flow.StageBranch {
		fmt.Fprintf(tw, "  worktree\t%s (create: %v)\n", plan.WorktreePath, plan.CreateWorktree)
		fmt.Fprintf(tw, "  push\t%s\n", renderPush(plan.Push))
	}
	if plan.PR != flow.PRActionNone {
		line := string(plan.PR)
		if plan.PRNumber > 0 {
			line = fmt.Sprintf("%s #%d", plan.PR, plan.PRNumber)
		}
		fmt.Fprintf(tw, "  pr\t%s\t%q\n", line, plan.Title)
	}
	if plan.ArchiveTo != "" {
		fmt.Fprintf(tw, "  archive\t%s\n", plan.ArchiveTo)
	}

	fmt.Fprintf(tw, "  document\t%s (Issue: %s, Status: %s)\n", renderChange(plan.DocChange), plan.IssueValue, plan.ProjectStatus.To)
	fmt.Fprintf(tw, "  status\t%s -> %s\n", plan.ProjectStatus.From.Display(), plan.ProjectStatus.To.Display())

	if len(plan.Checklist) > 0 {
		open := 0
		for _, item := range plan.Checklist {
			if !item.Done {
				open++
			}
		}
		fmt.Fprintf(tw, "  checklist\t%d items (%d open)\n", len(plan.Checklist), open)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if res.Executed {
		fmt.Fprintln(w)
		stepw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, step := range res.Steps {
			fmt.Fprintf(stepw, "  %s\t%s\t%s\n", step.Name, styles.Changed(step.Changed), step.Message)
		}
		if err := stepw.Flush(); err != nil {
			return err
		}
	}

	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "%s %s\n", styles.Warning.Render("warning:"), warning)
	}

	if res.PRURL != "" {
		fmt.Fprintf(w, "\n%s\n", styles.Muted.Render(res.PRURL))
	}
	return nil
}

func renderPush(action flow.PushAction) string {
	switch action {
	case flow.PushActionBlocked:
		return styles.Error.Render(string(action) + " (needs --force)")
	case flow.PushActionForceBootstrap, flow.PushActionForce:
		return styles.Warning.Render(string(action))
	default:
		return string(action)
	}
}

func renderChange(changed bool) string {
	if changed {
		return "update"
	}
	return "unchanged"
}
