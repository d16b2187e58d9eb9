package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/ticketflow/internal/core/styles"
	"github.com/colonyops/ticketflow/internal/core/ticket"
	"github.com/colonyops/ticketflow/pkg/iojson"
)

// StatusCmd implements the ticketflow status command.
type StatusCmd struct {
	flags *Flags

	id       string
	output   string
	cwd      string
	document bool
}

// NewStatusCmd creates a new status command.
func NewStatusCmd(flags *Flags) *StatusCmd {
	return &StatusCmd{flags: flags}
}

// Register adds the status command to the application.
func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "status",
		Usage:     "Show a ticket's state across document, PR, and board",
		UsageText: "ticketflow status --id <TicketId> [--document] [--output json]",
		Description: `Reads the ticket document, the open pull request for its branch, and
the project board item, and reports them side by side. Performs no
writes. A missing board item or stale project cache is reported, not
treated as an error.

Examples:
  ticketflow status --id ARCH-42
  ticketflow status --id ARCH-42 --document
  ticketflow status --id ARCH-42 -o json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "id",
				Usage:       "ticket identifier (e.g. ARCH-123)",
				Required:    true,
				Destination: &cmd.id,
			},
			&cli.BoolFlag{
				Name:        "document",
				Usage:       "render the full ticket document",
				Destination: &cmd.document,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output format (text, json)",
				Value:       OutputText,
				Destination: &cmd.output,
			},
			&cli.StringFlag{
				Name:        "cwd",
				Usage:       "repository root (defaults to the current directory)",
				Destination: &cmd.cwd,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	data := map[string]any{"id": cmd.id}

	id, err := ticket.ParseID(cmd.id)
	if err != nil {
		return jsonFailure(cmd.output, err, data)
	}

	if err := cmd.flags.Setup(cmd.cwd); err != nil {
		return jsonFailure(cmd.output, err, data)
	}

	report, err := cmd.flags.Service.Status(ctx, id)
	if err != nil {
		return jsonFailure(cmd.output, err, data)
	}

	w := c.Root().Writer
	if cmd.output == OutputJSON {
		return iojson.WriteWith(w, w, report)
	}

	fmt.Fprintf(w, "%s %s\n", styles.Bold.Render(string(report.ID)+":"), report.Title)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  document\t%s\n", report.DocPath)
	if report.Lane != "" {
		fmt.Fprintf(tw, "  lane\t%s\n", report.Lane)
	}
	fmt.Fprintf(tw, "  issue\t%s\n", report.Issue)
	fmt.Fprintf(tw, "  status\t%s\n", report.DocStatus.Display())
	if report.PR != nil {
		fmt.Fprintf(tw, "  pr\t#%d %s (draft: %v)\n", report.PR.Number, report.PR.Title, report.PR.Draft)
	} else {
		fmt.Fprintf(tw, "  pr\tnone\n")
	}
	switch {
	case report.BoardStatus != "":
		fmt.Fprintf(tw, "  board\t%s\n", report.BoardStatus)
	case report.BoardMessage != "":
		fmt.Fprintf(tw, "  board\t%s\n", styles.Muted.Render(report.BoardMessage))
	}
	if len(report.Checklist) > 0 {
		open := 0
		for _, item := range report.Checklist {
			if !item.Done {
				open++
			}
		}
		fmt.Fprintf(tw, "  checklist\t%d items (%d open)\n", len(report.Checklist), open)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !cmd.document {
		return nil
	}

	fmt.Fprintln(w)
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprint(w, report.Content)
		return nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	rendered, err := r.Render(report.Content)
	if err != nil {
		return err
	}
	fmt.Fprint(w, rendered)
	return nil
}
