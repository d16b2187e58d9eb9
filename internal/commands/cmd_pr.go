package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/ticketflow/internal/flow"
)

// PRCmd implements the ticketflow pr command.
type PRCmd struct {
	flags *Flags
	opts  stageOpts
}

// NewPRCmd creates a new pr command.
func NewPRCmd(flags *Flags) *PRCmd {
	return &PRCmd{flags: flags}
}

// Register adds the pr command to the application.
func (cmd *PRCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "pr",
		Usage:     "Open or update the pull request for a ticket",
		UsageText: "ticketflow pr --id <TicketId> [--title <title>] [--draft] [--yes]",
		Description: `Builds the pull request title and body deterministically from the
ticket document (narrative sections plus acceptance checklist), opens
the PR or updates the existing one, ensures the document's issue and
status fields, and syncs the project board.

Re-running with no remote changes performs zero writes and reports the
PR action as "unchanged".

Examples:
  ticketflow pr --id ARCH-42
  ticketflow pr --id ARCH-42 --yes
  ticketflow pr --id ARCH-42 --draft --title "ARCH-42: add retry budget" --yes`,
		Flags:  stageFlags(&cmd.opts, true),
		Action: cmd.run,
	})

	return app
}

func (cmd *PRCmd) run(ctx context.Context, c *cli.Command) error {
	return runStage(ctx, c, cmd.flags, flow.StagePR, &cmd.opts)
}
