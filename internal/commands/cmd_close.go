package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/ticketflow/internal/flow"
)

// CloseCmd implements the ticketflow close command.
type CloseCmd struct {
	flags *Flags
	opts  stageOpts
}

// NewCloseCmd creates a new close command.
func NewCloseCmd(flags *Flags) *CloseCmd {
	return &CloseCmd{flags: flags}
}

// Register adds the close command to the application.
func (cmd *CloseCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "close",
		Usage:     "Close out a merged ticket",
		UsageText: "ticketflow close --id <TicketId> [--yes]",
		Description: `Marks the ticket document "archived" and moves it into the dated
archive directory, then syncs the project board. Archiving ends the
document's active lifecycle permanently; a destination collision aborts
rather than overwriting.

Examples:
  ticketflow close --id ARCH-42
  ticketflow close --id ARCH-42 --yes`,
		Flags:  stageFlags(&cmd.opts, false),
		Action: cmd.run,
	})

	return app
}

func (cmd *CloseCmd) run(ctx context.Context, c *cli.Command) error {
	return runStage(ctx, c, cmd.flags, flow.StageClose, &cmd.opts)
}
