package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/ticketflow/internal/flow"
)

// BranchCmd implements the ticketflow branch command.
type BranchCmd struct {
	flags *Flags
	opts  stageOpts
}

// NewBranchCmd creates a new branch command.
func NewBranchCmd(flags *Flags) *BranchCmd {
	return &BranchCmd{flags: flags}
}

// Register adds the branch command to the application.
func (cmd *BranchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "branch",
		Usage:     "Create the working branch and worktree for a ticket",
		UsageText: "ticketflow branch --id <TicketId> [--branch <name>] [--yes]",
		Description: `Creates a worktree on a fresh branch derived from the ticket document,
pushes a bootstrap commit, advances the document status to "branched",
and syncs the project board.

The run is a dry-run by default; pass --yes to execute.

A remote branch whose only commit is a bootstrap placeholder is replaced
automatically with a lease-protected forced push. A remote branch with
real work aborts unless --force is given.

Examples:
  ticketflow branch --id ARCH-42
  ticketflow branch --id ARCH-42 --yes
  ticketflow branch --id ARCH-42 --branch ticket/ARCH-42-retry-budget --yes`,
		Flags:  stageFlags(&cmd.opts, true),
		Action: cmd.run,
	})

	return app
}

func (cmd *BranchCmd) run(ctx context.Context, c *cli.Command) error {
	return runStage(ctx, c, cmd.flags, flow.StageBranch, &cmd.opts)
}
