package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/ticketflow/internal/core/ticket"
	"github.com/colonyops/ticketflow/internal/flow"
	"github.com/colonyops/ticketflow/pkg/iojson"
)

// ReportedError wraps a failure that was already rendered in the
// command's own output format. main maps it to an exit code through
// Unwrap but must not print it a second time.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }
func (e *ReportedError) Unwrap() error { return e.Err }

// jsonFailure renders a failure for the requested output format. JSON
// mode emits a structured payload on stderr so scripted callers never
// have to parse prose.
func jsonFailure(output string, err error, data map[string]any) error {
	if output != OutputJSON {
		return err
	}
	_ = iojson.WriteError(err.Error(), data)
	return &ReportedError{Err: err}
}

// Output modes.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// stageOpts binds the flag set shared by every lifecycle stage command.
type stageOpts struct {
	id            string
	branch        string
	title         string
	draft         bool
	dryRun        bool
	yes           bool
	force         bool
	allowBackward bool
	output        string
	cwd           string
}

// stageFlags builds the shared stage flag set. withPR adds the flags
// that only make sense when a pull request is involved.
func stageFlags(o *stageOpts, withPR bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "ticket identifier (e.g. ARCH-123)",
			Required:    true,
			Destination: &o.id,
		},
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "preview the plan without side effects",
			Value:       true,
			Destination: &o.dryRun,
		},
		&cli.BoolFlag{
			Name:        "yes",
			Aliases:     []string{"y"},
			Usage:       "execute without confirmation (disables dry-run)",
			Destination: &o.yes,
		},
		&cli.BoolFlag{
			Name:        "force",
			Usage:       "allow overwriting a remote branch that has real work",
			Destination: &o.force,
		},
		&cli.BoolFlag{
			Name:        "allow-backward",
			Usage:       "permit a backward project status move (manual correction)",
			Destination: &o.allowBackward,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "output format (text, json)",
			Value:       OutputText,
			Destination: &o.output,
		},
		&cli.StringFlag{
			Name:        "cwd",
			Usage:       "repository root (defaults to the current directory)",
			Destination: &o.cwd,
		},
	}

	if withPR {
		flags = append(flags,
			&cli.StringFlag{
				Name:        "branch",
				Usage:       "branch name override (must carry the ticket id)",
				Destination: &o.branch,
			},
			&cli.StringFlag{
				Name:        "title",
				Usage:       "pull request title override",
				Destination: &o.title,
			},
			&cli.BoolFlag{
				Name:        "draft",
				Usage:       "open the pull request as a draft",
				Destination: &o.draft,
			},
		)
	}

	return flags
}

// runStage is the shared action body for branch/pr/close: validate the
// id, wire the service, plan, decide whether to execute, and render.
func runStage(ctx context.Context, c *cli.Command, flags *Flags, stage flow.Stage, o *stageOpts) error {
	data := map[string]any{"stage": string(stage), "id": o.id}

	id, err := ticket.ParseID(o.id)
	if err != nil {
		return jsonFailure(o.output, err, data)
	}

	if err := flags.Setup(o.cwd); err != nil {
		return jsonFailure(o.output, err, data)
	}

	execute, err := shouldExecute(c, stage, id, o)
	if err != nil {
		return jsonFailure(o.output, err, data)
	}

	res, err := flags.Service.Run(ctx, stage, id, flow.Options{
		Branch:        o.branch,
		Title:         o.title,
		Draft:         o.draft,
		Force:         o.force,
		AllowBackward: o.allowBackward,
	}, execute)
	if err != nil {
		return jsonFailure(o.output, err, data)
	}

	return renderResult(c.Root().Writer, res, o.output)
}

// shouldExecute decides between dry-run and execution. --yes executes
// immediately. An explicit --dry-run=false asks for confirmation on a
// terminal and refuses anywhere else, so scripts must say --yes.
func shouldExecute(c *cli.Command, stage flow.Stage, id ticket.ID, o *stageOpts) (bool, error) {
	if o.yes {
		return true, nil
	}
	if !c.IsSet("dry-run") || o.dryRun {
		return false, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("refusing to execute without --yes (stdin is not a terminal)")
	}

	proceed := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Execute %s for %s?", stage, id)).
			Value(&proceed),
	))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return proceed, nil
}
