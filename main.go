package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/ticketflow/internal/commands"
	"github.com/colonyops/ticketflow/internal/core/config"
	"github.com/colonyops/ticketflow/internal/core/docstore"
	"github.com/colonyops/ticketflow/internal/core/gitops"
	"github.com/colonyops/ticketflow/internal/core/ticket"
	"github.com/colonyops/ticketflow/pkg/logutils"
)

// Exit codes. Validation failures are caller errors, precondition
// failures mean the plan was refused as unsafe.
const (
	exitOK           = 0
	exitGeneric      = 1
	exitValidation   = 2
	exitPrecondition = 3
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var logCloser func()

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "ticketflow",
		Usage:     "Keep tickets, pull requests, and the project board in sync",
		UsageText: "ticketflow [global options] command [command options]",
		Description: `Ticketflow drives a ticket through its lifecycle: it cuts the working
branch and worktree, opens the pull request from the ticket document,
and closes the ticket out, keeping the document, the GitHub issue's PR,
and the project board status converged at every step.

Every command plans first. The default is a dry run that prints the
plan; pass --yes to apply it. Re-running a command that has nothing
left to do performs zero writes.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("TICKETFLOW_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to the XDG state dir)",
				Sources:     cli.EnvVars("TICKETFLOW_LOG_FILE"),
				Destination: &flags.LogFile,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logFile := flags.LogFile
			if logFile == "" {
				logFile = commands.DefaultLogFile()
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewBranchCmd(flags).Register(app)
	app = commands.NewPRCmd(flags).Register(app)
	app = commands.NewCloseCmd(flags).Register(app)
	app = commands.NewStatusCmd(flags).Register(app)

	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		// JSON-mode failures already wrote a structured payload.
		var reported *commands.ReportedError
		if !errors.As(runErr, &reported) {
			fmt.Fprintln(os.Stderr, runErr.Error())
		}
		os.Exit(exitCode(runErr))
	}

	os.Exit(exitOK)
}

// exitCode maps an error to the process exit code. Typed errors from
// the core packages carry the distinction between bad input and a
// refused plan; anything else is a generic failure.
func exitCode(err error) int {
	var (
		validation   *ticket.ValidationError
		ambiguous    *docstore.AmbiguousTicketError
		confErr      *config.Error
		precondition *gitops.PreconditionError
	)

	switch {
	case errors.As(err, &validation),
		errors.As(err, &ambiguous),
		errors.As(err, &confErr):
		return exitValidation
	case errors.As(err, &precondition):
		return exitPrecondition
	default:
		return exitGeneric
	}
}
