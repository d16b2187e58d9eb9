package commands

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/colonyops/ticketflow/internal/core/config"
	"github.com/colonyops/ticketflow/internal/core/gitops"
	"github.com/colonyops/ticketflow/internal/core/tracker"
	"github.com/colonyops/ticketflow/internal/flow"
	"github.com/colonyops/ticketflow/pkg/executil"
)

// Flags holds global flag values and the per-invocation service wiring.
type Flags struct {
	LogLevel string
	LogFile  string

	// Config and Service are built by Setup once the working directory
	// is known.
	Config  *config.Config
	Service *flow.Service
}

// Setup loads configuration from cwd (or the current directory) and
// wires the real adapters. Called by each command action because --cwd
// is a per-command flag.
func (f *Flags) Setup(cwd string) error {
	root := cwd
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	f.Config = cfg

	exec := &executil.RealExecutor{}
	git := gitops.NewExecutor(cfg.GitPath, cfg.Remote, root, exec)
	gh := tracker.NewCLI(cfg.GHPath, root, exec)

	f.Service = flow.NewService(cfg, git, gh, log.Logger, nil)
	return nil
}

// DefaultLogFile returns the default log file path using XDG_STATE_HOME.
func DefaultLogFile() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, _ := os.UserHomeDir()
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "ticketflow", "ticketflow.log")
}
