package executil

import (
	"context"
	"strings"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Dir  string
	Cmd  string
	Args []string
}

// RecordingExecutor captures commands for testing.
//
// Outputs and Errors are keyed by the command line joined with spaces
// ("git push origin feature/ARCH-1-x"). Lookup walks from the full command
// line down to the bare command name, so a stub for "gh pr list" answers
// every `gh pr list ...` invocation while "git" alone catches everything
// git. A single run mixes many distinct git and gh calls, which is why
// keying on the command name alone is not enough.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	Outputs map[string][]byte
	Errors  map[string]error
}

// Run records the command and returns configured output/error.
func (e *RecordingExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return e.record("", cmd, args...)
}

// RunDir records the command with directory and returns configured output/error.
func (e *RecordingExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	return e.record(dir, cmd, args...)
}

func (e *RecordingExecutor) record(dir, cmd string, args ...string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Commands = append(e.Commands, RecordedCommand{Dir: dir, Cmd: cmd, Args: args})

	parts := append([]string{cmd}, args...)
	for i := len(parts); i > 0; i-- {
		key := strings.Join(parts[:i], " ")
		out, okOut := e.Outputs[key]
		err, okErr := e.Errors[key]
		if okOut || okErr {
			return out, err
		}
	}

	return nil, nil
}

// Calls returns the recorded command lines, one string per invocation.
func (e *RecordingExecutor) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	lines := make([]string, len(e.Commands))
	for i, c := range e.Commands {
		lines[i] = strings.Join(append([]string{c.Cmd}, c.Args...), " ")
	}
	return lines
}

// Reset clears recorded commands.
func (e *RecordingExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = nil
}
