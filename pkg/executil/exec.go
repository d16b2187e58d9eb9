// Package executil provides subprocess execution utilities.
package executil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const maxStderrLen = 500

// Executor runs external commands. All git and gh invocations go through
// this interface so core logic can be tested without spawning processes.
type Executor interface {
	// Run executes a command and returns its stdout.
	Run(ctx context.Context, cmd string, args ...string) ([]byte, error)
	// RunDir executes a command in a specific directory and returns its stdout.
	RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error)
}

// RealExecutor calls actual commands.
//
// Stdout and stderr are captured separately: callers decode stdout (often
// JSON), while stderr is folded into the returned error, capped at 500 bytes
// so tool noise cannot flood logs. The original *exec.ExitError is preserved
// via wrapping so callers can inspect exit codes with errors.As.
type RealExecutor struct{}

// Run executes a command and returns its stdout.
func (e *RealExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return e.RunDir(ctx, "", cmd, args...)
}

// RunDir executes a command in a specific directory and returns its stdout.
func (e *RealExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd, args...)
	if dir != "" {
		c.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderrLen {
			msg = msg[:maxStderrLen]
		}
		if msg != "" {
			return stdout.Bytes(), fmt.Errorf("exec %s: %s: %w", cmd, msg, err)
		}
		return stdout.Bytes(), fmt.Errorf("exec %s: %w", cmd, err)
	}

	return stdout.Bytes(), nil
}
