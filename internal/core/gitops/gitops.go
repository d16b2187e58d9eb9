// Package gitops provides the git branch and worktree operations
// ticketflow needs.
package gitops

import (
	"context"
	"fmt"
	"strings"
)

// BootstrapPrefix marks automation placeholder commits. A branch whose
// only remote commit carries this subject prefix holds no real work and
// may be overwritten automatically.
const BootstrapPrefix = "bootstrap:"

// BootstrapSubject returns the commit subject for a bootstrap commit.
func BootstrapSubject(branch string) string {
	return BootstrapPrefix + " " + branch
}

// IsBootstrapSubject classifies a commit subject as bootstrap-only.
func IsBootstrapSubject(subject string) bool {
	return strings.HasPrefix(strings.TrimSpace(subject), BootstrapPrefix)
}

// RemoteState describes what exists on the remote for a branch.
type RemoteState struct {
	Exists bool
	// BootstrapOnly is true when the most recent remote commit is an
	// automation placeholder.
	BootstrapOnly bool
	// SHA is the remote head, as reported by ls-remote. Empty when the
	// branch does not exist.
	SHA string
}

// PushOptions controls a branch push.
type PushOptions struct {
	// ForceWithLease overwrites the remote ref, aborting if the remote
	// moved since it was last observed.
	ForceWithLease bool
	// SetUpstream sets the upstream tracking ref on first push.
	SetUpstream bool
}

// PreconditionError is returned when a mutation would destroy state the
// operator has not agreed to lose. It is fatal and never retried.
type PreconditionError struct {
	Op          string
	Detail      string
	Remediation string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s (re-run with %s to override)", e.Op, e.Detail, e.Remediation)
}

// Git defines the git operations needed by ticketflow.
type Git interface {
	// WorktreeExists reports whether a worktree is registered at path.
	WorktreeExists(ctx context.Context, path string) (bool, error)
	// CreateWorktree creates a worktree at path on a new branch from base.
	CreateWorktree(ctx context.Context, path, branch, base string) error
	// RemoveWorktree removes the worktree at path.
	RemoveWorktree(ctx context.Context, path string) error
	// CurrentBranch returns the branch checked out in dir.
	CurrentBranch(ctx context.Context, dir string) (string, error)
	// CommitAll stages everything in dir and commits with the given
	// subject, allowing an empty commit.
	CommitAll(ctx context.Context, dir, subject string) error
	// RemoteBranchState inspects the remote ref for branch and
	// classifies its most recent commit subject.
	RemoteBranchState(ctx context.Context, branch string) (RemoteState, error)
	// BranchHead returns the commit the local branch points at.
	BranchHead(ctx context.Context, dir, branch string) (string, error)
	// Push pushes branch to the remote.
	Push(ctx context.Context, dir, branch string, opts PushOptions) error
}

// PushUpToDate is the EnsurePushed outcome when the remote head already
// equals the local head and nothing is pushed.
const PushUpToDate = "up-to-date"

// EnsurePushed drives the first-push state machine for a branch:
//
//	remote head == local head -> no push
//	no remote branch          -> plain push
//	bootstrap-only remote     -> automatic lease-protected forced push
//	remote with real work     -> PreconditionError unless force
//
// The returned action describes what was done: "up-to-date", "pushed",
// "forced-bootstrap", or "forced".
func EnsurePushed(ctx context.Context, g Git, dir, branch string, force bool) (string, error) {
	state, err := g.RemoteBranchState(ctx, branch)
	if err != nil {
		return "", fmt.Errorf("inspect remote branch %s: %w", branch, err)
	}

	if state.Exists {
		head, err := g.BranchHead(ctx, dir, branch)
		if err != nil {
			return "", fmt.Errorf("resolve local head %s: %w", branch, err)
		}
		if head != "" && head == state.SHA {
			return PushUpToDate, nil
		}
	}

	switch {
	case !state.Exists:
		if err := g.Push(ctx, dir, branch, PushOptions{SetUpstream: true}); err != nil {
			return "", err
		}
		return "pushed", nil

	case state.BootstrapOnly:
		// The only remote commit is our own placeholder; replacing it is
		// safe. The lease still aborts if the remote moved underneath us.
		if err := g.Push(ctx, dir, branch, PushOptions{ForceWithLease: true, SetUpstream: true}); err != nil {
			return "", err
		}
		return "forced-bootstrap", nil

	case force:
		if err := g.Push(ctx, dir, branch, PushOptions{ForceWithLease: true}); err != nil {
			return "", err
		}
		return "forced", nil

	default:
		return "", &PreconditionError{
			Op:          "push " + branch,
			Detail:      "remote branch already has real work",
			Remediation: "--force",
		}
	}
}
