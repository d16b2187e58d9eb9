package gitops

import (
	"context"
	"fmt"
	"strings"

	"github.com/colonyops/ticketflow/pkg/executil"
)

// Executor implements Git using the git command-line tool.
type Executor struct {
	gitPath string
	remote  string
	root    string
	exec    executil.Executor
}

// NewExecutor creates a git executor. Commands run in root unless a
// more specific directory is given.
func NewExecutor(gitPath, remote, root string, exec executil.Executor) *Executor {
	return &Executor{gitPath: gitPath, remote: remote, root: root, exec: exec}
}

func (e *Executor) WorktreeExists(ctx context.Context, path string) (bool, error) {
	out, err := e.exec.RunDir(ctx, e.root, e.gitPath, "worktree", "list", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("worktree list: %w", err)
	}

	for _, line := range strings.Split(string(out), "\n") {
		if rest, ok := strings.CutPrefix(line, "worktree "); ok && strings.TrimSpace(rest) == path {
			return true, nil
		}
	}
	return false, nil
}

func (e *Executor) CreateWorktree(ctx context.Context, path, branch, base string) error {
	if _, err := e.exec.RunDir(ctx, e.root, e.gitPath, "worktree", "add", "-b", branch, path, base); err != nil {
		return fmt.Errorf("worktree add %s on %s: %w", path, branch, err)
	}
	return nil
}

func (e *Executor) RemoveWorktree(ctx context.Context, path string) error {
	if _, err := e.exec.RunDir(ctx, e.root, e.gitPath, "worktree", "remove", path); err != nil {
		return fmt.Errorf("worktree remove %s: %w", path, err)
	}
	return nil
}

func (e *Executor) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "branch", "--show-current")
	if err != nil {
		return "", fmt.Errorf("git branch: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (e *Executor) CommitAll(ctx context.Context, dir, subject string) error {
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "add", "-A"); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "commit", "--allow-empty", "-m", subject); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}

// RemoteBranchState checks the remote ref for branch. The remote head
// is usually already present locally (we pushed it); the branch is only
// fetched when the commit object turns out to be missing, so planning a
// converged branch stays read-only.
func (e *Executor) RemoteBranchState(ctx context.Context, branch string) (RemoteState, error) {
	out, err := e.exec.RunDir(ctx, e.root, e.gitPath, "ls-remote", "--heads", e.remote, branch)
	if err != nil {
		return RemoteState{}, fmt.Errorf("ls-remote %s: %w", branch, err)
	}

	line := strings.TrimSpace(string(out))
	if line == "" {
		return RemoteState{}, nil
	}
	sha := strings.Fields(line)[0]

	subjectOut, err := e.exec.RunDir(ctx, e.root, e.gitPath, "log", "-1", "--format=%s", sha)
	if err != nil {
		if _, ferr := e.exec.RunDir(ctx, e.root, e.gitPath, "fetch", e.remote, branch); ferr != nil {
			return RemoteState{}, fmt.Errorf("fetch %s: %w", branch, ferr)
		}
		subjectOut, err = e.exec.RunDir(ctx, e.root, e.gitPath, "log", "-1", "--format=%s", sha)
		if err != nil {
			return RemoteState{}, fmt.Errorf("read commit subject %s: %w", sha, err)
		}
	}

	return RemoteState{
		Exists:        true,
		BootstrapOnly: IsBootstrapSubject(string(subjectOut)),
		SHA:           sha,
	}, nil
}

func (e *Executor) BranchHead(ctx context.Context, dir, branch string) (string, error) {
	if dir == "" {
		dir = e.root
	}
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "rev-parse", "refs/heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("rev-parse %s: %w", branch, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (e *Executor) Push(ctx context.Context, dir, branch string, opts PushOptions) error {
	if dir == "" {
		dir = e.root
	}

	args := []string{"push"}
	if opts.ForceWithLease {
		args = append(args, "--force-with-lease")
	}
	if opts.SetUpstream {
		args = append(args, "-u")
	}
	args = append(args, e.remote, branch)

	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, args...); err != nil {
		return fmt.Errorf("push %s: %w", branch, err)
	}
	return nil
}
