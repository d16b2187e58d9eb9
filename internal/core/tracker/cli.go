package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/colonyops/ticketflow/internal/core/config"
	"github.com/colonyops/ticketflow/pkg/executil"
)

// pageSize is the fixed page size for project item scans.
const pageSize = 50

// CLI implements Tracker using the gh command-line tool.
type CLI struct {
	ghPath string
	dir    string
	exec   executil.Executor
}

// NewCLI creates a gh-backed tracker. Commands run in dir so gh resolves
// the repository from the working tree.
func NewCLI(ghPath, dir string, exec executil.Executor) *CLI {
	return &CLI{ghPath: ghPath, dir: dir, exec: exec}
}

// ghLabel is the label shape gh returns in --json output.
type ghLabel struct {
	Name string `json:"name"`
}

func labelNames(labels []ghLabel) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return names
}

func (c *CLI) Issue(ctx context.Context, number int) (Issue, error) {
	out, err := c.exec.RunDir(ctx, c.dir, c.ghPath,
		"issue", "view", strconv.Itoa(number),
		"--json", "number,title,body,state,labels")
	if err != nil {
		return Issue{}, fmt.Errorf("view issue %d: %w", number, err)
	}

	var raw struct {
		Number int       `json:"number"`
		Title  string    `json:"title"`
		Body   string    `json:"body"`
		State  string    `json:"state"`
		Labels []ghLabel `json:"labels"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return Issue{}, fmt.Errorf("decode issue %d: %w", number, err)
	}

	return Issue{
		Number: raw.Number,
		Title:  raw.Title,
		Body:   raw.Body,
		State:  raw.State,
		Labels: labelNames(raw.Labels),
	}, nil
}

// ghPR is the pull request shape gh returns in --json output.
type ghPR struct {
	Number      int       `json:"number"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	IsDraft     bool      `json:"isDraft"`
	State       string    `json:"state"`
	Labels      []ghLabel `json:"labels"`
	HeadRefName string    `json:"headRefName"`
}

func (p ghPR) toPullRequest() PullRequest {
	return PullRequest{
		Number:     p.Number,
		URL:        p.URL,
		Title:      p.Title,
		Body:       p.Body,
		Draft:      p.IsDraft,
		State:      p.State,
		Labels:     labelNames(p.Labels),
		HeadBranch: p.HeadRefName,
	}
}

func (c *CLI) FindPRByBranch(ctx context.Context, branch string) (*PullRequest, error) {
	out, err := c.exec.RunDir(ctx, c.dir, c.ghPath,
		"pr", "list", "--head", branch, "--state", "open",
		"--json", "number,url,title,body,isDraft,state,labels,headRefName")
	if err != nil {
		return nil, fmt.Errorf("list PRs for %s: %w", branch, err)
	}

	var prs []ghPR
	if err := json.Unmarshal(out, &prs); err != nil {
		return nil, fmt.Errorf("decode PR list for %s: %w", branch, err)
	}
	if len(prs) == 0 {
		return nil, nil
	}

	pr := prs[0].toPullRequest()
	return &pr, nil
}

// stageBody writes body to a temp file and returns its path with a
// cleanup func. The cleanup runs on every exit path of the caller.
func stageBody(body string) (string, func(), error) {
	f, err := os.CreateTemp("", "ticketflow-pr-body-*.md")
	if err != nil {
		return "", nil, fmt.Errorf("stage PR body: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.WriteString(body); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write PR body: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close PR body: %w", err)
	}
	return path, cleanup, nil
}

func (c *CLI) CreatePR(ctx context.Context, spec PRSpec) (PullRequest, error) {
	bodyFile, cleanup, err := stageBody(spec.Body)
	if err != nil {
		return PullRequest{}, err
	}
	defer cleanup()

	args := []string{
		"pr", "create",
		"--head", spec.Branch,
		"--base", spec.Base,
		"--title", spec.Title,
		"--body-file", bodyFile,
	}
	if spec.Draft {
		args = append(args, "--draft")
	}
	for _, label := range spec.Labels {
		args = append(args, "--label", label)
	}

	if _, err := c.exec.RunDir(ctx, c.dir, c.ghPath, args...); err != nil {
		return PullRequest{}, fmt.Errorf("create PR for %s: %w", spec.Branch, err)
	}

	created, err := c.FindPRByBranch(ctx, spec.Branch)
	if err != nil {
		return PullRequest{}, err
	}
	if created == nil {
		return PullRequest{}, fmt.Errorf("create PR for %s: created PR not found", spec.Branch)
	}
	return *created, nil
}

func (c *CLI) UpdatePR(ctx context.Context, number int, spec PRSpec) error {
	bodyFile, cleanup, err := stageBody(spec.Body)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = c.exec.RunDir(ctx, c.dir, c.ghPath,
		"pr", "edit", strconv.Itoa(number),
		"--title", spec.Title,
		"--body-file", bodyFile)
	if err != nil {
		return fmt.Errorf("update PR #%d: %w", number, err)
	}
	return nil
}

func (c *CLI) SyncLabels(ctx context.Context, number int, desired []string, mode config.LabelMode) (bool, error) {
	out, err := c.exec.RunDir(ctx, c.dir, c.ghPath,
		"pr", "view", strconv.Itoa(number), "--json", "labels")
	if err != nil {
		return false, fmt.Errorf("read labels of PR #%d: %w", number, err)
	}

	var raw struct {
		Labels []ghLabel `json:"labels"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return false, fmt.Errorf("decode labels of PR #%d: %w", number, err)
	}
	current := labelNames(raw.Labels)

	var add, remove []string
	for _, l := range desired {
		if !slices.Contains(current, l) {
			add = append(add, l)
		}
	}
	if mode == config.LabelModeReplace {
		for _, l := range current {
			if !slices.Contains(desired, l) {
				remove = append(remove, l)
			}
		}
	}

	if len(add) == 0 && len(remove) == 0 {
		return false, nil
	}

	args := []string{"pr", "edit", strconv.Itoa(number)}
	if len(add) > 0 {
		args = append(args, "--add-label", strings.Join(add, ","))
	}
	if len(remove) > 0 {
		args = append(args, "--remove-label", strings.Join(remove, ","))
	}
	if _, err := c.exec.RunDir(ctx, c.dir, c.ghPath, args...); err != nil {
		return false, fmt.Errorf("sync labels of PR #%d: %w", number, err)
	}
	return true, nil
}

func (c *CLI) SetDraft(ctx context.Context, number int, draft bool) error {
	args := []string{"pr", "ready", strconv.Itoa(number)}
	if draft {
		args = append(args, "--undo")
	}
	if _, err := c.exec.RunDir(ctx, c.dir, c.ghPath, args...); err != nil {
		return fmt.Errorf("set draft=%v on PR #%d: %w", draft, number, err)
	}
	return nil
}
