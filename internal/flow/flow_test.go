package flow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/ticketflow/internal/core/config"
	"github.com/colonyops/ticketflow/internal/core/docstore"
	"github.com/colonyops/ticketflow/internal/core/gitops"
	"github.com/colonyops/ticketflow/internal/core/tracker"
)

// fakeGit is an in-memory gitops.Git whose remote state evolves the way
// a real remote would: a commit moves the local head, a push copies it
// to the remote, and the branch is bootstrap-only while the last commit
// was a bootstrap placeholder.
type fakeGit struct {
	worktrees     map[string]bool
	remoteExists  bool
	bootstrapOnly bool
	localSHA      string
	remoteSHA     string
	commits       int

	created []string
	pushes  []gitops.PushOptions
}

func newFakeGit() *fakeGit {
	return &fakeGit{worktrees: map[string]bool{}}
}

func (g *fakeGit) WorktreeExists(ctx context.Context, path string) (bool, error) {
	return g.worktrees[path], nil
}

func (g *fakeGit) CreateWorktree(ctx context.Context, path, branch, base string) error {
	g.worktrees[path] = true
	g.created = append(g.created, path)
	return nil
}

func (g *fakeGit) RemoveWorktree(ctx context.Context, path string) error {
	delete(g.worktrees, path)
	return nil
}

func (g *fakeGit) CurrentBranch(ctx context.Context, dir string) (string, error) {
	return "main", nil
}

func (g *fakeGit) CommitAll(ctx context.Context, dir, subject string) error {
	g.commits++
	g.localSHA = fmt.Sprintf("c%d", g.commits)
	g.bootstrapOnly = gitops.IsBootstrapSubject(subject)
	return nil
}

func (g *fakeGit) RemoteBranchState(ctx context.Context, branch string) (gitops.RemoteState, error) {
	return gitops.RemoteState{
		Exists:        g.remoteExists,
		BootstrapOnly: g.remoteExists && g.bootstrapOnly,
		SHA:           g.remoteSHA,
	}, nil
}

func (g *fakeGit) BranchHead(ctx context.Context, dir, branch string) (string, error) {
	return g.localSHA, nil
}

func (g *fakeGit) Push(ctx context.Context, dir, branch string, opts gitops.PushOptions) error {
	g.remoteExists = true
	g.remoteSHA = g.localSHA
	g.pushes = append(g.pushes, opts)
	return nil
}

// fakeTracker is an in-memory tracker.Tracker holding at most one PR
// and one project item.
type fakeTracker struct {
	pr   *tracker.PullRequest
	item *tracker.ProjectItem

	optionNames map[string]string
	setOptions  []string
}

func (f *fakeTracker) Issue(ctx context.Context, number int) (tracker.Issue, error) {
	return tracker.Issue{Number: number, State: "OPEN"}, nil
}

func (f *fakeTracker) FindPRByBranch(ctx context.Context, branch string) (*tracker.PullRequest, error) {
	if f.pr == nil || f.pr.HeadBranch != branch {
		return nil, nil
	}
	pr := *f.pr
	return &pr, nil
}

func (f *fakeTracker) CreatePR(ctx context.Context, spec tracker.PRSpec) (tracker.PullRequest, error) {
	f.pr = &tracker.PullRequest{
		Number:     101,
		URL:        "https://github.com/org/repo/pull/101",
		Title:      spec.Title,
		Body:       spec.Body,
		Draft:      spec.Draft,
		State:      "OPEN",
		Labels:     append([]string(nil), spec.Labels...),
		HeadBranch: spec.Branch,
	}
	return *f.pr, nil
}

func (f *fakeTracker) UpdatePR(ctx context.Context, number int, spec tracker.PRSpec) error {
	f.pr.Title = spec.Title
	f.pr.Body = spec.Body
	return nil
}

func (f *fakeTracker) SyncLabels(ctx context.Context, number int, desired []string, mode config.LabelMode) (bool, error) {
	changed := false
	for _, l := range desired {
		if !contains(f.pr.Labels, l) {
			f.pr.Labels = append(f.pr.Labels, l)
			changed = true
		}
	}
	if mode == config.LabelModeReplace {
		var kept []string
		for _, l := range f.pr.Labels {
			if contains(desired, l) {
				kept = append(kept, l)
			} else {
				changed = true
			}
		}
		f.pr.Labels = kept
	}
	return changed, nil
}

func (f *fakeTracker) SetDraft(ctx context.Context, number int, draft bool) error {
	f.pr.Draft = draft
	return nil
}

func (f *fakeTracker) FindProjectItem(ctx context.Context, q tracker.ProjectQuery, value string) (*tracker.ProjectItem, error) {
	if f.item == nil || f.item.Ticket.String() != value {
		return nil, nil
	}
	item := *f.item
	return &item, nil
}

func (f *fakeTracker) SetProjectItemOption(ctx context.Context, projectID, itemID, fieldID, optionID string) error {
	f.setOptions = append(f.setOptions, optionID)
	if name, ok := f.optionNames[optionID]; ok {
		f.item.Status = tracker.FieldValue{Kind: tracker.ValueSingleSelect, Option: name}
	}
	return nil
}

func contains(list []string, want string) bool {
	for _, l := range list {
		if l == want {
			return true
		}
	}
	return false
}

const testCache = `{
	"version": 1,
	"project_id": "PVT_1",
	"fields": [
		{"id": "F1", "name": "Status", "options": [
			{"id": "O1", "name": "Ticketed"},
			{"id": "O2", "name": "Branched"},
			{"id": "O3", "name": "PR Open"},
			{"id": "O4", "name": "In Review"},
			{"id": "O5", "name": "Merged"},
			{"id": "O6", "name": "Archived"}
		]},
		{"id": "F2", "name": "Ticket"}
	]
}`

var testOptionNames = map[string]string{
	"O1": "Ticketed", "O2": "Branched", "O3": "PR Open",
	"O4": "In Review", "O5": "Merged", "O6": "Archived",
}

type harness struct {
	cfg     *config.Config
	docs    *docstore.Store
	git     *fakeGit
	tracker *fakeTracker
	service *Service
}

// newHarness builds a real config, docstore, and project cache in a
// temp dir around the in-memory git and tracker fakes.
func newHarness(t *testing.T, withCache bool) *harness {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, config.FileName), []byte("documents_dir: tickets\n"), 0o644))

	cfg, err := config.Load(root)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(cfg.DocumentsPath(), 0o755))
	if withCache {
		require.NoError(t, os.MkdirAll(filepath.Dir(cfg.ProjectCachePath()), 0o755))
		require.NoError(t, os.WriteFile(cfg.ProjectCachePath(), []byte(testCache), 0o644))
	}

	git := newFakeGit()
	tr := &fakeTracker{optionNames: testOptionNames}
	now := func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }

	return &harness{
		cfg:     cfg,
		docs:    docstore.New(cfg.DocumentsPath()),
		git:     git,
		tracker: tr,
		service: NewService(cfg, git, tr, zerolog.Nop(), now),
	}
}

func (h *harness) writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.cfg.DocumentsPath(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (h *harness) boardItem(id, status string) {
	h.tracker.item = &tracker.ProjectItem{
		ID:     "I1",
		Ticket: tracker.FieldValue{Kind: tracker.ValueText, Text: id},
		Status: tracker.FieldValue{Kind: tracker.ValueSingleSelect, Option: status},
	}
}

const ticketDoc = `# ARCH-42: Add retry budget

Lane: platform
Issue: 17
Status: ticketed

## Purpose

Bound retries so a flapping dependency cannot melt the cluster.

## Problem

Clients retry forever.

## Proposal

Token bucket per endpoint.

## Acceptance

- [ ] budget is configurable
- [ ] exhaustion surfaces a typed error
`
