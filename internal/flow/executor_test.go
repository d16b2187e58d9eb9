package flow

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/ticketflow/internal/core/docstore"
	"github.com/colonyops/ticketflow/internal/core/gitops"
	"github.com/colonyops/ticketflow/internal/core/ticket"
	"github.com/colonyops/ticketflow/internal/core/tracker"
)

func stepByName(t *testing.T, res *Result, name string) StepResult {
	t.Helper()
	for _, s := range res.Steps {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no step named %q in %v", name, res.Steps)
	return StepResult{}
}

func TestExecuteBranch(t *testing.T) {
	ctx := context.Background()

	t.Run("first run mutates everything", func(t *testing.T) {
		h := newHarness(t, true)
		path := h.writeDoc(t, "ARCH-42-add-retry-budget.md", ticketDoc)
		h.boardItem("ARCH-42", "Ticketed")

		res, err := h.service.Run(ctx, StageBranch, "ARCH-42", Options{}, true)
		require.NoError(t, err)
		assert.True(t, res.Executed)
		assert.True(t, res.Changed())

		assert.True(t, stepByName(t, res, "document").Changed)
		assert.True(t, stepByName(t, res, "worktree").Changed)
		assert.True(t, stepByName(t, res, "bootstrap").Changed)
		assert.True(t, stepByName(t, res, "push").Changed)
		assert.Equal(t, "pushed", stepByName(t, res, "push").Message)
		assert.True(t, stepByName(t, res, "project").Changed)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		doc := ticket.ParseDocument(string(data))
		assert.Equal(t, ticket.StatusBranched, doc.Status)
		assert.Equal(t, 17, doc.Issue)

		assert.Equal(t, []string{h.cfg.WorktreePath("ARCH-42-add-retry-budget")}, h.git.created)
		assert.Equal(t, "Branched", h.tracker.item.Status.String())
	})

	t.Run("second run converges to zero writes", func(t *testing.T) {
		h := newHarness(t, true)
		h.writeDoc(t, "ARCH-42-add-retry-budget.md", ticketDoc)
		h.boardItem("ARCH-42", "Ticketed")

		_, err := h.service.Run(ctx, StageBranch, "ARCH-42", Options{}, true)
		require.NoError(t, err)

		res, err := h.service.Run(ctx, StageBranch, "ARCH-42", Options{}, true)
		require.NoError(t, err)

		assert.False(t, res.Changed(), "a converged run must report zero mutations")
		assert.False(t, stepByName(t, res, "document").Changed)
		assert.False(t, stepByName(t, res, "worktree").Changed)
		assert.False(t, stepByName(t, res, "push").Changed)
		assert.Equal(t, gitops.PushUpToDate, stepByName(t, res, "push").Message)
		assert.False(t, stepByName(t, res, "project").Changed)
		assert.Len(t, h.git.created, 1, "worktree is created once")
		assert.Len(t, h.git.pushes, 1, "nothing is pushed when the remote head matches")
	})

	t.Run("blocked push refuses before any write", func(t *testing.T) {
		h := newHarness(t, true)
		path := h.writeDoc(t, "ARCH-42-add-retry-budget.md", ticketDoc)
		h.git.remoteExists = true

		_, err := h.service.Run(ctx, StageBranch, "ARCH-42", Options{}, true)
		var perr *gitops.PreconditionError
		require.ErrorAs(t, err, &perr)

		data, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, ticketDoc, string(data), "document must be untouched")
		assert.Empty(t, h.git.created)
	})
}

func TestExecutePR(t *testing.T) {
	ctx := context.Background()

	t.Run("create then converge", func(t *testing.T) {
		h := newHarness(t, true)
		h.writeDoc(t, "ARCH-42-add-retry-budget.md", ticketDoc)
		h.boardItem("ARCH-42", "Branched")

		res, err := h.service.Run(ctx, StagePR, "ARCH-42", Options{}, true)
		require.NoError(t, err)
		assert.Equal(t, PRActionCreate, res.PRAction)
		assert.Equal(t, 101, res.PRNumber)
		assert.Equal(t, "https://github.com/org/repo/pull/101", res.PRURL)
		assert.Equal(t, "PR Open", h.tracker.item.Status.String())

		second, err := h.service.Run(ctx, StagePR, "ARCH-42", Options{}, true)
		require.NoError(t, err)
		assert.Equal(t, PRActionUnchanged, second.PRAction)
		assert.Equal(t, 101, second.PRNumber)
		assert.False(t, second.Changed())
	})

	t.Run("diverged PR is updated in place", func(t *testing.T) {
		h := newHarness(t, true)
		h.writeDoc(t, "ARCH-42-add-retry-budget.md", ticketDoc)
		h.boardItem("ARCH-42", "Branched")

		_, err := h.service.Run(ctx, StagePR, "ARCH-42", Options{}, true)
		require.NoError(t, err)

		h.tracker.pr.Title = "stale title"
		h.tracker.pr.Body = "stale body"

		res, err := h.service.Run(ctx, StagePR, "ARCH-42", Options{}, true)
		require.NoError(t, err)
		assert.Equal(t, PRActionUpdate, res.PRAction)
		assert.True(t, stepByName(t, res, "pr").Changed)
		assert.Equal(t, "ARCH-42: add retry budget", h.tracker.pr.Title)
	})

	t.Run("draft flag is reconciled", func(t *testing.T) {
		h := newHarness(t, true)
		h.writeDoc(t, "ARCH-42-add-retry-budget.md", ticketDoc)
		h.boardItem("ARCH-42", "Branched")

		_, err := h.service.Run(ctx, StagePR, "ARCH-42", Options{Draft: true}, true)
		require.NoError(t, err)
		assert.True(t, h.tracker.pr.Draft)

		res, err := h.service.Run(ctx, StagePR, "ARCH-42", Options{}, true)
		require.NoError(t, err)
		assert.Equal(t, PRActionUpdate, res.PRAction)
		assert.True(t, stepByName(t, res, "draft").Changed)
		assert.False(t, h.tracker.pr.Draft)
	})
}

func TestExecuteClose(t *testing.T) {
	ctx := context.Background()

	h := newHarness(t, true)
	path := h.writeDoc(t, "ARCH-42-add-retry-budget.md", ticketDoc)
	h.boardItem("ARCH-42", "Merged")

	res, err := h.service.Run(ctx, StageClose, "ARCH-42", Options{}, true)
	require.NoError(t, err)

	archive := stepByName(t, res, "archive")
	assert.True(t, archive.Changed)
	assert.Equal(t, h.docs.ArchivePath(path, 2026), archive.Message)
	assert.NoFileExists(t, path)
	assert.FileExists(t, archive.Message)

	data, err := os.ReadFile(archive.Message)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusArchived, ticket.ParseDocument(string(data)).Status)
	assert.Equal(t, "Archived", h.tracker.item.Status.String())

	t.Run("archived ticket resolves to nothing afterwards", func(t *testing.T) {
		_, err := h.service.Run(ctx, StageClose, "ARCH-42", Options{}, true)
		require.ErrorIs(t, err, docstore.ErrNotFound)
	})
}

func TestProjectSoftFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing cache degrades to a warning", func(t *testing.T) {
		h := newHarness(t, false)
		h.writeDoc(t, "ARCH-42-add-retry-budget.md", ticketDoc)

		res, err := h.service.Run(ctx, StageBranch, "ARCH-42", Options{}, true)
		require.NoError(t, err, "board problems must not abort the run")
		require.NotEmpty(t, res.Warnings)
		assert.Contains(t, res.Warnings[0], "project status not synced")
		assert.False(t, stepByName(t, res, "project").Changed)
	})

	t.Run("missing board item degrades to a warning", func(t *testing.T) {
		h := newHarness(t, true)
		h.writeDoc(t, "ARCH-42-add-retry-budget.md", ticketDoc)

		res, err := h.service.Run(ctx, StageBranch, "ARCH-42", Options{}, true)
		require.NoError(t, err)
		require.NotEmpty(t, res.Warnings)
		assert.Contains(t, res.Warnings[0], "no project item")
	})

	t.Run("backward board status is left alone without allow-backward", func(t *testing.T) {
		h := newHarness(t, true)
		h.writeDoc(t, "ARCH-42-add-retry-budget.md", ticketDoc)
		h.boardItem("ARCH-42", "Merged")

		res, err := h.service.Run(ctx, StageBranch, "ARCH-42", Options{}, true)
		require.NoError(t, err)
		assert.Equal(t, "Merged", h.tracker.item.Status.String())
		require.NotEmpty(t, res.Warnings)
		assert.Contains(t, res.Warnings[0], "--allow-backward")

		forced, err := h.service.Run(ctx, StageBranch, "ARCH-42", Options{AllowBackward: true}, true)
		require.NoError(t, err)
		assert.Empty(t, forced.Warnings)
		assert.Equal(t, "Branched", h.tracker.item.Status.String())
	})
}

func TestStatusReport(t *testing.T) {
	ctx := context.Background()

	h := newHarness(t, true)
	h.writeDoc(t, "ARCH-42-add-retry-budget.md", ticketDoc)
	h.boardItem("ARCH-42", "Branched")
	h.tracker.pr = &tracker.PullRequest{
		Number:     55,
		Title:      "ARCH-42: add retry budget",
		State:      "OPEN",
		HeadBranch: "ticket/ARCH-42-add-retry-budget",
	}

	report, err := h.service.Status(ctx, "ARCH-42")
	require.NoError(t, err)
	assert.Equal(t, "Add retry budget", report.Title)
	assert.Equal(t, "platform", report.Lane)
	assert.Equal(t, "17", report.Issue)
	assert.Equal(t, ticket.StatusTicketed, report.DocStatus)
	require.NotNil(t, report.PR)
	assert.Equal(t, 55, report.PR.Number)
	assert.Equal(t, "Branched", report.BoardStatus)
	assert.Len(t, report.Checklist, 2)
}
