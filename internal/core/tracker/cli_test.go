package tracker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/ticketflow/internal/core/config"
	"github.com/colonyops/ticketflow/pkg/executil"
)

func newTestCLI(rec *executil.RecordingExecutor) *CLI {
	return NewCLI("gh", "/repo", rec)
}

func TestIssue(t *testing.T) {
	rec := &executil.RecordingExecutor{Outputs: map[string][]byte{
		"gh issue view 17": []byte(`{
			"number": 17,
			"title": "Add retry budget",
			"body": "Bound retries.",
			"state": "OPEN",
			"labels": [{"name": "ticket"}, {"name": "platform"}]
		}`),
	}}

	issue, err := newTestCLI(rec).Issue(context.Background(), 17)
	require.NoError(t, err)
	assert.Equal(t, Issue{
		Number: 17,
		Title:  "Add retry budget",
		Body:   "Bound retries.",
		State:  "OPEN",
		Labels: []string{"ticket", "platform"},
	}, issue)
}

func TestFindPRByBranch(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		rec := &executil.RecordingExecutor{Outputs: map[string][]byte{
			"gh pr list": []byte(`[{
				"number": 31,
				"url": "https://github.com/org/repo/pull/31",
				"title": "ARCH-42: add retry budget",
				"body": "Closes #17",
				"isDraft": true,
				"state": "OPEN",
				"labels": [{"name": "ticket"}],
				"headRefName": "ticket/ARCH-42-add-retry-budget"
			}]`),
		}}

		pr, err := newTestCLI(rec).FindPRByBranch(context.Background(), "ticket/ARCH-42-add-retry-budget")
		require.NoError(t, err)
		require.NotNil(t, pr)
		assert.Equal(t, 31, pr.Number)
		assert.True(t, pr.Draft)
		assert.Equal(t, "ticket/ARCH-42-add-retry-budget", pr.HeadBranch)

		require.Len(t, rec.Commands, 1)
		assert.Contains(t, rec.Calls()[0], "--head ticket/ARCH-42-add-retry-budget")
		assert.Contains(t, rec.Calls()[0], "--state open")
	})

	t.Run("none open", func(t *testing.T) {
		rec := &executil.RecordingExecutor{Outputs: map[string][]byte{
			"gh pr list": []byte(`[]`),
		}}

		pr, err := newTestCLI(rec).FindPRByBranch(context.Background(), "ticket/ARCH-1-x")
		require.NoError(t, err)
		assert.Nil(t, pr)
	})
}

func TestCreatePR(t *testing.T) {
	rec := &executil.RecordingExecutor{Outputs: map[string][]byte{
		"gh pr list": []byte(`[{"number": 31, "url": "u", "title": "ARCH-42: add retry budget", "headRefName": "ticket/ARCH-42-x"}]`),
	}}

	pr, err := newTestCLI(rec).CreatePR(context.Background(), PRSpec{
		Branch: "ticket/ARCH-42-x",
		Base:   "main",
		Title:  "ARCH-42: add retry budget",
		Body:   "Closes #17",
		Draft:  true,
		Labels: []string{"ticket", "platform"},
	})
	require.NoError(t, err)
	assert.Equal(t, 31, pr.Number)

	require.Len(t, rec.Commands, 2, "create then re-read")
	create := rec.Calls()[0]
	assert.Contains(t, create, "pr create")
	assert.Contains(t, create, "--head ticket/ARCH-42-x")
	assert.Contains(t, create, "--base main")
	assert.Contains(t, create, "--draft")
	assert.Contains(t, create, "--label ticket")
	assert.Contains(t, create, "--label platform")
	assert.Contains(t, create, "--body-file")
}

func TestSyncLabels(t *testing.T) {
	withLabels := func(names ...string) []byte {
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = `{"name": "` + n + `"}`
		}
		return []byte(`{"labels": [` + strings.Join(parts, ",") + `]}`)
	}

	t.Run("merge adds missing only", func(t *testing.T) {
		rec := &executil.RecordingExecutor{Outputs: map[string][]byte{
			"gh pr view 31": withLabels("extra", "ticket"),
		}}

		changed, err := newTestCLI(rec).SyncLabels(context.Background(), 31, []string{"ticket", "platform"}, config.LabelModeMerge)
		require.NoError(t, err)
		assert.True(t, changed)

		require.Len(t, rec.Commands, 2)
		edit := rec.Calls()[1]
		assert.Contains(t, edit, "--add-label platform")
		assert.NotContains(t, edit, "--remove-label")
	})

	t.Run("replace removes extras", func(t *testing.T) {
		rec := &executil.RecordingExecutor{Outputs: map[string][]byte{
			"gh pr view 31": withLabels("extra", "ticket"),
		}}

		changed, err := newTestCLI(rec).SyncLabels(context.Background(), 31, []string{"ticket", "platform"}, config.LabelModeReplace)
		require.NoError(t, err)
		assert.True(t, changed)

		edit := rec.Calls()[1]
		assert.Contains(t, edit, "--add-label platform")
		assert.Contains(t, edit, "--remove-label extra")
	})

	t.Run("converged set performs no write", func(t *testing.T) {
		rec := &executil.RecordingExecutor{Outputs: map[string][]byte{
			"gh pr view 31": withLabels("ticket", "platform"),
		}}

		changed, err := newTestCLI(rec).SyncLabels(context.Background(), 31, []string{"ticket", "platform"}, config.LabelModeReplace)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Len(t, rec.Commands, 1, "read only")
	})
}

func TestSetDraft(t *testing.T) {
	rec := &executil.RecordingExecutor{}
	cli := newTestCLI(rec)
	ctx := context.Background()

	require.NoError(t, cli.SetDraft(ctx, 31, false))
	require.NoError(t, cli.SetDraft(ctx, 31, true))

	assert.Equal(t, []string{
		"gh pr ready 31",
		"gh pr ready 31 --undo",
	}, rec.Calls())
}
