package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(content), 0o644))
	return root
}

func TestLoad(t *testing.T) {
	t.Run("defaults fill unset fields", func(t *testing.T) {
		root := writeConfig(t, "documents_dir: tickets\n")

		cfg, err := Load(root)
		require.NoError(t, err)

		assert.Equal(t, "tickets", cfg.DocumentsDir)
		assert.Equal(t, "main", cfg.BaseBranch)
		assert.Equal(t, "origin", cfg.Remote)
		assert.Equal(t, "git", cfg.GitPath)
		assert.Equal(t, "gh", cfg.GHPath)
		assert.Equal(t, LabelModeMerge, cfg.Labels.SyncMode)
		assert.Equal(t, "Status", cfg.Project.StatusField)
		assert.Equal(t, "Ticket", cfg.Project.TicketField)
		assert.Equal(t, root, cfg.Root)
		require.NotNil(t, cfg.BranchRe)
		require.NotNil(t, cfg.PRTitleRe)
		assert.True(t, cfg.BranchRe.MatchString("ticket/ARCH-12-add-retry"))
		assert.True(t, cfg.PRTitleRe.MatchString("ARCH-12: add retry"))
	})

	t.Run("explicit values win", func(t *testing.T) {
		root := writeConfig(t, `
documents_dir: work/tickets
base_branch: develop
labels:
  defaults: [ticket, automated]
  sync_mode: replace
project:
  status_field: Stage
`)

		cfg, err := Load(root)
		require.NoError(t, err)

		assert.Equal(t, "develop", cfg.BaseBranch)
		assert.Equal(t, []string{"ticket", "automated"}, cfg.Labels.Defaults)
		assert.Equal(t, LabelModeReplace, cfg.Labels.SyncMode)
		assert.Equal(t, "Stage", cfg.Project.StatusField)
		assert.Equal(t, filepath.Join(root, "work/tickets"), cfg.DocumentsPath())
	})

	t.Run("missing file is fatal", func(t *testing.T) {
		_, err := Load(t.TempDir())
		var cerr *Error
		require.ErrorAs(t, err, &cerr)
	})

	t.Run("bad yaml is fatal", func(t *testing.T) {
		root := writeConfig(t, "documents_dir: [unterminated\n")
		_, err := Load(root)
		var cerr *Error
		require.ErrorAs(t, err, &cerr)
	})

	t.Run("pattern that fails to compile is fatal", func(t *testing.T) {
		root := writeConfig(t, "branch_pattern: '[unclosed'\n")
		_, err := Load(root)
		var cerr *Error
		require.ErrorAs(t, err, &cerr)
		assert.Contains(t, err.Error(), "branch_pattern")
	})

	t.Run("invalid sync mode is fatal", func(t *testing.T) {
		root := writeConfig(t, "labels:\n  sync_mode: append\n")
		_, err := Load(root)
		var cerr *Error
		require.ErrorAs(t, err, &cerr)
		assert.Contains(t, err.Error(), "sync_mode")
	})
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = "/repo"

	assert.Equal(t, filepath.Join("/repo", "docs/tickets"), cfg.DocumentsPath())
	assert.Equal(t, filepath.Join("/repo", ".ticketflow", "project-cache.json"), cfg.ProjectCachePath())
	assert.Equal(t, filepath.Join("/repo", ".worktrees", "ARCH-12-add-retry"), cfg.WorktreePath("ARCH-12-add-retry"))
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.DocumentsDir = "  "
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "documents_dir")
}
