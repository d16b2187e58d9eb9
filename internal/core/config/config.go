// Package config handles configuration loading and validation for ticketflow.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up at the repository root.
const FileName = ".ticketflow.yaml"

// Error reports a malformed or missing configuration. It is fatal:
// nothing is retried and no mutation happens after it.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// LabelMode controls how desired labels are applied to a pull request.
type LabelMode string

const (
	// LabelModeMerge adds desired labels, keeping any extra existing ones.
	LabelModeMerge LabelMode = "merge"
	// LabelModeReplace makes the label set exactly the desired set.
	LabelModeReplace LabelMode = "replace"
)

// Config holds the application configuration.
type Config struct {
	DocumentsDir   string        `yaml:"documents_dir"`
	BranchPrefix   string        `yaml:"branch_prefix"`
	BranchPattern  string        `yaml:"branch_pattern"`
	PRTitlePattern string        `yaml:"pr_title_pattern"`
	BaseBranch     string        `yaml:"base_branch"`
	Remote         string        `yaml:"remote"`
	WorktreesDir   string        `yaml:"worktrees_dir"`
	GitPath        string        `yaml:"git_path"`
	GHPath         string        `yaml:"gh_path"`
	Labels         LabelsConfig  `yaml:"labels"`
	Project        ProjectConfig `yaml:"project"`

	// Root is the directory the config was loaded from, set by Load.
	Root string `yaml:"-"`

	// Compiled patterns, populated by Load.
	BranchRe  *regexp.Regexp `yaml:"-"`
	PRTitleRe *regexp.Regexp `yaml:"-"`
}

// LabelsConfig configures pull request label sync.
type LabelsConfig struct {
	Defaults []string  `yaml:"defaults"`
	SyncMode LabelMode `yaml:"sync_mode"`
}

// ProjectConfig points at the cached project board snapshot and names
// the fields reconciliation reads and writes.
type ProjectConfig struct {
	CacheFile   string `yaml:"cache_file"`
	StatusField string `yaml:"status_field"`
	TicketField string `yaml:"ticket_field"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DocumentsDir:   "docs/tickets",
		BranchPrefix:   "ticket",
		BranchPattern:  `^ticket/[A-Z]+-[A-Za-z0-9]+(-[a-z0-9-]+)?$`,
		PRTitlePattern: `^[A-Z]+-[A-Za-z0-9]+: .+$`,
		BaseBranch:     "main",
		Remote:         "origin",
		WorktreesDir:   ".worktrees",
		GitPath:        "git",
		GHPath:         "gh",
		Labels: LabelsConfig{
			SyncMode: LabelModeMerge,
		},
		Project: ProjectConfig{
			CacheFile:   filepath.Join(".ticketflow", "project-cache.json"),
			StatusField: "Status",
			TicketField: "Ticket",
		},
	}
}

// Load reads configuration from root and compiles the naming patterns.
// A missing config file, unparseable YAML, or a pattern that fails to
// compile all return *Error.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, FileName)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}
	cfg.Root = root

	cfg.applyDefaults()

	if err := cfg.compile(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.GitPath == "" {
		c.GitPath = defaults.GitPath
	}
	if c.GHPath == "" {
		c.GHPath = defaults.GHPath
	}
	if c.Remote == "" {
		c.Remote = defaults.Remote
	}
	if c.BaseBranch == "" {
		c.BaseBranch = defaults.BaseBranch
	}
	if c.Labels.SyncMode == "" {
		c.Labels.SyncMode = defaults.Labels.SyncMode
	}
	if c.Project.StatusField == "" {
		c.Project.StatusField = defaults.Project.StatusField
	}
	if c.Project.TicketField == "" {
		c.Project.TicketField = defaults.Project.TicketField
	}
}

// compile compiles the branch and title patterns.
func (c *Config) compile() error {
	var err error
	if c.BranchRe, err = regexp.Compile(c.BranchPattern); err != nil {
		return fmt.Errorf("branch_pattern: %w", err)
	}
	if c.PRTitleRe, err = regexp.Compile(c.PRTitlePattern); err != nil {
		return fmt.Errorf("pr_title_pattern: %w", err)
	}
	return nil
}

// DocumentsPath returns the absolute documents directory.
func (c *Config) DocumentsPath() string {
	return filepath.Join(c.Root, c.DocumentsDir)
}

// ProjectCachePath returns the absolute project snapshot path.
func (c *Config) ProjectCachePath() string {
	return filepath.Join(c.Root, c.Project.CacheFile)
}

// WorktreePath returns the worktree directory for a branch suffix.
func (c *Config) WorktreePath(name string) string {
	return filepath.Join(c.Root, c.WorktreesDir, name)
}
