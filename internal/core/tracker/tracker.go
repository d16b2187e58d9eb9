// Package tracker is the adapter over the remote issue tracker and
// project board, reached through the gh CLI.
package tracker

import (
	"context"

	"github.com/colonyops/ticketflow/internal/core/config"
)

// Issue is a remote tracker issue.
type Issue struct {
	Number int      `json:"number"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	State  string   `json:"state"`
	Labels []string `json:"labels"`
}

// PullRequest is a remote pull request. There is at most one live PR
// per branch.
type PullRequest struct {
	Number     int      `json:"number"`
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Draft      bool     `json:"draft"`
	State      string   `json:"state"`
	Labels     []string `json:"labels"`
	HeadBranch string   `json:"head_branch"`
}

// PRSpec defines all parameters for creating or updating a pull request.
type PRSpec struct {
	Branch string
	Base   string
	Title  string
	Body   string
	Draft  bool
	Labels []string
}

// ProjectItem is one board item with its decoded field values.
type ProjectItem struct {
	ID     string
	Ticket FieldValue
	Status FieldValue
}

// Tracker wraps remote issue, pull request, and project board access.
// Implementations must be side-effect free except for the explicit
// mutation methods so the planner can use them for read-only lookups.
type Tracker interface {
	// Issue fetches an issue by number.
	Issue(ctx context.Context, number int) (Issue, error)
	// FindPRByBranch returns the open PR whose head is branch, or nil.
	FindPRByBranch(ctx context.Context, branch string) (*PullRequest, error)
	// CreatePR opens a pull request and returns the created record.
	CreatePR(ctx context.Context, spec PRSpec) (PullRequest, error)
	// UpdatePR rewrites title and body of an existing pull request.
	UpdatePR(ctx context.Context, number int, spec PRSpec) error
	// SyncLabels applies desired labels to a pull request. Merge mode
	// only adds; replace mode also removes extras. Returns whether any
	// label changed.
	SyncLabels(ctx context.Context, number int, desired []string, mode config.LabelMode) (bool, error)
	// SetDraft toggles the draft flag of a pull request.
	SetDraft(ctx context.Context, number int, draft bool) error

	// FindProjectItem scans board items for the first one whose ticket
	// field equals value (trimmed exact match). Returns nil when no
	// item matches.
	FindProjectItem(ctx context.Context, q ProjectQuery, value string) (*ProjectItem, error)
	// SetProjectItemOption sets a single-select field to an option id.
	SetProjectItemOption(ctx context.Context, projectID, itemID, fieldID, optionID string) error
}

// ProjectQuery names the board and the two fields a scan decodes.
type ProjectQuery struct {
	ProjectID   string
	TicketField string
	StatusField string
}
