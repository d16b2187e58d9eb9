// Package flow plans and executes ticket lifecycle reconciliation
// across the document store, the remote tracker, and the project board.
package flow

import (
	"github.com/colonyops/ticketflow/internal/core/config"
	"github.com/colonyops/ticketflow/internal/core/ticket"
)

// Stage is one lifecycle stage a reconciliation run drives.
type Stage string

const (
	StageBranch Stage = "branch"
	StagePR     Stage = "pr"
	StageClose  Stage = "close"
)

// PRAction is the desired pull request mutation.
type PRAction string

const (
	PRActionCreate    PRAction = "create"
	PRActionUpdate    PRAction = "update"
	PRActionUnchanged PRAction = "unchanged"
	PRActionNone      PRAction = "none"
)

// PushAction is the predicted outcome of the first-push state machine.
type PushAction string

const (
	PushActionNone           PushAction = "none"
	PushActionUpToDate       PushAction = "up-to-date"
	PushActionPush           PushAction = "push"
	PushActionForceBootstrap PushAction = "force-bootstrap"
	PushActionForce          PushAction = "force"
	// PushActionBlocked means the remote branch has real work and no
	// force flag was given; executing this plan fails before any
	// mutation with a PreconditionError.
	PushActionBlocked PushAction = "blocked"
)

// StatusTransition is the desired project/document status move.
type StatusTransition struct {
	From ticket.Status `json:"from"`
	To   ticket.Status `json:"to"`
}

// Changed reports whether the transition moves anywhere.
func (t StatusTransition) Changed() bool { return t.From != t.To }

// Plan is the declarative desired end-state of one stage across all
// three stores. It is an immutable value computed from read-only
// lookups, rendered identically whether previewed or executed: the plan
// alone tells an operator exactly what a real run would change.
type Plan struct {
	Stage Stage     `json:"stage"`
	ID    ticket.ID `json:"id"`

	// Document store.
	DocPath    string `json:"doc_path"`
	IssueValue string `json:"issue_value"`
	DocChange  bool   `json:"doc_change"`
	ArchiveTo  string `json:"archive_to,omitempty"`

	// Branch / worktree.
	Branch         string     `json:"branch,omitempty"`
	WorktreePath   string     `json:"worktree_path,omitempty"`
	CreateWorktree bool       `json:"create_worktree,omitempty"`
	Push           PushAction `json:"push,omitempty"`

	// Pull request.
	PR        PRAction         `json:"pr"`
	PRNumber  int              `json:"pr_number,omitempty"`
	Title     string           `json:"title,omitempty"`
	Body      string           `json:"body,omitempty"`
	Draft     bool             `json:"draft,omitempty"`
	Labels    []string         `json:"labels,omitempty"`
	LabelMode config.LabelMode `json:"label_mode,omitempty"`
	Base      string           `json:"base,omitempty"`

	// Status.
	ProjectStatus StatusTransition       `json:"project_status"`
	Checklist     []ticket.ChecklistItem `json:"checklist,omitempty"`

	// Operator overrides carried into execution.
	Force         bool `json:"force,omitempty"`
	AllowBackward bool `json:"allow_backward,omitempty"`
}

// Options are the operator-supplied inputs to planning.
type Options struct {
	Branch        string
	Title         string
	Draft         bool
	Force         bool
	AllowBackward bool
}
