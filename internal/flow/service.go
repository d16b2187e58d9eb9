package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/ticketflow/internal/core/config"
	"github.com/colonyops/ticketflow/internal/core/docstore"
	"github.com/colonyops/ticketflow/internal/core/gitops"
	"github.com/colonyops/ticketflow/internal/core/ticket"
	"github.com/colonyops/ticketflow/internal/core/tracker"
)

// Service wires the adapters into the plan/execute workflow used by
// every command.
type Service struct {
	cfg      *config.Config
	docs     *docstore.Store
	tracker  tracker.Tracker
	planner  *Planner
	executor *Executor
	log      zerolog.Logger
}

// NewService creates a Service over the given adapters. now may be nil.
func NewService(cfg *config.Config, git gitops.Git, tr tracker.Tracker, log zerolog.Logger, now func() time.Time) *Service {
	docs := docstore.New(cfg.DocumentsPath())
	return &Service{
		cfg:      cfg,
		docs:     docs,
		tracker:  tr,
		planner:  NewPlanner(cfg, docs, git, tr, now),
		executor: NewExecutor(cfg, docs, git, tr, log, now),
		log:      log.With().Str("component", "flow").Logger(),
	}
}

// Run plans a stage and, when execute is set, applies it. A dry run
// returns the full plan with no side effects.
func (s *Service) Run(ctx context.Context, stage Stage, id ticket.ID, opts Options, execute bool) (*Result, error) {
	plan, err := s.planner.Plan(ctx, stage, id, opts)
	if err != nil {
		return nil, err
	}

	if !execute {
		s.log.Info().Str("stage", string(stage)).Str("ticket", string(id)).Msg("dry run")
		return &Result{Plan: plan, Executed: false, PRAction: plan.PR, PRNumber: plan.PRNumber}, nil
	}

	s.log.Info().Str("stage", string(stage)).Str("ticket", string(id)).Msg("executing")
	return s.executor.Execute(ctx, plan)
}

// StatusReport is a read-only view of one ticket across all three stores.
type StatusReport struct {
	ID        ticket.ID              `json:"id"`
	DocPath   string                 `json:"doc_path"`
	Title     string                 `json:"title"`
	Lane      string                 `json:"lane,omitempty"`
	Issue     string                 `json:"issue"`
	DocStatus ticket.Status          `json:"doc_status"`
	Checklist []ticket.ChecklistItem `json:"checklist,omitempty"`

	PR *tracker.PullRequest `json:"pr,omitempty"`

	BoardStatus  string `json:"board_status,omitempty"`
	BoardMessage string `json:"board_message,omitempty"`

	// Content is the raw document, for rendering.
	Content string `json:"-"`
}

// Status gathers the ticket's state from the document, the tracker, and
// the board. Board lookups degrade to a message, matching the soft
// failure policy of execution.
func (s *Service) Status(ctx context.Context, id ticket.ID) (*StatusReport, error) {
	docPath, err := s.docs.Resolve(id)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.Read(docPath)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		ID:        id,
		DocPath:   docPath,
		Title:     doc.Title,
		Lane:      doc.Lane,
		Issue:     doc.IssueValue(),
		DocStatus: doc.Status,
		Checklist: doc.Checklist(),
		Content:   doc.Content(),
	}

	branch := ticket.BranchName(s.cfg.BranchPrefix, id, ticket.Slugify(doc.Title))
	pr, err := s.tracker.FindPRByBranch(ctx, branch)
	if err != nil {
		return nil, err
	}
	report.PR = pr

	snap, err := tracker.LoadSnapshot(s.cfg.ProjectCachePath())
	if err != nil {
		report.BoardMessage = fmt.Sprintf("project cache unavailable: %v", err)
		return report, nil
	}

	q := tracker.ProjectQuery{
		ProjectID:   snap.ProjectID,
		TicketField: s.cfg.Project.TicketField,
		StatusField: s.cfg.Project.StatusField,
	}
	item, err := s.tracker.FindProjectItem(ctx, q, string(id))
	if err != nil {
		return nil, err
	}
	if item == nil {
		report.BoardMessage = "no project item"
		return report, nil
	}
	report.BoardStatus = item.Status.String()
	return report, nil
}
