package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/ticketflow/internal/core/config"
	"github.com/colonyops/ticketflow/internal/core/docstore"
	"github.com/colonyops/ticketflow/internal/core/gitops"
	"github.com/colonyops/ticketflow/internal/core/tracker"
)

// Executor applies an approved plan. Writes happen in a fixed order
// (document fields, branch/worktree, pull request, project status) so a
// failure after step N leaves steps 1..N durably applied and a re-run
// converges instead of duplicating work. Every write is preceded by a
// read-check against live state, never a snapshot from planning time.
type Executor struct {
	cfg     *config.Config
	docs    *docstore.Store
	git     gitops.Git
	tracker tracker.Tracker
	log     zerolog.Logger
	now     func() time.Time
}

// NewExecutor creates an Executor over the given adapters.
func NewExecutor(cfg *config.Config, docs *docstore.Store, git gitops.Git, tr tracker.Tracker, log zerolog.Logger, now func() time.Time) *Executor {
	if now == nil {
		now = time.Now
	}
	return &Executor{
		cfg:     cfg,
		docs:    docs,
		git:     git,
		tracker: tr,
		log:     log.With().Str("component", "executor").Logger(),
		now:     now,
	}
}

// Execute performs the plan's side effects and returns the realized
// outcome. Adapter errors surface unchanged: idempotency makes operator
// re-invocation safe, so nothing is retried here.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*Result, error) {
	res := &Result{Plan: plan, Executed: true}

	// A blocked push is known before any write; refuse up front so the
	// operator decides, rather than leaving a half-applied stage.
	if plan.Push == PushActionBlocked {
		return res, &gitops.PreconditionError{
			Op:          "push " + plan.Branch,
			Detail:      "remote branch already has real work",
			Remediation: "--force",
		}
	}

	if err := e.documentStep(res, plan); err != nil {
		return res, err
	}

	if plan.Stage == StageBranch {
		if err := e.branchStep(ctx, res, plan); err != nil {
			return res, err
		}
	}

	if plan.Stage == StagePR {
		if err := e.prStep(ctx, res, plan); err != nil {
			return res, err
		}
	}

	if plan.Stage == StageClose {
		if err := e.archiveStep(res, plan); err != nil {
			return res, err
		}
	}

	if err := e.projectStep(ctx, res, plan); err != nil {
		return res, err
	}

	return res, nil
}

func (e *Executor) documentStep(res *Result, plan *Plan) error {
	changed, err := e.docs.EnsureFields(plan.DocPath, plan.IssueValue, plan.ProjectStatus.To)
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("Issue: %s, Status: %s", plan.IssueValue, plan.ProjectStatus.To)
	res.step("document", changed, msg)
	e.log.Debug().Str("doc", plan.DocPath).Bool("changed", changed).Msg("document fields ensured")
	return nil
}

func (e *Executor) branchStep(ctx context.Context, res *Result, plan *Plan) error {
	exists, err := e.git.WorktreeExists(ctx, plan.WorktreePath)
	if err != nil {
		return err
	}

	created := false
	if !exists {
		if err := e.git.CreateWorktree(ctx, plan.WorktreePath, plan.Branch, e.cfg.BaseBranch); err != nil {
			return err
		}
		created = true
	}
	res.step("worktree", created, plan.WorktreePath)

	if created {
		if err := e.git.CommitAll(ctx, plan.WorktreePath, gitops.BootstrapSubject(plan.Branch)); err != nil {
			return err
		}
		res.step("bootstrap", true, gitops.BootstrapSubject(plan.Branch))
	}

	action, err := gitops.EnsurePushed(ctx, e.git, plan.WorktreePath, plan.Branch, plan.Force)
	if err != nil {
		return err
	}
	res.step("push", action != gitops.PushUpToDate, action)
	return nil
}

func (e *Executor) prStep(ctx context.Context, res *Result, plan *Plan) error {
	// Re-check live state: a concurrent run may have opened the PR
	// since planning.
	existing, err := e.tracker.FindPRByBranch(ctx, plan.Branch)
	if err != nil {
		return err
	}

	spec := tracker.PRSpec{
		Branch: plan.Branch,
		Base:   plan.Base,
		Title:  plan.Title,
		Body:   plan.Body,
		Draft:  plan.Draft,
		Labels: plan.Labels,
	}

	switch {
	case existing == nil:
		created, err := e.tracker.CreatePR(ctx, spec)
		if err != nil {
			return err
		}
		res.PRAction = PRActionCreate
		res.PRNumber = created.Number
		res.PRURL = created.URL
		res.step("pr", true, fmt.Sprintf("created #%d", created.Number))
		return nil

	case prUpToDate(existing, plan.Title, plan.Body, plan.Draft, plan.Labels, plan.LabelMode):
		res.PRAction = PRActionUnchanged
		res.PRNumber = existing.Number
		res.PRURL = existing.URL
		res.step("pr", false, fmt.Sprintf("#%d unchanged", existing.Number))
		return nil

	default:
		res.PRAction = PRActionUpdate
		res.PRNumber = existing.Number
		res.PRURL = existing.URL

		changed := false
		if existing.Title != plan.Title || existing.Body != plan.Body {
			if err := e.tracker.UpdatePR(ctx, existing.Number, spec); err != nil {
				return err
			}
			changed = true
		}
		res.step("pr", changed, fmt.Sprintf("updated #%d", existing.Number))

		labelsChanged, err := e.tracker.SyncLabels(ctx, existing.Number, plan.Labels, plan.LabelMode)
		if err != nil {
			return err
		}
		res.step("labels", labelsChanged, "")

		if existing.Draft != plan.Draft {
			if err := e.tracker.SetDraft(ctx, existing.Number, plan.Draft); err != nil {
				return err
			}
			res.step("draft", true, fmt.Sprintf("draft=%v", plan.Draft))
		}
		return nil
	}
}

func (e *Executor) archiveStep(res *Result, plan *Plan) error {
	dest, err := e.docs.Archive(plan.DocPath, e.now().Year())
	if err != nil {
		return err
	}
	res.step("archive", true, dest)
	return nil
}

// projectStep syncs the board status. The board is the lowest-priority
// store: a stale or missing snapshot degrades to a warning because the
// document and the issue already hold the truth.
func (e *Executor) projectStep(ctx context.Context, res *Result, plan *Plan) error {
	// Always reconcile, even when the document already holds the target
	// status: the board may have diverged on its own, and EnsureStatus
	// no-ops when it has not.
	snap, err := tracker.LoadSnapshot(e.cfg.ProjectCachePath())
	if err != nil {
		res.step("project", false, "project cache unavailable")
		res.warn(fmt.Sprintf("project status not synced: %v", err))
		e.log.Warn().Err(err).Msg("project cache unavailable")
		return nil
	}

	q := tracker.ProjectQuery{
		ProjectID:   snap.ProjectID,
		TicketField: e.cfg.Project.TicketField,
		StatusField: e.cfg.Project.StatusField,
	}

	sync, err := tracker.EnsureStatus(ctx, e.tracker, snap, q, plan.ID, plan.ProjectStatus.To, plan.AllowBackward)
	if err != nil {
		return err
	}

	res.step("project", sync.Changed, sync.Message)
	if sync.Soft {
		res.warn("project status: " + sync.Message)
		e.log.Warn().Str("ticket", string(plan.ID)).Msg(sync.Message)
	}
	return nil
}
