package flow

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/colonyops/ticketflow/internal/core/config"
	"github.com/colonyops/ticketflow/internal/core/docstore"
	"github.com/colonyops/ticketflow/internal/core/gitops"
	"github.com/colonyops/ticketflow/internal/core/ticket"
	"github.com/colonyops/ticketflow/internal/core/tracker"
)

// Planner computes a Plan from read-only lookups. It never performs a
// side effect, so the same inputs always produce the same plan.
type Planner struct {
	cfg     *config.Config
	docs    *docstore.Store
	git     gitops.Git
	tracker tracker.Tracker
	now     func() time.Time
}

// NewPlanner creates a Planner over the given adapters.
func NewPlanner(cfg *config.Config, docs *docstore.Store, git gitops.Git, tr tracker.Tracker, now func() time.Time) *Planner {
	if now == nil {
		now = time.Now
	}
	return &Planner{cfg: cfg, docs: docs, git: git, tracker: tr, now: now}
}

// Plan builds the desired end-state for one stage of a ticket.
func (p *Planner) Plan(ctx context.Context, stage Stage, id ticket.ID, opts Options) (*Plan, error) {
	docPath, err := p.docs.Resolve(id)
	if err != nil {
		return nil, err
	}
	doc, err := p.docs.Read(docPath)
	if err != nil {
		return nil, err
	}

	switch stage {
	case StageBranch:
		return p.planBranch(ctx, id, docPath, doc, opts)
	case StagePR:
		return p.planPR(ctx, id, docPath, doc, opts)
	case StageClose:
		return p.planClose(id, docPath, doc, opts)
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
}

func (p *Planner) planBranch(ctx context.Context, id ticket.ID, docPath string, doc *ticket.Document, opts Options) (*Plan, error) {
	branch, err := p.branchName(id, doc, opts)
	if err != nil {
		return nil, err
	}

	worktreePath := p.cfg.WorktreePath(branchSuffix(branch))
	exists, err := p.git.WorktreeExists(ctx, worktreePath)
	if err != nil {
		return nil, err
	}

	state, err := p.git.RemoteBranchState(ctx, branch)
	if err != nil {
		return nil, err
	}

	// The local branch may not exist on this machine yet; planning
	// treats that the same as an out-of-date remote.
	localHead := ""
	if state.Exists {
		if head, err := p.git.BranchHead(ctx, worktreePath, branch); err == nil {
			localHead = head
		}
	}
	push := predictPush(state, localHead, opts.Force)

	statusTo := advance(doc.Status, ticket.StatusBranched)

	plan := &Plan{
		Stage:          StageBranch,
		ID:             id,
		DocPath:        docPath,
		IssueValue:     doc.IssueValue(),
		Branch:         branch,
		WorktreePath:   worktreePath,
		CreateWorktree: !exists,
		Push:           push,
		PR:             PRActionNone,
		ProjectStatus:  StatusTransition{From: doc.Status, To: statusTo},
		Checklist:      doc.Checklist(),
		Force:          opts.Force,
		AllowBackward:  opts.AllowBackward,
	}
	plan.DocChange = doc.ApplyFields(plan.IssueValue, statusTo) != doc.Content()
	return plan, nil
}

func (p *Planner) planPR(ctx context.Context, id ticket.ID, docPath string, doc *ticket.Document, opts Options) (*Plan, error) {
	branch, err := p.branchName(id, doc, opts)
	if err != nil {
		return nil, err
	}

	title := opts.Title
	if title == "" {
		title = ticket.TitleFromBranch(id, branch)
	}
	if err := ticket.ValidateTitle(title, p.cfg.PRTitleRe); err != nil {
		return nil, err
	}

	body := BuildPRBody(doc)
	labels := slices.Clone(p.cfg.Labels.Defaults)

	existing, err := p.tracker.FindPRByBranch(ctx, branch)
	if err != nil {
		return nil, err
	}

	statusTo := advance(doc.Status, ticket.StatusPROpen)

	plan := &Plan{
		Stage:         StagePR,
		ID:            id,
		DocPath:       docPath,
		IssueValue:    doc.IssueValue(),
		Branch:        branch,
		Title:         title,
		Body:          body,
		Draft:         opts.Draft,
		Labels:        labels,
		LabelMode:     p.cfg.Labels.SyncMode,
		Base:          p.cfg.BaseBranch,
		ProjectStatus: StatusTransition{From: doc.Status, To: statusTo},
		Checklist:     doc.Checklist(),
		Force:         opts.Force,
		AllowBackward: opts.AllowBackward,
	}

	switch {
	case existing == nil:
		plan.PR = PRActionCreate
	case prUpToDate(existing, title, body, opts.Draft, labels, p.cfg.Labels.SyncMode):
		plan.PR = PRActionUnchanged
		plan.PRNumber = existing.Number
	default:
		plan.PR = PRActionUpdate
		plan.PRNumber = existing.Number
	}

	plan.DocChange = doc.ApplyFields(plan.IssueValue, statusTo) != doc.Content()
	return plan, nil
}

func (p *Planner) planClose(id ticket.ID, docPath string, doc *ticket.Document, opts Options) (*Plan, error) {
	statusTo := advance(doc.Status, ticket.StatusArchived)

	plan := &Plan{
		Stage:         StageClose,
		ID:            id,
		DocPath:       docPath,
		IssueValue:    doc.IssueValue(),
		ArchiveTo:     p.docs.ArchivePath(docPath, p.now().Year()),
		PR:            PRActionNone,
		ProjectStatus: StatusTransition{From: doc.Status, To: statusTo},
		Checklist:     doc.Checklist(),
		Force:         opts.Force,
		AllowBackward: opts.AllowBackward,
	}
	plan.DocChange = doc.ApplyFields(plan.IssueValue, statusTo) != doc.Content()
	return plan, nil
}

// branchName resolves the branch for a ticket: explicit override, else
// derived from the document title. Either way it must carry the ticket
// id and match the configured pattern.
func (p *Planner) branchName(id ticket.ID, doc *ticket.Document, opts Options) (string, error) {
	branch := opts.Branch
	if branch == "" {
		branch = ticket.BranchName(p.cfg.BranchPrefix, id, ticket.Slugify(doc.Title))
	}
	if err := ticket.ValidateBranch(branch, id, p.cfg.BranchRe); err != nil {
		return "", err
	}
	return branch, nil
}

// branchSuffix returns the part of a branch after the final slash.
func branchSuffix(branch string) string {
	if i := strings.LastIndex(branch, "/"); i >= 0 {
		return branch[i+1:]
	}
	return branch
}

// predictPush maps remote state and the force flag onto the first-push
// state machine without touching the remote.
func predictPush(state gitops.RemoteState, localHead string, force bool) PushAction {
	switch {
	case !state.Exists:
		return PushActionPush
	case localHead != "" && localHead == state.SHA:
		return PushActionUpToDate
	case state.BootstrapOnly:
		return PushActionForceBootstrap
	case force:
		return PushActionForce
	default:
		return PushActionBlocked
	}
}

// advance clamps a desired status so automated runs never move a ticket
// backward. Backward moves are an operator override applied elsewhere.
func advance(current, desired ticket.Status) ticket.Status {
	if current.IsValid() && desired.Before(current) {
		return current
	}
	return desired
}

// prUpToDate reports whether the live PR already matches the desired
// title, body, draft flag, and labels.
func prUpToDate(pr *tracker.PullRequest, title, body string, draft bool, labels []string, mode config.LabelMode) bool {
	if pr.Title != title || strings.TrimSpace(pr.Body) != strings.TrimSpace(body) || pr.Draft != draft {
		return false
	}
	return labelsSynced(pr.Labels, labels, mode)
}

func labelsSynced(current, desired []string, mode config.LabelMode) bool {
	for _, l := range desired {
		if !slices.Contains(current, l) {
			return false
		}
	}
	if mode == config.LabelModeReplace {
		for _, l := range current {
			if !slices.Contains(desired, l) {
				return false
			}
		}
	}
	return true
}

// BuildPRBody renders the pull request body deterministically from the
// document's narrative sections and checklist. Identical documents
// always produce identical bodies.
func BuildPRBody(doc *ticket.Document) string {
	var b strings.Builder

	for _, section := range []string{ticket.SectionPurpose, ticket.SectionProblem, ticket.SectionProposal} {
		text := doc.Narrative(section)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", section, text)
	}

	if items := doc.Checklist(); len(items) > 0 {
		b.WriteString("## " + ticket.SectionAcceptance + "\n\n")
		for _, item := range items {
			mark := " "
			if item.Done {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", mark, item.Text)
		}
		b.WriteString("\n")
	}

	if doc.Issue > 0 {
		fmt.Fprintf(&b, "Closes #%d\n", doc.Issue)
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
