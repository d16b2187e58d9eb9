package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/colonyops/ticketflow/internal/core/ticket"
)

// fieldValueFragment selects every member of the closed field value
// union; decodeFieldValue dispatches on __typename.
const fieldValueFragment = `{
  __typename
  ... on ProjectV2ItemFieldTextValue { text }
  ... on ProjectV2ItemFieldNumberValue { number }
  ... on ProjectV2ItemFieldSingleSelectValue { name }
  ... on ProjectV2ItemFieldDateValue { date }
  ... on ProjectV2ItemFieldIterationValue { title }
}`

var itemsQuery = fmt.Sprintf(`query($projectId: ID!, $first: Int!, $after: String, $ticketField: String!, $statusField: String!) {
  node(id: $projectId) {
    ... on ProjectV2 {
      items(first: $first, after: $after) {
        nodes {
          id
          ticket: fieldValueByName(name: $ticketField) %s
          status: fieldValueByName(name: $statusField) %s
        }
        pageInfo { hasNextPage endCursor }
      }
    }
  }
}`, fieldValueFragment, fieldValueFragment)

const setOptionMutation = `mutation($projectId: ID!, $itemId: ID!, $fieldId: ID!, $optionId: String!) {
  updateProjectV2ItemFieldValue(input: {
    projectId: $projectId,
    itemId: $itemId,
    fieldId: $fieldId,
    value: { singleSelectOptionId: $optionId }
  }) { projectV2Item { id } }
}`

type itemsPage struct {
	Data struct {
		Node struct {
			Items struct {
				Nodes []struct {
					ID     string          `json:"id"`
					Ticket json.RawMessage `json:"ticket"`
					Status json.RawMessage `json:"status"`
				} `json:"nodes"`
				PageInfo struct {
					HasNextPage bool   `json:"hasNextPage"`
					EndCursor   string `json:"endCursor"`
				} `json:"pageInfo"`
			} `json:"items"`
		} `json:"node"`
	} `json:"data"`
}

// FindProjectItem pages through board items (fixed page size) and
// returns the first whose ticket field equals value after trimming.
func (c *CLI) FindProjectItem(ctx context.Context, q ProjectQuery, value string) (*ProjectItem, error) {
	want := strings.TrimSpace(value)
	cursor := ""

	for {
		args := []string{
			"api", "graphql",
			"-f", "query=" + itemsQuery,
			"-f", "projectId=" + q.ProjectID,
			"-F", "first=" + strconv.Itoa(pageSize),
			"-f", "ticketField=" + q.TicketField,
			"-f", "statusField=" + q.StatusField,
		}
		if cursor != "" {
			args = append(args, "-f", "after="+cursor)
		}

		out, err := c.exec.RunDir(ctx, c.dir, c.ghPath, args...)
		if err != nil {
			return nil, fmt.Errorf("list project items: %w", err)
		}

		var page itemsPage
		if err := json.Unmarshal(out, &page); err != nil {
			return nil, fmt.Errorf("decode project items: %w", err)
		}

		for _, node := range page.Data.Node.Items.Nodes {
			tv := decodeFieldValue(node.Ticket)
			if strings.TrimSpace(tv.String()) == want {
				return &ProjectItem{
					ID:     node.ID,
					Ticket: tv,
					Status: decodeFieldValue(node.Status),
				}, nil
			}
		}

		info := page.Data.Node.Items.PageInfo
		if !info.HasNextPage {
			return nil, nil
		}
		cursor = info.EndCursor
	}
}

// SetProjectItemOption sets a single-select field to an option id.
func (c *CLI) SetProjectItemOption(ctx context.Context, projectID, itemID, fieldID, optionID string) error {
	_, err := c.exec.RunDir(ctx, c.dir, c.ghPath,
		"api", "graphql",
		"-f", "query="+setOptionMutation,
		"-f", "projectId="+projectID,
		"-f", "itemId="+itemID,
		"-f", "fieldId="+fieldID,
		"-f", "optionId="+optionID)
	if err != nil {
		return fmt.Errorf("set project field %s: %w", fieldID, err)
	}
	return nil
}

// SyncResult reports one board reconciliation outcome. A soft failure
// leaves Changed false and explains itself in Message; the document and
// the issue are higher-priority sources of truth than the board, so a
// stale cache degrades the run instead of aborting it.
type SyncResult struct {
	Changed bool   `json:"changed"`
	Message string `json:"message,omitempty"`
	// Soft marks a degraded outcome (stale cache, missing item,
	// refused backward move) as opposed to a benign no-op.
	Soft bool `json:"soft,omitempty"`
}

// EnsureStatus idempotently moves the board status for a ticket to
// target. It no-ops when the item is already at target, refuses
// backward moves unless allowBackward, and soft-fails when the item or
// the cached option id cannot be resolved. Transport failures are
// returned as errors and abort the run.
func EnsureStatus(ctx context.Context, t Tracker, snap *Snapshot, q ProjectQuery, id ticket.ID, target ticket.Status, allowBackward bool) (SyncResult, error) {
	statusField, ok := snap.Field(q.StatusField)
	if !ok {
		return SyncResult{Soft: true, Message: fmt.Sprintf("field %q not in project cache; refresh the snapshot", q.StatusField)}, nil
	}

	item, err := t.FindProjectItem(ctx, q, string(id))
	if err != nil {
		return SyncResult{}, err
	}
	if item == nil {
		return SyncResult{Soft: true, Message: fmt.Sprintf("no project item for %s", id)}, nil
	}

	current := item.Status.String()
	if current == target.Display() {
		return SyncResult{Message: "already at " + target.Display()}, nil
	}

	if cur, found := statusFromDisplay(current); found {
		if target.Before(cur) && !allowBackward {
			return SyncResult{Soft: true, Message: fmt.Sprintf("refusing backward move %s -> %s without --allow-backward", current, target.Display())}, nil
		}
	}

	optionID, ok := statusField.OptionID(target.Display())
	if !ok {
		return SyncResult{Soft: true, Message: fmt.Sprintf("option %q not in project cache; refresh the snapshot", target.Display())}, nil
	}

	if err := t.SetProjectItemOption(ctx, snap.ProjectID, item.ID, statusField.ID, optionID); err != nil {
		return SyncResult{}, err
	}

	msg := target.Display()
	if current != "" {
		msg = current + " -> " + target.Display()
	}
	return SyncResult{Changed: true, Message: msg}, nil
}

// statusFromDisplay maps a board option name back to a lifecycle status.
func statusFromDisplay(display string) (ticket.Status, bool) {
	for _, s := range []ticket.Status{
		ticket.StatusTicketed, ticket.StatusBranched, ticket.StatusPROpen,
		ticket.StatusInReview, ticket.StatusMerged, ticket.StatusArchived,
	} {
		if s.Display() == display {
			return s, true
		}
	}
	return "", false
}
