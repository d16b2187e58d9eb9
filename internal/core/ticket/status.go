package ticket

import "fmt"

// Status is the canonical stage of a ticket's progress. Statuses are
// totally ordered; automated transitions only ever move forward.
type Status string

const (
	StatusTicketed Status = "ticketed"
	StatusBranched Status = "branched"
	StatusPROpen   Status = "pr-open"
	StatusInReview Status = "in-review"
	StatusMerged   Status = "merged"
	StatusArchived Status = "archived"
)

// statusRank defines the total order of statuses.
var statusRank = map[Status]int{
	StatusTicketed: 0,
	StatusBranched: 1,
	StatusPROpen:   2,
	StatusInReview: 3,
	StatusMerged:   4,
	StatusArchived: 5,
}

// ParseStatus validates a raw status token.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := statusRank[s]; !ok {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// IsValid reports whether s is one of the six lifecycle statuses.
func (s Status) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// Before reports whether s is strictly earlier than other in the lifecycle.
func (s Status) Before(other Status) bool {
	return statusRank[s] < statusRank[other]
}

func (s Status) String() string { return string(s) }

// Display returns the human form used on the project board
// ("pr-open" renders as "PR Open").
func (s Status) Display() string {
	switch s {
	case StatusTicketed:
		return "Ticketed"
	case StatusBranched:
		return "Branched"
	case StatusPROpen:
		return "PR Open"
	case StatusInReview:
		return "In Review"
	case StatusMerged:
		return "Merged"
	case StatusArchived:
		return "Archived"
	default:
		return string(s)
	}
}
