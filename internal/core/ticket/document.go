package ticket

import (
	"strconv"
	"strings"
)

// Field line prefixes in the document header block. Fields live between
// the H1 title and the first "## " heading.
const (
	fieldIssue  = "Issue:"
	fieldStatus = "Status:"
	fieldLane   = "Lane:"
)

// IssuePending is the Issue field value used before an issue number is known.
const IssuePending = "pending"

// Section headings recognized in the document body.
const (
	SectionPurpose    = "Purpose"
	SectionProblem    = "Problem"
	SectionProposal   = "Proposal"
	SectionAcceptance = "Acceptance"
)

// ChecklistItem is one entry of the acceptance checklist.
type ChecklistItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Document is a parsed ticket document. The original content is retained
// line-by-line so edits can preserve every untouched byte.
type Document struct {
	ID     ID
	Title  string
	Lane   string
	Issue  int // 0 while pending
	Status Status

	HasIssueField  bool
	HasStatusField bool

	lines      []string
	h1Line     int
	laneLine   int
	issueLine  int
	statusLine int
}

// ParseDocument parses a ticket document. It never fails: missing fields
// leave zero values, and accessors report what was actually present.
func ParseDocument(content string) *Document {
	d := &Document{
		lines:      strings.Split(content, "\n"),
		h1Line:     -1,
		laneLine:   -1,
		issueLine:  -1,
		statusLine: -1,
	}

	for i, line := range d.lines {
		if strings.HasPrefix(line, "## ") {
			break
		}

		switch {
		case strings.HasPrefix(line, "# ") && d.h1Line == -1:
			d.h1Line = i
			d.parseTitle(strings.TrimPrefix(line, "# "))
		case strings.HasPrefix(line, fieldLane) && d.laneLine == -1:
			d.laneLine = i
			d.Lane = strings.TrimSpace(strings.TrimPrefix(line, fieldLane))
		case strings.HasPrefix(line, fieldIssue) && d.issueLine == -1:
			d.issueLine = i
			d.HasIssueField = true
			val := strings.TrimSpace(strings.TrimPrefix(line, fieldIssue))
			if val != IssuePending {
				d.Issue, _ = strconv.Atoi(strings.TrimPrefix(val, "#"))
			}
		case strings.HasPrefix(line, fieldStatus) && d.statusLine == -1:
			d.statusLine = i
			d.HasStatusField = true
			val := strings.TrimSpace(strings.TrimPrefix(line, fieldStatus))
			if s, err := ParseStatus(val); err == nil {
				d.Status = s
			}
		}
	}

	return d
}

// parseTitle splits an H1 of the form "ARCH-123: Add retry budget".
func (d *Document) parseTitle(heading string) {
	id, rest, found := strings.Cut(heading, ":")
	if found {
		if parsed, err := ParseID(strings.TrimSpace(id)); err == nil {
			d.ID = parsed
			d.Title = strings.TrimSpace(rest)
			return
		}
	}
	d.Title = strings.TrimSpace(heading)
}

// Content returns the document bytes.
func (d *Document) Content() string {
	return strings.Join(d.lines, "\n")
}

// Narrative returns the trimmed body of the named "## " section, or ""
// if the section is absent.
func (d *Document) Narrative(section string) string {
	heading := "## " + section

	var body []string
	inSection := false
	for _, line := range d.lines {
		if strings.HasPrefix(line, "## ") {
			if inSection {
				break
			}
			inSection = strings.TrimSpace(line) == heading
			continue
		}
		if inSection {
			body = append(body, line)
		}
	}

	return strings.TrimSpace(strings.Join(body, "\n"))
}

// Checklist returns the ordered acceptance checklist items.
func (d *Document) Checklist() []ChecklistItem {
	var items []ChecklistItem
	for _, line := range strings.Split(d.Narrative(SectionAcceptance), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "- [ ] "):
			items = append(items, ChecklistItem{Text: strings.TrimPrefix(trimmed, "- [ ] ")})
		case strings.HasPrefix(trimmed, "- [x] "), strings.HasPrefix(trimmed, "- [X] "):
			items = append(items, ChecklistItem{Text: trimmed[len("- [x] "):], Done: true})
		}
	}
	return items
}

// IssueValue renders the Issue field value: the number, or "pending".
func (d *Document) IssueValue() string {
	if d.Issue == 0 {
		return IssuePending
	}
	return strconv.Itoa(d.Issue)
}
