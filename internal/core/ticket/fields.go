package ticket

import (
	"slices"
	"strings"
)

// ApplyFields returns document content with the Issue and Status fields
// set to the given values, preserving every other byte.
//
// Existing field lines are rewritten in place. When one field is missing
// it is inserted adjacent to the other (issue before status). When both
// are missing they are inserted in fixed order directly after the Lane
// field if present, else after the H1, else at the top, followed by
// exactly one blank line. The fixed placement makes repeated runs
// byte-identical.
func (d *Document) ApplyFields(issueVal string, status Status) string {
	issueNew := fieldIssue + " " + issueVal
	statusNew := fieldStatus + " " + string(status)

	lines := slices.Clone(d.lines)

	switch {
	case d.issueLine >= 0 && d.statusLine >= 0:
		lines[d.issueLine] = issueNew
		lines[d.statusLine] = statusNew

	case d.issueLine >= 0:
		lines[d.issueLine] = issueNew
		lines = slices.Insert(lines, d.issueLine+1, statusNew)

	case d.statusLine >= 0:
		lines[d.statusLine] = statusNew
		lines = slices.Insert(lines, d.statusLine, issueNew)

	default:
		at := 0
		switch {
		case d.laneLine >= 0:
			at = d.laneLine + 1
		case d.h1Line >= 0:
			at = d.h1Line + 1
		}

		head := lines[:at]
		rest := lines[at:]
		for len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
			rest = rest[1:]
		}

		out := make([]string, 0, len(lines)+3)
		out = append(out, head...)
		out = append(out, issueNew, statusNew, "")
		out = append(out, rest...)
		lines = out
	}

	return strings.Join(lines, "\n")
}
