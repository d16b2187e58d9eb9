// Package ticket defines the ticket domain model: identifiers, the
// lifecycle status enum, and the on-disk document format.
package ticket

import (
	"fmt"
	"regexp"
)

// IDPattern is the required shape of a ticket identifier.
const IDPattern = `^[A-Z]+-[A-Za-z0-9]+$`

var idRe = regexp.MustCompile(IDPattern)

// ID is the stable correlation key shared by the document, the issue, and
// the project board item.
type ID string

// ParseID validates raw against IDPattern.
func ParseID(raw string) (ID, error) {
	if !idRe.MatchString(raw) {
		return "", &ValidationError{Field: "id", Value: raw, Pattern: IDPattern}
	}
	return ID(raw), nil
}

func (id ID) String() string { return string(id) }

// ValidationError reports a value that does not match its required pattern.
// It names the exact expected pattern so the operator can fix the input.
type ValidationError struct {
	Field   string
	Value   string
	Pattern string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q does not match pattern %s", e.Field, e.Value, e.Pattern)
}
