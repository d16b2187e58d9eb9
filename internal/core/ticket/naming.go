package ticket

import (
	"fmt"
	"regexp"
	"strings"
)

const maxSlugLen = 48

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and reduces it to dash-separated alphanumerics,
// capped at 48 characters. The same title always yields the same slug.
func Slugify(s string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	return slug
}

// BranchName derives the canonical branch name for a ticket: the id,
// then "-<slug>" when a slug exists, under the configured prefix. A
// name without a slug does not pass ValidateBranch; a document whose
// title slugifies to nothing needs an explicit branch override.
func BranchName(prefix string, id ID, slug string) string {
	name := string(id)
	if slug != "" {
		name += "-" + slug
	}
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name
}

// ValidateBranch checks that the branch suffix (the part after the
// final "/") begins with "<id>-" and that the whole name matches the
// configured pattern.
func ValidateBranch(branch string, id ID, pattern *regexp.Regexp) error {
	suffix := branch
	if i := strings.LastIndex(branch, "/"); i >= 0 {
		suffix = branch[i+1:]
	}
	if !strings.HasPrefix(suffix, string(id)+"-") {
		return &ValidationError{Field: "branch", Value: branch, Pattern: string(id) + "-*"}
	}
	if pattern != nil && !pattern.MatchString(branch) {
		return &ValidationError{Field: "branch", Value: branch, Pattern: pattern.String()}
	}
	return nil
}

// TitleFromBranch derives a deterministic PR title from the branch slug:
// "ticket/ARCH-12-add-retry-budget" becomes "ARCH-12: add retry budget".
func TitleFromBranch(id ID, branch string) string {
	suffix := branch
	if i := strings.LastIndex(branch, "/"); i >= 0 {
		suffix = branch[i+1:]
	}
	slug := strings.TrimPrefix(suffix, string(id))
	slug = strings.TrimPrefix(slug, "-")
	if slug == "" {
		return string(id)
	}
	return fmt.Sprintf("%s: %s", id, strings.ReplaceAll(slug, "-", " "))
}

// ValidateTitle checks a PR title against the configured pattern.
func ValidateTitle(title string, pattern *regexp.Regexp) error {
	if pattern != nil && !pattern.MatchString(title) {
		return &ValidationError{Field: "title", Value: title, Pattern: pattern.String()}
	}
	return nil
}
