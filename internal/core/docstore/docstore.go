// Package docstore is the adapter over the local ticket document directory.
package docstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/colonyops/ticketflow/internal/core/ticket"
)

// ErrNotFound is returned when no document exists for a ticket id.
var ErrNotFound = errors.New("ticket document not found")

// AmbiguousTicketError is returned when more than one document could
// answer for the same ticket id. Directory listing order is not a
// tiebreak; the operator has to rename or remove one.
type AmbiguousTicketError struct {
	ID      ticket.ID
	Matches []string
}

func (e *AmbiguousTicketError) Error() string {
	return fmt.Sprintf("ticket %s matches %d documents: %v", e.ID, len(e.Matches), e.Matches)
}

// ArchiveError is returned when archiving would overwrite an existing file.
type ArchiveError struct {
	Dest string
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive destination already exists: %s", e.Dest)
}

// ArchiveDirName is the subdirectory archived documents move into.
const ArchiveDirName = "_archive"

// Store reads and writes ticket documents under a single directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Resolve finds the document for a ticket id. An exact "<id>.md" match
// anywhere under the directory wins; otherwise a "<id>-*.md" prefix scan
// runs. More than one candidate is an AmbiguousTicketError rather than a
// listing-order coin flip.
func (s *Store) Resolve(id ticket.ID) (string, error) {
	fsys := os.DirFS(s.dir)

	exact, err := doublestar.Glob(fsys, "**/"+string(id)+".md")
	if err != nil {
		return "", fmt.Errorf("scan documents dir: %w", err)
	}
	matches := s.filterArchived(exact)

	if len(matches) == 0 {
		prefixed, err := doublestar.Glob(fsys, "**/"+string(id)+"-*.md")
		if err != nil {
			return "", fmt.Errorf("scan documents dir: %w", err)
		}
		matches = s.filterArchived(prefixed)
	}

	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("resolve %s: %w", id, ErrNotFound)
	case 1:
		return filepath.Join(s.dir, matches[0]), nil
	default:
		return "", &AmbiguousTicketError{ID: id, Matches: matches}
	}
}

// filterArchived drops matches under the archive directory; archived
// documents have permanently left the active lifecycle.
func (s *Store) filterArchived(matches []string) []string {
	var live []string
	for _, m := range matches {
		// Glob over fs.FS always yields slash-separated paths.
		if strings.HasPrefix(m, ArchiveDirName+"/") {
			continue
		}
		live = append(live, m)
	}
	return live
}

// Read parses the document at path.
func (s *Store) Read(path string) (*ticket.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return ticket.ParseDocument(string(data)), nil
}

// EnsureFields idempotently sets the Issue and Status fields in the
// document at path. Returns false when the file already held exactly the
// target values and no write occurred.
func (s *Store) EnsureFields(path string, issueVal string, status ticket.Status) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read document: %w", err)
	}

	content := string(data)
	updated := ticket.ParseDocument(content).ApplyFields(issueVal, status)
	if updated == content {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat document: %w", err)
	}
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("write document: %w", err)
	}
	return true, nil
}

// ArchivePath returns where Archive would move the document at path.
func (s *Store) ArchivePath(path string, year int) string {
	return filepath.Join(s.dir, ArchiveDirName, strconv.Itoa(year), filepath.Base(path))
}

// Archive moves the document at path into <dir>/_archive/<year>/<name>.
// An existing file at the destination is an ArchiveError, never an
// overwrite. Returns the new path.
func (s *Store) Archive(path string, year int) (string, error) {
	destDir := filepath.Join(s.dir, ArchiveDirName, strconv.Itoa(year))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	dest := filepath.Join(destDir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		return "", &ArchiveError{Dest: dest}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat archive destination: %w", err)
	}

	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("archive document: %w", err)
	}
	return dest, nil
}
