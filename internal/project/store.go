package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const projectFileName = "project.json"

// ErrNotFound is returned by Load when no project.json exists for the ID.
var ErrNotFound = errors.New("project not found")

// Store owns all read/write access to project.json documents under a root
// projects directory. One store per process; no file locking is performed,
// so concurrent processes on the same project ID are unsupported.
type Store struct {
	Root string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Root: dir}
}

// Dir returns the directory for a project.
func (s *Store) Dir(projectID string) string {
	return filepath.Join(s.Root, projectID)
}

// Path returns the project.json path for a project.
func (s *Store) Path(projectID string) string {
	return filepath.Join(s.Dir(projectID), projectFileName)
}

// CreateFolders creates the project directory tree (tracks, assets, output, logs).
func (s *Store) CreateFolders(projectID string) (string, error) {
	dir := s.Dir(projectID)
	for _, sub := range []string{"", "tracks", "assets", "output", "logs"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return "", fmt.Errorf("create project dir: %w", err)
		}
	}
	return dir, nil
}

// Load reads, migrates, and validates a project document.
// A document that fails validation is rejected loudly, never coerced.
func (s *Store) Load(projectID string) (*Project, error) {
	data, err := os.ReadFile(s.Path(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, projectID)
		}
		return nil, fmt.Errorf("read project.json: %w", err)
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid JSON in project.json for %s: %w", projectID, err)
	}

	Migrate(&p)

	if err := Validate(&p); err != nil {
		return nil, fmt.Errorf("invalid project.json for %s: %w", projectID, err)
	}
	return &p, nil
}

// Save validates the document and writes it as indented JSON with a trailing
// newline. Validation happens before any byte is written, so a failure leaves
// the previous on-disk file untouched. Key order is the fixed struct field
// order, keeping saves diff-friendly.
func (s *Store) Save(p *Project) error {
	if err := Validate(p); err != nil {
		return fmt.Errorf("project validation failed: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(s.Dir(p.ProjectID), 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}
	if err := os.WriteFile(s.Path(p.ProjectID), data, 0o644); err != nil {
		return fmt.Errorf("write project.json: %w", err)
	}
	return nil
}

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
)

// GenerateProjectID builds an ID of the form YYYYMMDD_HHMMSS_<slug>.
func GenerateProjectID(theme string, now time.Time) string {
	slug := strings.ToLower(theme)
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugCollapse.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "project"
	}
	return now.Format("20060102_150405") + "_" + slug
}
