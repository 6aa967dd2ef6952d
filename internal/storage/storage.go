// Package storage defines the persistence collaborators of the pipeline.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"story-workers/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ApprovedStore holds the durable approved collections of each project.
type ApprovedStore interface {
	EnsureProject(ctx context.Context, project string) error
	ProjectExists(ctx context.Context, project string) (bool, error)
	ListProjects(ctx context.Context) ([]string, error)

	LoadStories(ctx context.Context, project string) ([]models.Story, error)
	SaveStories(ctx context.Context, project string, stories []models.Story) error

	LoadTestCases(ctx context.Context, project, module string) ([]models.TestCase, error)
	SaveTestCases(ctx context.Context, project, module string, cases []models.TestCase) error
}

// PendingStore holds generated batches until they are reviewed. There is at
// most one pending batch per project, module and kind.
type PendingStore interface {
	Save(ctx context.Context, batch *models.PendingBatch) error
	Load(ctx context.Context, project, module string, kind models.BatchKind) (*models.PendingBatch, error)
	Delete(ctx context.Context, project, module string, kind models.BatchKind) error
}

// WorkbookExporter appends approved test cases to a project's spreadsheet.
type WorkbookExporter interface {
	AppendTestCases(project string, cases []models.TestCase) (int, error)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ValidateName rejects project names that cannot be used as a directory.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return fmt.Errorf("name must not be empty")
	case trimmed == "." || trimmed == "..":
		return fmt.Errorf("name %q is reserved", name)
	case strings.ContainsAny(trimmed, `/\`):
		return fmt.Errorf("name %q must not contain path separators", name)
	}
	return nil
}

// FileSafe maps a module name to a string usable inside a file name.
func FileSafe(name string) string {
	safe := strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_"), "_")
	if safe == "" {
		return "module"
	}
	return safe
}
