// Package projects stores approved collections as JSON documents in one
// directory per project.
package projects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"story-workers/internal/common/logger"
	"story-workers/internal/models"
	"story-workers/internal/storage"
)

const (
	storiesFile     = "user_stories.json"
	testCasesSuffix = "_testcases.json"
)

// Store is a filesystem-backed storage.ApprovedStore.
type Store struct {
	root   string
	logger logger.Logger
}

func NewStore(root string, log logger.Logger) *Store {
	return &Store{
		root:   root,
		logger: log.With(map[string]interface{}{"store": "projects", "root": root}),
	}
}

// Root returns the directory holding every project.
func (s *Store) Root() string {
	return s.root
}

// ProjectDir returns the directory of one project.
func (s *Store) ProjectDir(project string) string {
	return filepath.Join(s.root, strings.TrimSpace(project))
}

func (s *Store) EnsureProject(_ context.Context, project string) error {
	if err := storage.ValidateName(project); err != nil {
		return err
	}
	if err := os.MkdirAll(s.ProjectDir(project), 0o755); err != nil {
		return fmt.Errorf("create project %s: %w", project, err)
	}
	return nil
}

func (s *Store) ProjectExists(_ context.Context, project string) (bool, error) {
	if err := storage.ValidateName(project); err != nil {
		return false, err
	}
	info, err := os.Stat(s.ProjectDir(project))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// ListProjects returns project directory names in sorted order.
func (s *Store) ListProjects(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) LoadStories(_ context.Context, project string) ([]models.Story, error) {
	if err := storage.ValidateName(project); err != nil {
		return nil, err
	}
	out := []models.Story{}
	if err := s.readJSON(filepath.Join(s.ProjectDir(project), storiesFile), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveStories(ctx context.Context, project string, stories []models.Story) error {
	if err := s.EnsureProject(ctx, project); err != nil {
		return err
	}
	if stories == nil {
		stories = []models.Story{}
	}
	return s.writeJSON(filepath.Join(s.ProjectDir(project), storiesFile), stories)
}

func (s *Store) LoadTestCases(_ context.Context, project, module string) ([]models.TestCase, error) {
	if err := storage.ValidateName(project); err != nil {
		return nil, err
	}
	out := []models.TestCase{}
	if err := s.readJSON(s.testCasesPath(project, module), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveTestCases(ctx context.Context, project, module string, cases []models.TestCase) error {
	if err := s.EnsureProject(ctx, project); err != nil {
		return err
	}
	if cases == nil {
		cases = []models.TestCase{}
	}
	return s.writeJSON(s.testCasesPath(project, module), cases)
}

func (s *Store) testCasesPath(project, module string) string {
	return filepath.Join(s.ProjectDir(project), storage.FileSafe(module)+testCasesSuffix)
}

// readJSON leaves v untouched when the file does not exist.
func (s *Store) readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// writeJSON replaces path atomically via a temp file in the same directory.
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}

	s.logger.Debug("wrote collection", map[string]interface{}{"path": path, "bytes": len(data)})
	return nil
}
