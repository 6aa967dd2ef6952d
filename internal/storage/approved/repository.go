// Package approved stores approved collections in PostgreSQL.
package approved

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"story-workers/internal/common/database"
	"story-workers/internal/common/logger"
	"story-workers/internal/models"
	"story-workers/internal/storage"
)

const (
	queryProjectExists = `SELECT EXISTS (
		SELECT 1 FROM approved_stories WHERE project = $1
		UNION ALL
		SELECT 1 FROM approved_test_cases WHERE project = $1
	)`

	queryListProjects = `SELECT project FROM approved_stories
		UNION
		SELECT project FROM approved_test_cases
		ORDER BY 1`

	querySelectStories = `SELECT module, title, description, acceptance_criteria
		FROM approved_stories WHERE project = $1 ORDER BY position`

	queryDeleteStories = `DELETE FROM approved_stories WHERE project = $1`

	queryInsertStory = `INSERT INTO approved_stories
		(project, position, module, title, description, acceptance_criteria)
		VALUES ($1, $2, $3, $4, $5, $6)`

	querySelectTestCases = `SELECT scenario_id, module, test_scenario, functional_integration, testcase_id,
		testcase_title, pre_condition, test_data, steps, expected_result, actual_result, status,
		comments, priority, positive_negative, end_to_end
		FROM approved_test_cases WHERE project = $1 AND module = $2 ORDER BY position`

	queryDeleteTestCases = `DELETE FROM approved_test_cases WHERE project = $1 AND module = $2`

	queryInsertTestCase = `INSERT INTO approved_test_cases
		(project, module, testcase_id, position, scenario_id, test_scenario, functional_integration,
		testcase_title, pre_condition, test_data, steps, expected_result, actual_result, status,
		comments, priority, positive_negative, end_to_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
)

// Repository is a PostgreSQL-backed storage.ApprovedStore. Saving a
// collection replaces it inside one transaction.
type Repository struct {
	db     *database.PostgresClient
	logger logger.Logger
}

func NewRepository(db *database.PostgresClient, log logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log.With(map[string]interface{}{"store": "approved"}),
	}
}

// EnsureProject only validates the name; projects exist once they hold rows.
func (r *Repository) EnsureProject(_ context.Context, project string) error {
	return storage.ValidateName(project)
}

func (r *Repository) ProjectExists(ctx context.Context, project string) (bool, error) {
	var exists bool
	if err := r.db.DB.QueryRowContext(ctx, queryProjectExists, project).Scan(&exists); err != nil {
		return false, fmt.Errorf("check project %s: %w", project, err)
	}
	return exists, nil
}

func (r *Repository) ListProjects(ctx context.Context) ([]string, error) {
	rows, err := r.db.DB.QueryContext(ctx, queryListProjects)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *Repository) LoadStories(ctx context.Context, project string) ([]models.Story, error) {
	rows, err := r.db.DB.QueryContext(ctx, querySelectStories, project)
	if err != nil {
		return nil, fmt.Errorf("load stories: %w", err)
	}
	defer rows.Close()

	out := []models.Story{}
	for rows.Next() {
		var (
			s        models.Story
			criteria []byte
		)
		if err := rows.Scan(&s.Module, &s.Title, &s.Description, &criteria); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		if s.AcceptanceCriteria, err = decodeList(criteria); err != nil {
			return nil, fmt.Errorf("decode acceptance criteria: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) SaveStories(ctx context.Context, project string, stories []models.Story) error {
	if err := storage.ValidateName(project); err != nil {
		return err
	}
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, queryDeleteStories, project); err != nil {
			return fmt.Errorf("clear stories: %w", err)
		}
		for i, s := range stories {
			criteria, err := encodeList(s.AcceptanceCriteria)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, queryInsertStory,
				project, i+1, s.Module, s.Title, s.Description, criteria,
			); err != nil {
				return fmt.Errorf("insert story %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("stories saved", map[string]interface{}{"project": project, "count": len(stories)})
	return nil
}

func (r *Repository) LoadTestCases(ctx context.Context, project, module string) ([]models.TestCase, error) {
	rows, err := r.db.DB.QueryContext(ctx, querySelectTestCases, project, module)
	if err != nil {
		return nil, fmt.Errorf("load test cases: %w", err)
	}
	defer rows.Close()

	out := []models.TestCase{}
	for rows.Next() {
		var (
			tc    models.TestCase
			steps []byte
		)
		if err := rows.Scan(
			&tc.ScenarioID, &tc.Module, &tc.TestScenario, &tc.FunctionalIntegration, &tc.TestCaseID,
			&tc.TestCaseTitle, &tc.PreCondition, &tc.TestData, &steps, &tc.ExpectedResult,
			&tc.ActualResult, &tc.Status, &tc.Comments, &tc.Priority, &tc.PositiveNegative, &tc.EndToEnd,
		); err != nil {
			return nil, fmt.Errorf("scan test case: %w", err)
		}
		if tc.Steps, err = decodeList(steps); err != nil {
			return nil, fmt.Errorf("decode steps: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (r *Repository) SaveTestCases(ctx context.Context, project, module string, cases []models.TestCase) error {
	if err := storage.ValidateName(project); err != nil {
		return err
	}
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, queryDeleteTestCases, project, module); err != nil {
			return fmt.Errorf("clear test cases: %w", err)
		}
		for i, tc := range cases {
			steps, err := encodeList(tc.Steps)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, queryInsertTestCase,
				project, module, tc.TestCaseID, i+1, tc.ScenarioID, tc.TestScenario, tc.FunctionalIntegration,
				tc.TestCaseTitle, tc.PreCondition, tc.TestData, steps, tc.ExpectedResult, tc.ActualResult,
				tc.Status, tc.Comments, tc.Priority, tc.PositiveNegative, tc.EndToEnd,
			); err != nil {
				return fmt.Errorf("insert test case %s: %w", tc.TestCaseID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("test cases saved", map[string]interface{}{
		"project": project,
		"module":  module,
		"count":   len(cases),
	})
	return nil
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(raw), nil
}

func decodeList(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
