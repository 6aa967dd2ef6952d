package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"story-workers/internal/common/config"

	_ "github.com/lib/pq"
)

type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// NewPostgresFromDB wraps an existing handle, e.g. one from sqlmock.
func NewPostgresFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{DB: db}
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// WithTx runs fn in a transaction, committing when fn returns nil and
// rolling back otherwise.
func (c *PostgresClient) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// schema creates the approved-collection tables. Steps and acceptance
// criteria are stored as JSON arrays.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS approved_stories (
		project             TEXT    NOT NULL,
		position            INTEGER NOT NULL,
		module              TEXT    NOT NULL,
		title               TEXT    NOT NULL,
		description         TEXT    NOT NULL DEFAULT '',
		acceptance_criteria JSONB   NOT NULL DEFAULT '[]',
		PRIMARY KEY (project, position)
	)`,
	`CREATE TABLE IF NOT EXISTS approved_test_cases (
		project                TEXT    NOT NULL,
		module                 TEXT    NOT NULL,
		testcase_id            TEXT    NOT NULL,
		position               INTEGER NOT NULL,
		scenario_id            TEXT    NOT NULL DEFAULT '',
		test_scenario          TEXT    NOT NULL DEFAULT '',
		functional_integration TEXT    NOT NULL DEFAULT '',
		testcase_title         TEXT    NOT NULL DEFAULT '',
		pre_condition          TEXT    NOT NULL DEFAULT '',
		test_data              TEXT    NOT NULL DEFAULT '',
		steps                  JSONB   NOT NULL DEFAULT '[]',
		expected_result        TEXT    NOT NULL DEFAULT '',
		actual_result          TEXT    NOT NULL DEFAULT '',
		status                 TEXT    NOT NULL DEFAULT '',
		comments               TEXT    NOT NULL DEFAULT '',
		priority               TEXT    NOT NULL DEFAULT '',
		positive_negative      TEXT    NOT NULL DEFAULT '',
		end_to_end             TEXT    NOT NULL DEFAULT '',
		PRIMARY KEY (project, module, testcase_id)
	)`,
}

// EnsureSchema creates missing tables.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
