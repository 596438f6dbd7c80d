// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"loan-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// schemaStatements create the decision tables when ensure_schema is on.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS loan_decisions (
		id              UUID PRIMARY KEY,
		correlation_id  TEXT NOT NULL UNIQUE,
		applicant_id    BIGINT,
		status          TEXT NOT NULL,
		reason          TEXT NOT NULL,
		rule_id         TEXT NOT NULL,
		consensus_risk  SMALLINT NOT NULL,
		votes           JSONB,
		recorded_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS decision_audit_log (
		event_id        TEXT PRIMARY KEY,
		applicant_id    BIGINT,
		outcome         TEXT NOT NULL,
		reason          TEXT NOT NULL,
		rule_id         TEXT NOT NULL,
		consensus_risk  SMALLINT NOT NULL,
		decided_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_decision_audit_log_applicant ON decision_audit_log (applicant_id)`,
}

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres creates a new PostgreSQL client
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

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// EnsureSchema creates the loan_decisions and decision_audit_log tables if absent.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
