// internal/audit/postgres.go
package audit

import (
	"context"
	"database/sql"
	"time"

	"loan-workers/internal/common/logger"
	"loan-workers/internal/common/metrics"
	"loan-workers/internal/models"
)

const insertAuditSQL = `
		INSERT INTO decision_audit_log (
			event_id, applicant_id, outcome, reason, rule_id, consensus_risk, decided_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

// PostgresRecorder appends audit events to the decision_audit_log table.
// A failed insert is logged and counted; it never fails the decision.
type PostgresRecorder struct {
	db      *sql.DB
	logger  logger.Logger
	timeout time.Duration
}

func NewPostgresRecorder(db *sql.DB, log logger.Logger) *PostgresRecorder {
	return &PostgresRecorder{
		db:      db,
		logger:  log.WithFields(map[string]interface{}{"sink": SinkPostgres}),
		timeout: 5 * time.Second,
	}
}

func (r *PostgresRecorder) Record(ctx context.Context, event models.AuditEvent) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var applicantID sql.NullInt64
	if event.ApplicantID != nil {
		applicantID = sql.NullInt64{Int64: *event.ApplicantID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, insertAuditSQL,
		event.EventID,
		applicantID,
		event.Outcome.String(),
		event.Reason,
		event.RuleID,
		int(event.ConsensusRisk),
		event.DecidedAt,
	)
	if err != nil {
		metrics.AuditWriteFailures.WithLabelValues(SinkPostgres).Inc()
		r.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":   err,
			"eventId": event.EventID,
			"ruleId":  event.RuleID,
		})
	}
}
