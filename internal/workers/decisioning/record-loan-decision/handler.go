// internal/workers/decisioning/record-loan-decision/handler.go
package recordloandecision

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	commonerrors "loan-workers/internal/common/errors"
	"loan-workers/internal/common/logger"
	"loan-workers/internal/common/metrics"
	"loan-workers/internal/decisioning"
	"loan-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	TaskType = "record-loan-decision"

	uniqueViolation = "23505"
)

var (
	ErrDuplicateDecision        = errors.New("DUPLICATE_DECISION")
	ErrDatabaseInsertFailed     = errors.New("DATABASE_INSERT_FAILED")
	ErrDatabaseConnectionFailed = errors.New("DATABASE_CONNECTION_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	errors *commonerrors.ErrorHandler
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
		errors: commonerrors.NewErrorHandler(log),
		logger: log,
		now:    time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := metrics.JobStarted(TaskType)

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		done(string(h.errors.HandleJobError(context.Background(), client, job, commonerrors.NewParseError(err))))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		done(string(h.errors.HandleJobError(context.Background(), client, job, toStandardError(&input, err))))
		return
	}

	h.completeJob(client, job, output)
	done("")
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	exists, err := h.decisionExists(ctx, input.CorrelationID)
	if err != nil {
		if isConnectionError(err) {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseConnectionFailed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseInsertFailed, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: correlationId %s", ErrDuplicateDecision, input.CorrelationID)
	}

	recordID := uuid.New().String()
	recordedAt := h.now().UTC()

	if err := h.insertDecision(ctx, recordID, recordedAt, input); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: correlationId %s", ErrDuplicateDecision, input.CorrelationID)
		}
		h.logger.Error("failed to insert loan decision", map[string]interface{}{
			"correlationId": input.CorrelationID,
			"error":         err,
		})
		return nil, fmt.Errorf("%w: %v", ErrDatabaseInsertFailed, err)
	}

	h.logger.Info("loan decision recorded", map[string]interface{}{
		"decisionRecordId": recordID,
		"correlationId":    input.CorrelationID,
		"status":           input.Status,
	})

	return &Output{
		DecisionRecordID: recordID,
		RecordedAt:       recordedAt.Format(time.RFC3339),
	}, nil
}

func validateInput(input *Input) error {
	if input.CorrelationID == "" {
		return &decisioning.MissingFieldError{Fields: []string{"correlationId"}}
	}
	if models.OutcomeFrom(input.Status) == models.Unknown {
		return fmt.Errorf("%w: unknown status %q", decisioning.ErrInvalidInput, input.Status)
	}
	if !models.RiskLabel(input.ConsensusRisk).Valid() {
		return fmt.Errorf("%w: consensusRisk must be 0 or 1", decisioning.ErrInvalidInput)
	}
	return nil
}

func (h *Handler) decisionExists(ctx context.Context, correlationID string) (bool, error) {
	var exists bool
	err := h.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM loan_decisions WHERE correlation_id = $1
		)`, correlationID).Scan(&exists)
	return exists, err
}

func (h *Handler) insertDecision(ctx context.Context, id string, recordedAt time.Time, input *Input) error {
	var votes interface{}
	if len(input.Votes) > 0 {
		raw, err := json.Marshal(input.Votes)
		if err != nil {
			return err
		}
		votes = string(raw)
	}

	var applicantID sql.NullInt64
	if input.ApplicantID != nil {
		applicantID = sql.NullInt64{Int64: *input.ApplicantID, Valid: true}
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO loan_decisions (
			id, correlation_id, applicant_id, status, reason,
			rule_id, consensus_risk, votes, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id,
		input.CorrelationID,
		applicantID,
		models.OutcomeFrom(input.Status).String(),
		input.Reason,
		input.RuleID,
		input.ConsensusRisk,
		votes,
		recordedAt,
	)
	return err
}

func isConnectionError(err error) bool {
	return errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn)
}

func toStandardError(input *Input, err error) error {
	if stdErr := commonerrors.FromDecisioningError(err); stdErr != nil {
		return stdErr
	}
	switch {
	case errors.Is(err, ErrDuplicateDecision):
		return commonerrors.NewDuplicateDecisionError(input.CorrelationID)
	case errors.Is(err, ErrDatabaseConnectionFailed):
		return commonerrors.NewDatabaseConnectionFailedError(err)
	case errors.Is(err, ErrDatabaseInsertFailed):
		return commonerrors.NewDatabaseInsertFailedError(err)
	default:
		return err
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
