// internal/decisioning/engine.go
package decisioning

import (
	"context"
	"fmt"
	"time"

	"loan-workers/internal/common/logger"
	"loan-workers/internal/models"

	"github.com/google/uuid"
)

// AuditRecorder appends one audit record per decision.
// Implementations must be safe for concurrent use and handle their own failures.
type AuditRecorder interface {
	Record(ctx context.Context, event models.AuditEvent)
}

// Engine applies the ordered policy to an applicant and records every decision it makes.
type Engine struct {
	policy   *Policy
	recorder AuditRecorder
	logger   logger.Logger
	now      func() time.Time
}

func NewEngine(cfg PolicyConfig, recorder AuditRecorder, log logger.Logger) *Engine {
	return &Engine{
		policy:   NewPolicy(cfg),
		recorder: recorder,
		logger:   log.WithFields(map[string]interface{}{"component": "decision-engine"}),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) Policy() *Policy {
	return e.policy
}

// Decide evaluates the applicant against the rule table; the first matching rule wins.
func (e *Engine) Decide(ctx context.Context, applicant models.ApplicantRecord, consensus models.RiskLabel) (models.Decision, error) {
	if !consensus.Valid() {
		return models.Decision{}, fmt.Errorf("%w: consensus risk must be 0 or 1, got %d", ErrInvalidInput, consensus)
	}

	rule, ok := e.policy.Evaluate(applicant, consensus)
	if !ok {
		return models.Decision{}, fmt.Errorf("%w: no rule matched", ErrInvalidInput)
	}

	decision := decisionFor(rule, applicant.ID)

	e.recorder.Record(ctx, models.AuditEvent{
		EventID:       uuid.New().String(),
		Outcome:       decision.Status,
		Reason:        decision.Reason,
		ApplicantID:   decision.ApplicantID,
		RuleID:        decision.RuleID,
		ConsensusRisk: consensus,
		DecidedAt:     e.now(),
	})

	e.logger.Debug("decision made", map[string]interface{}{
		"ruleId":        rule.ID,
		"status":        decision.Status.String(),
		"consensusRisk": int(consensus),
	})

	return decision, nil
}

// DecideFields decodes raw applicant variables before deciding.
func (e *Engine) DecideFields(ctx context.Context, fields map[string]interface{}, consensus models.RiskLabel) (models.Decision, error) {
	applicant, err := DecodeApplicant(fields)
	if err != nil {
		return models.Decision{}, err
	}
	return e.Decide(ctx, applicant, consensus)
}

// Process aggregates the three model votes and decides on the consensus.
func (e *Engine) Process(ctx context.Context, applicant models.ApplicantRecord, votes []int) (models.Decision, models.RiskLabel, error) {
	consensus, err := Aggregate(votes)
	if err != nil {
		return models.Decision{}, 0, err
	}
	decision, err := e.Decide(ctx, applicant, consensus)
	return decision, consensus, err
}

// Evaluate runs the full pipeline: decode, aggregate, decide.
// Every input error surfaces before anything is recorded.
func (e *Engine) Evaluate(ctx context.Context, fields map[string]interface{}, votes []int) (models.Decision, models.RiskLabel, error) {
	applicant, err := DecodeApplicant(fields)
	if err != nil {
		return models.Decision{}, 0, err
	}
	return e.Process(ctx, applicant, votes)
}

func decisionFor(rule Rule, applicantID *int64) models.Decision {
	var d models.Decision
	switch rule.Outcome {
	case models.Rejected:
		d = Reject(rule.Reason, applicantID)
	case models.FlaggedForReview:
		d = Flag(rule.Reason, applicantID)
	default:
		d = Approve(rule.Reason, applicantID)
	}
	d.RuleID = rule.ID
	return d
}

func Reject(reason string, applicantID *int64) models.Decision {
	return models.Decision{Status: models.Rejected, Reason: reason, ApplicantID: applicantID}
}

func Flag(reason string, applicantID *int64) models.Decision {
	return models.Decision{Status: models.FlaggedForReview, Reason: reason, ApplicantID: applicantID}
}

func Approve(reason string, applicantID *int64) models.Decision {
	return models.Decision{Status: models.Approved, Reason: reason, ApplicantID: applicantID}
}
