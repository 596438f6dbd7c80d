// internal/workers/decisioning/evaluate-loan-policy/handler.go
package evaluateloanpolicy

import (
	"context"
	"encoding/json"
	"fmt"

	commonerrors "loan-workers/internal/common/errors"
	"loan-workers/internal/common/logger"
	"loan-workers/internal/common/metrics"
	"loan-workers/internal/decisioning"
	"loan-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "evaluate-loan-policy"
)

type Handler struct {
	config *Config
	engine *decisioning.Engine
	errors *commonerrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, engine *decisioning.Engine, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		engine: engine,
		errors: commonerrors.NewErrorHandler(log),
		logger: log,
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
		done(string(h.errors.HandleJobError(context.Background(), client, job, err)))
		return
	}

	h.completeJob(client, job, output)
	done("")
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	fields := make(map[string]interface{}, len(input.Applicant)+1)
	for k, v := range input.Applicant {
		fields[k] = v
	}
	if input.ApplicantID != nil {
		if _, ok := fields["id"]; !ok {
			fields["id"] = *input.ApplicantID
		}
	}

	var (
		decision  models.Decision
		consensus models.RiskLabel
		err       error
	)

	switch {
	case input.ConsensusRisk != nil:
		consensus = models.RiskLabel(*input.ConsensusRisk)
		decision, err = h.engine.DecideFields(ctx, fields, consensus)
	case len(input.Votes) > 0:
		decision, consensus, err = h.engine.Evaluate(ctx, fields, input.Votes)
	default:
		return nil, fmt.Errorf("%w: consensusRisk or votes is required", decisioning.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}

	h.logger.Info("loan decision made", map[string]interface{}{
		"status":      decision.Status.String(),
		"ruleId":      decision.RuleID,
		"applicantId": decision.ApplicantID,
	})

	return &Output{
		Status:         decision.Status,
		Reason:         decision.Reason,
		ApplicantID:    decision.ApplicantID,
		RuleID:         decision.RuleID,
		RequiresReview: decision.Status == models.FlaggedForReview,
		ConsensusRisk:  consensus,
	}, nil
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
