// internal/workers/decisioning/aggregate-risk-votes/handler.go
package aggregateriskvotes

import (
	"context"
	"encoding/json"

	commonerrors "loan-workers/internal/common/errors"
	"loan-workers/internal/common/logger"
	"loan-workers/internal/common/metrics"
	"loan-workers/internal/decisioning"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "aggregate-risk-votes"
)

type Handler struct {
	config *Config
	errors *commonerrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
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

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	consensus, err := decisioning.Aggregate(input.Votes)
	if err != nil {
		return nil, err
	}

	bad := 0
	for _, v := range input.Votes {
		bad += v
	}

	h.logger.Debug("votes aggregated", map[string]interface{}{
		"votes":         input.Votes,
		"consensusRisk": int(consensus),
	})

	return &Output{ConsensusRisk: consensus, BadVotes: bad}, nil
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
