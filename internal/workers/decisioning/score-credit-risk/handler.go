// internal/workers/decisioning/score-credit-risk/handler.go
package scorecreditrisk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"loan-workers/internal/common/config"
	commonerrors "loan-workers/internal/common/errors"
	httpclient "loan-workers/internal/common/http"
	"loan-workers/internal/common/logger"
	"loan-workers/internal/common/metrics"
	"loan-workers/internal/decisioning"
	"loan-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "score-credit-risk"

	cacheKeyPrefix = "loan:risk:"
)

var (
	ErrModelScoringFailed = errors.New("MODEL_SCORING_FAILED")
	ErrModelTimeout       = errors.New("MODEL_TIMEOUT")
)

type Handler struct {
	config *Config
	redis  *redis.Client
	http   *httpclient.Client
	errors *commonerrors.ErrorHandler
	logger logger.Logger
}

// NewHandler wires the classifier client. A nil redis client disables the vote cache.
func NewHandler(config *Config, redis *redis.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		redis:  redis,
		http:   httpclient.NewClient(config.ModelTimeout),
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
		code := h.errors.HandleJobError(context.Background(), client, job, commonerrors.NewParseError(err))
		done(string(code))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		code := h.errors.HandleJobError(context.Background(), client, job, toStandardError(err))
		done(string(code))
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

	applicant, err := decisioning.DecodeApplicant(fields)
	if err != nil {
		return nil, err
	}

	features := applicant.Features()
	digest, err := featureDigest(features)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", decisioning.ErrInvalidInput, err)
	}

	names := config.ModelNames()
	votes := make([]int, len(names))
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i, model := range names {
		wg.Add(1)
		go func(i int, model string) {
			defer wg.Done()
			votes[i], errs[i] = h.scoreModel(ctx, model, digest, features)
		}(i, model)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	scores := make(map[string]int, len(names))
	for i, model := range names {
		scores[model] = votes[i]
		metrics.ModelVotesTotal.WithLabelValues(model, strconv.Itoa(votes[i])).Inc()
	}

	h.logger.Info("applicant scored", map[string]interface{}{
		"applicantId": applicant.ID,
		"votes":       votes,
	})

	return &Output{Votes: votes, ModelScores: scores}, nil
}

func (h *Handler) scoreModel(ctx context.Context, model, digest string, features map[string]interface{}) (int, error) {
	cacheKey := cacheKeyPrefix + model + ":" + digest

	if vote, ok := h.cachedVote(ctx, cacheKey); ok {
		return vote, nil
	}

	endpoint, ok := h.config.Endpoints[model]
	if !ok || endpoint == "" {
		return 0, fmt.Errorf("%w: %s: no endpoint configured", ErrModelScoringFailed, model)
	}

	var resp scoreResponse
	if err := h.http.PostJSON(ctx, endpoint, scoreRequest{Features: features}, &resp); err != nil {
		if isTimeout(err) {
			return 0, fmt.Errorf("%w: %s", ErrModelTimeout, model)
		}
		return 0, fmt.Errorf("%w: %s: %v", ErrModelScoringFailed, model, err)
	}

	if resp.Risk == nil || !models.RiskLabel(*resp.Risk).Valid() {
		return 0, fmt.Errorf("%w: %s: response carried no binary risk label", ErrModelScoringFailed, model)
	}

	if h.redis != nil && h.config.CacheTTL > 0 {
		if err := h.redis.Set(ctx, cacheKey, *resp.Risk, h.config.CacheTTL).Err(); err != nil {
			h.logger.Warn("failed to cache model vote", map[string]interface{}{
				"model": model,
				"error": err,
			})
		}
	}

	return *resp.Risk, nil
}

func (h *Handler) cachedVote(ctx context.Context, key string) (int, bool) {
	if h.redis == nil {
		return 0, false
	}

	val, err := h.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.logger.Warn("vote cache read failed", map[string]interface{}{"error": err})
		}
		return 0, false
	}

	vote, err := strconv.Atoi(val)
	if err != nil || !models.RiskLabel(vote).Valid() {
		return 0, false
	}
	return vote, true
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// featureDigest hashes the feature vector; encoding/json sorts map keys.
func featureDigest(features map[string]interface{}) (string, error) {
	raw, err := json.Marshal(features)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func toStandardError(err error) error {
	if stdErr := commonerrors.FromDecisioningError(err); stdErr != nil {
		return stdErr
	}
	switch {
	case errors.Is(err, ErrModelTimeout):
		return commonerrors.NewModelTimeoutError(err.Error())
	case errors.Is(err, ErrModelScoringFailed):
		return commonerrors.NewModelScoringFailedError("classifier", err)
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
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
