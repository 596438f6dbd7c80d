// internal/common/camunda/worker.go
package camunda

import (
	"context"

	"loan-workers/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// CamundaWorker is one open job subscription.
type CamundaWorker struct {
	worker   worker.JobWorker
	logger   *zap.Logger
	taskType string
}

// NewWorker opens a job worker for taskType using the per-worker limits.
func NewWorker(
	client zbc.Client,
	taskType string,
	cfg config.WorkerConfig,
	handler worker.JobHandler,
	logger *zap.Logger,
) *CamundaWorker {
	maxJobs := cfg.MaxJobsActive
	if maxJobs == 0 {
		maxJobs = 5
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(maxJobs).
		Timeout(config.GetDuration(cfg.Timeout)).
		Open()

	w := &CamundaWorker{
		worker:   jobWorker,
		logger:   logger,
		taskType: taskType,
	}
	w.logger.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", maxJobs),
		zap.Int("timeoutMs", cfg.Timeout),
	)
	return w
}

func (w *CamundaWorker) TaskType() string {
	return w.taskType
}

// Stop closes the subscription and waits for in-flight jobs.
// The shared zbc client is closed by its owner.
func (w *CamundaWorker) Stop(ctx context.Context) {
	w.logger.Info("stopping worker", zap.String("taskType", w.taskType))

	done := make(chan struct{})
	go func() {
		w.worker.Close()
		w.worker.AwaitClose()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("worker stop timed out", zap.String("taskType", w.taskType))
	}
}
