// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"loan-workers/internal/audit"
	awsclients "loan-workers/internal/common/aws"
	"loan-workers/internal/common/camunda"
	"loan-workers/internal/common/config"
	"loan-workers/internal/common/database"
	"loan-workers/internal/common/logger"
	"loan-workers/internal/common/observability"
	"loan-workers/internal/decisioning"

	arv "loan-workers/internal/workers/decisioning/aggregate-risk-votes"
	elp "loan-workers/internal/workers/decisioning/evaluate-loan-policy"
	nur "loan-workers/internal/workers/decisioning/notify-underwriting-review"
	rld "loan-workers/internal/workers/decisioning/record-loan-decision"
	scr "loan-workers/internal/workers/decisioning/score-credit-risk"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func workerTimeout(cfg *config.Config, taskType string, fallback time.Duration) time.Duration {
	if ms := config.GetWorkerConfig(cfg, taskType).Timeout; ms > 0 {
		return config.GetDuration(ms)
	}
	return fallback
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	zbClient, err := camunda.NewClient(cfg.Camunda)
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	var pg *database.PostgresClient
	if cfg.Audit.HasSink(audit.SinkPostgres) || config.IsWorkerEnabled(cfg, rld.TaskType) {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Database.Postgres.EnsureSchema {
			if err := pg.EnsureSchema(ctx); err != nil {
				zapLog.Fatal("postgres schema setup failed", zap.Error(err))
			}
		}
		zapLog.Info("PostgreSQL connected successfully")
	}

	var esClient *database.ElasticsearchClient
	if cfg.Audit.HasSink(audit.SinkElasticsearch) {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		if err := esClient.EnsureIndex(ctx, cfg.Audit.ElasticsearchIndex); err != nil {
			zapLog.Fatal("elasticsearch index setup failed", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	var redis *database.RedisClient
	if config.IsWorkerEnabled(cfg, scr.TaskType) {
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully")
	}

	sinks := audit.Sinks{ElasticsearchIndex: cfg.Audit.ElasticsearchIndex}
	if pg != nil {
		sinks.DB = pg.DB
	}
	if esClient != nil {
		sinks.Elasticsearch = esClient.Client
	}
	recorder, err := audit.Build(cfg.Audit.Sinks, sinks, log)
	if err != nil {
		zapLog.Fatal("audit recorder setup failed", zap.Error(err))
	}

	engine := decisioning.NewEngine(cfg.Policy, recorder, log)

	var workers []*camunda.CamundaWorker

	if config.IsWorkerEnabled(cfg, scr.TaskType) {
		handler := scr.NewHandler(
			&scr.Config{
				Endpoints:    cfg.Models.Endpoints,
				ModelTimeout: config.GetDuration(cfg.Models.Timeout),
				CacheTTL:     config.GetDuration(cfg.Models.CacheTTL),
				Timeout:      workerTimeout(cfg, scr.TaskType, 10*time.Second),
			},
			redis.Client, log,
		)
		workers = append(workers, camunda.NewWorker(zbClient.GetClient(), scr.TaskType,
			cfg.Workers[scr.TaskType], obs.Instrument(scr.TaskType, handler.Handle), zapLog))
	}

	if config.IsWorkerEnabled(cfg, arv.TaskType) {
		handler := arv.NewHandler(
			&arv.Config{Timeout: workerTimeout(cfg, arv.TaskType, 5*time.Second)},
			log,
		)
		workers = append(workers, camunda.NewWorker(zbClient.GetClient(), arv.TaskType,
			cfg.Workers[arv.TaskType], obs.Instrument(arv.TaskType, handler.Handle), zapLog))
	}

	if config.IsWorkerEnabled(cfg, elp.TaskType) {
		handler := elp.NewHandler(
			&elp.Config{Timeout: workerTimeout(cfg, elp.TaskType, 5*time.Second)},
			engine, log,
		)
		workers = append(workers, camunda.NewWorker(zbClient.GetClient(), elp.TaskType,
			cfg.Workers[elp.TaskType], obs.Instrument(elp.TaskType, handler.Handle), zapLog))
	}

	if config.IsWorkerEnabled(cfg, rld.TaskType) {
		handler := rld.NewHandler(
			&rld.Config{Timeout: workerTimeout(cfg, rld.TaskType, 10*time.Second)},
			pg.DB, log,
		)
		workers = append(workers, camunda.NewWorker(zbClient.GetClient(), rld.TaskType,
			cfg.Workers[rld.TaskType], obs.Instrument(rld.TaskType, handler.Handle), zapLog))
	}

	if config.IsWorkerEnabled(cfg, nur.TaskType) {
		region := cfg.Notifications.AWS.Region
		sesClient, err := awsclients.NewSESClient(ctx, region)
		if err != nil {
			zapLog.Fatal("failed to create SES client", zap.Error(err))
		}
		snsClient, err := awsclients.NewSNSClient(ctx, region)
		if err != nil {
			zapLog.Fatal("failed to create SNS client", zap.Error(err))
		}

		handler := nur.NewHandler(
			&nur.Config{
				Enabled:      cfg.Notifications.Review.Enabled,
				TopicARN:     cfg.Notifications.Review.TopicARN,
				EmailEnabled: cfg.Notifications.Email.Enabled,
				FromEmail:    cfg.Notifications.Email.FromEmail,
				ToEmails:     cfg.Notifications.Email.ToEmails,
				Timeout:      workerTimeout(cfg, nur.TaskType, 15*time.Second),
			},
			sesClient, snsClient, log,
		)
		workers = append(workers, camunda.NewWorker(zbClient.GetClient(), nur.TaskType,
			cfg.Workers[nur.TaskType], obs.Instrument(nur.TaskType, handler.Handle), zapLog))
	}

	if len(workers) == 0 {
		zapLog.Warn("no workers enabled")
	}
	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := zbClient.HealthCheck(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.App.HTTPAddress, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.App.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}

	if err := zbClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
