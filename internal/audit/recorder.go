// Package audit provides the sinks every loan decision is appended to.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"loan-workers/internal/common/logger"
	"loan-workers/internal/common/metrics"
	"loan-workers/internal/decisioning"
	"loan-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

const (
	SinkLog           = "log"
	SinkPostgres      = "postgres"
	SinkElasticsearch = "elasticsearch"
)

// LogRecorder writes each decision as a structured log entry headed "<OUTCOME> Applicant <id>".
type LogRecorder struct {
	logger logger.Logger
}

func NewLogRecorder(log logger.Logger) *LogRecorder {
	return &LogRecorder{logger: log.WithFields(map[string]interface{}{"audit": true})}
}

func (r *LogRecorder) Record(_ context.Context, event models.AuditEvent) {
	r.logger.Info(event.Headline(), map[string]interface{}{
		"reason":        event.Reason,
		"outcome":       event.Outcome.String(),
		"applicantId":   event.ApplicantRef(),
		"ruleId":        event.RuleID,
		"consensusRisk": int(event.ConsensusRisk),
		"eventId":       event.EventID,
	})
}

// MetricsRecorder counts decisions per outcome and rule.
type MetricsRecorder struct{}

func (MetricsRecorder) Record(_ context.Context, event models.AuditEvent) {
	metrics.DecisionsTotal.WithLabelValues(event.Outcome.String(), event.RuleID).Inc()
	metrics.ConsensusRiskTotal.WithLabelValues(strconv.Itoa(int(event.ConsensusRisk))).Inc()
}

// MultiRecorder fans one event out to several sinks in order.
type MultiRecorder struct {
	recorders []decisioning.AuditRecorder
}

func NewMultiRecorder(recorders ...decisioning.AuditRecorder) *MultiRecorder {
	return &MultiRecorder{recorders: recorders}
}

func (m *MultiRecorder) Record(ctx context.Context, event models.AuditEvent) {
	for _, r := range m.recorders {
		r.Record(ctx, event)
	}
}

// Sinks carries the connections the configured sinks may need.
type Sinks struct {
	DB                 *sql.DB
	Elasticsearch      *elasticsearch.Client
	ElasticsearchIndex string
}

// Build assembles the recorder chain for the named sinks. Metrics are always recorded.
func Build(names []string, sinks Sinks, log logger.Logger) (*MultiRecorder, error) {
	recorders := []decisioning.AuditRecorder{MetricsRecorder{}}

	for _, name := range names {
		switch name {
		case SinkLog:
			recorders = append(recorders, NewLogRecorder(log))
		case SinkPostgres:
			if sinks.DB == nil {
				return nil, fmt.Errorf("audit sink %q requires a postgres connection", name)
			}
			recorders = append(recorders, NewPostgresRecorder(sinks.DB, log))
		case SinkElasticsearch:
			if sinks.Elasticsearch == nil {
				return nil, fmt.Errorf("audit sink %q requires an elasticsearch client", name)
			}
			recorders = append(recorders, NewElasticsearchRecorder(sinks.Elasticsearch, sinks.ElasticsearchIndex, log))
		default:
			return nil, fmt.Errorf("unknown audit sink %q", name)
		}
	}

	return NewMultiRecorder(recorders...), nil
}
