// internal/audit/elasticsearch.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"loan-workers/internal/common/logger"
	"loan-workers/internal/common/metrics"
	"loan-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

const DefaultIndex = "loan-decisions"

type auditDocument struct {
	EventID       string `json:"eventId"`
	Outcome       string `json:"outcome"`
	Reason        string `json:"reason"`
	ApplicantID   *int64 `json:"applicantId"`
	RuleID        string `json:"ruleId"`
	ConsensusRisk int    `json:"consensusRisk"`
	DecidedAt     string `json:"decidedAt"`
}

// ElasticsearchRecorder indexes audit events so reviewers can search past decisions.
type ElasticsearchRecorder struct {
	client  *elasticsearch.Client
	index   string
	logger  logger.Logger
	timeout time.Duration
}

func NewElasticsearchRecorder(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchRecorder {
	if index == "" {
		index = DefaultIndex
	}
	return &ElasticsearchRecorder{
		client:  client,
		index:   index,
		logger:  log.WithFields(map[string]interface{}{"sink": SinkElasticsearch, "index": index}),
		timeout: 5 * time.Second,
	}
}

func (r *ElasticsearchRecorder) Record(ctx context.Context, event models.AuditEvent) {
	body, err := json.Marshal(auditDocument{
		EventID:       event.EventID,
		Outcome:       event.Outcome.String(),
		Reason:        event.Reason,
		ApplicantID:   event.ApplicantID,
		RuleID:        event.RuleID,
		ConsensusRisk: int(event.ConsensusRisk),
		DecidedAt:     event.DecidedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		r.fail("failed to marshal audit document", event, map[string]interface{}{"error": err})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(body),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(event.EventID),
	)
	if err != nil {
		r.fail("audit index request failed", event, map[string]interface{}{"error": err})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		r.fail("audit index rejected", event, map[string]interface{}{"status": res.Status()})
	}
}

func (r *ElasticsearchRecorder) fail(msg string, event models.AuditEvent, fields map[string]interface{}) {
	metrics.AuditWriteFailures.WithLabelValues(SinkElasticsearch).Inc()
	fields["eventId"] = event.EventID
	r.logger.Warn(msg, fields)
}
