package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"loan-workers/internal/common/logger"
	"loan-workers/internal/decisioning"
	"loan-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testEvent(applicantID *int64) models.AuditEvent {
	return models.AuditEvent{
		EventID:       "evt-001",
		Outcome:       models.Rejected,
		Reason:        decisioning.ReasonHighRisk,
		ApplicantID:   applicantID,
		RuleID:        decisioning.RuleHighRisk,
		ConsensusRisk: models.RiskBad,
		DecidedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLogRecorder_Record(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	recorder := NewLogRecorder(logger.NewZapAdapter(zap.New(core)))

	id := int64(42)
	recorder.Record(context.Background(), testEvent(&id))
	recorder.Record(context.Background(), testEvent(nil))

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	assert.Equal(t, "REJECTED Applicant 42", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, decisioning.ReasonHighRisk, fields["reason"])
	assert.Equal(t, "Rejected", fields["outcome"])
	assert.Equal(t, "42", fields["applicantId"])
	assert.Equal(t, decisioning.RuleHighRisk, fields["ruleId"])

	assert.Equal(t, "REJECTED Applicant ", entries[1].Message)
	assert.Equal(t, "", entries[1].ContextMap()["applicantId"])
}

func TestPostgresRecorder_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO decision_audit_log`).
		WithArgs(
			"evt-001",
			int64(42),
			"Rejected",
			decisioning.ReasonHighRisk,
			decisioning.RuleHighRisk,
			1,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id := int64(42)
	NewPostgresRecorder(db, logger.NewTestLogger(t)).Record(context.Background(), testEvent(&id))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorder_NullApplicant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO decision_audit_log`).
		WithArgs("evt-001", nil, "Rejected", sqlmock.AnyArg(), sqlmock.AnyArg(), 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	NewPostgresRecorder(db, logger.NewTestLogger(t)).Record(context.Background(), testEvent(nil))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorder_InsertFailureIsLogged(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO decision_audit_log`).
		WillReturnError(errors.New("connection reset"))

	core, logs := observer.New(zap.WarnLevel)
	NewPostgresRecorder(db, logger.NewZapAdapter(zap.New(core))).Record(context.Background(), testEvent(nil))

	assert.NoError(t, mock.ExpectationsWereMet())
	require.Equal(t, 1, logs.FilterMessage("audit log insert failed").Len())
}

type capturedRequest struct {
	method string
	path   string
	body   map[string]interface{}
}

func newESServer(t *testing.T, status int) (*elasticsearch.Client, func() []capturedRequest) {
	var mu sync.Mutex
	var requests []capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)

		mu.Lock()
		requests = append(requests, capturedRequest{method: r.Method, path: r.URL.Path, body: body})
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	return client, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), requests...)
	}
}

func TestElasticsearchRecorder_Record(t *testing.T) {
	client, requests := newESServer(t, http.StatusCreated)

	id := int64(42)
	NewElasticsearchRecorder(client, "", logger.NewTestLogger(t)).Record(context.Background(), testEvent(&id))

	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPut, got[0].method)
	assert.Equal(t, "/loan-decisions/_doc/evt-001", got[0].path)
	assert.Equal(t, "Rejected", got[0].body["outcome"])
	assert.Equal(t, decisioning.RuleHighRisk, got[0].body["ruleId"])
	assert.Equal(t, 42.0, got[0].body["applicantId"])
	assert.Equal(t, "2026-03-01T12:00:00Z", got[0].body["decidedAt"])
}

func TestElasticsearchRecorder_RejectedIsLogged(t *testing.T) {
	client, _ := newESServer(t, http.StatusBadRequest)

	core, logs := observer.New(zap.WarnLevel)
	NewElasticsearchRecorder(client, "custom-index", logger.NewZapAdapter(zap.New(core))).
		Record(context.Background(), testEvent(nil))

	assert.Equal(t, 1, logs.FilterMessage("audit index rejected").Len())
}

type countingRecorder struct {
	mu    sync.Mutex
	count int
}

func (c *countingRecorder) Record(context.Context, models.AuditEvent) {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func TestMultiRecorder_FansOut(t *testing.T) {
	a, b := &countingRecorder{}, &countingRecorder{}
	NewMultiRecorder(a, b).Record(context.Background(), testEvent(nil))

	assert.Equal(t, 1, a.count)
	assert.Equal(t, 1, b.count)
}

func TestBuild(t *testing.T) {
	log := logger.NewTestLogger(t)

	rec, err := Build([]string{SinkLog}, Sinks{}, log)
	require.NoError(t, err)
	assert.Len(t, rec.recorders, 2)

	_, err = Build([]string{SinkPostgres}, Sinks{}, log)
	assert.Error(t, err)

	_, err = Build([]string{SinkElasticsearch}, Sinks{}, log)
	assert.Error(t, err)

	_, err = Build([]string{"kafka"}, Sinks{}, log)
	assert.ErrorContains(t, err, "unknown audit sink")
}
