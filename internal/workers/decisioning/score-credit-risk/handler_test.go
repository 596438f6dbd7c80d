// internal/workers/decisioning/score-credit-risk/handler_test.go
package scorecreditrisk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	commonerrors "loan-workers/internal/common/errors"
	"loan-workers/internal/common/logger"
	"loan-workers/internal/decisioning"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeModel struct {
	server *httptest.Server
	calls  atomic.Int32
}

// newFakeModel answers every scoring request with risk, or with status when non-2xx.
func newFakeModel(t *testing.T, risk int, status int, delay time.Duration) *fakeModel {
	m := &fakeModel{}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.calls.Add(1)

		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Features) == 0 {
			http.Error(w, "bad features", http.StatusBadRequest)
			return
		}

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if status != http.StatusOK {
			http.Error(w, "model unavailable", status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"risk": risk})
	}))
	t.Cleanup(m.server.Close)
	return m
}

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func createTestConfig(dt, lr, rf *fakeModel) *Config {
	cfg := LoadConfig()
	cfg.ModelTimeout = 200 * time.Millisecond
	cfg.Timeout = 2 * time.Second
	cfg.Endpoints = map[string]string{
		"decision_tree":       dt.server.URL,
		"logistic_regression": lr.server.URL,
		"random_forest":       rf.server.URL,
	}
	return cfg
}

func createTestInput() *Input {
	id := int64(7)
	return &Input{
		ApplicantID: &id,
		Applicant: map[string]interface{}{
			"age":                35,
			"sex":                1,
			"numberOfJobs":       2,
			"housingStatus":      1,
			"savingsLevel":       1,
			"checkingLevel":      2,
			"purposeCode":        3,
			"creditAmount":       5000,
			"loanDurationMonths": 24,
			"creditScore":        680,
			"income":             42000,
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_CollectsVotesInModelOrder(t *testing.T) {
	dt := newFakeModel(t, 0, http.StatusOK, 0)
	lr := newFakeModel(t, 1, http.StatusOK, 0)
	rf := newFakeModel(t, 1, http.StatusOK, 0)
	rdb, _ := setupRedis(t)

	handler := NewHandler(createTestConfig(dt, lr, rf), rdb, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 1}, output.Votes)
	assert.Equal(t, map[string]int{
		"decision_tree":       0,
		"logistic_regression": 1,
		"random_forest":       1,
	}, output.ModelScores)
}

func TestHandler_Execute_CachesVotes(t *testing.T) {
	dt := newFakeModel(t, 0, http.StatusOK, 0)
	lr := newFakeModel(t, 0, http.StatusOK, 0)
	rf := newFakeModel(t, 1, http.StatusOK, 0)
	rdb, mr := setupRedis(t)

	handler := NewHandler(createTestConfig(dt, lr, rf), rdb, logger.NewTestLogger(t))

	first, err := handler.Execute(context.Background(), createTestInput())
	require.NoError(t, err)
	second, err := handler.Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	assert.Equal(t, first.Votes, second.Votes)
	assert.Equal(t, int32(1), dt.calls.Load())
	assert.Equal(t, int32(1), rf.calls.Load())

	var cached []string
	for _, key := range mr.Keys() {
		if strings.HasPrefix(key, "loan:risk:random_forest:") {
			cached = append(cached, key)
		}
	}
	require.Len(t, cached, 1)
	val, err := mr.Get(cached[0])
	require.NoError(t, err)
	assert.Equal(t, "1", val)
	assert.Equal(t, 10*time.Minute, mr.TTL(cached[0]))
}

func TestHandler_Execute_CacheFailuresDoNotFailScoring(t *testing.T) {
	dt := newFakeModel(t, 0, http.StatusOK, 0)
	lr := newFakeModel(t, 1, http.StatusOK, 0)
	rf := newFakeModel(t, 0, http.StatusOK, 0)

	applicant, err := decisioning.DecodeApplicant(createTestInput().Applicant)
	require.NoError(t, err)
	digest, err := featureDigest(applicant.Features())
	require.NoError(t, err)

	redisClient, redisMock := redismock.NewClientMock()
	redisMock.MatchExpectationsInOrder(false)
	for model, vote := range map[string]int{"decision_tree": 0, "logistic_regression": 1, "random_forest": 0} {
		key := cacheKeyPrefix + model + ":" + digest
		redisMock.ExpectGet(key).SetErr(errors.New("redis: connection pool timeout"))
		redisMock.ExpectSet(key, vote, 10*time.Minute).SetErr(errors.New("READONLY replica"))
	}

	handler := NewHandler(createTestConfig(dt, lr, rf), redisClient, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), createTestInput())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, output.Votes)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestHandler_Execute_WithoutRedis(t *testing.T) {
	dt := newFakeModel(t, 1, http.StatusOK, 0)
	lr := newFakeModel(t, 1, http.StatusOK, 0)
	rf := newFakeModel(t, 0, http.StatusOK, 0)

	handler := NewHandler(createTestConfig(dt, lr, rf), nil, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), createTestInput())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 0}, output.Votes)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_ModelUnavailable(t *testing.T) {
	dt := newFakeModel(t, 0, http.StatusOK, 0)
	lr := newFakeModel(t, 0, http.StatusServiceUnavailable, 0)
	rf := newFakeModel(t, 0, http.StatusOK, 0)

	handler := NewHandler(createTestConfig(dt, lr, rf), nil, logger.NewTestLogger(t))

	_, err := handler.Execute(context.Background(), createTestInput())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelScoringFailed))
	assert.Contains(t, err.Error(), "logistic_regression")
}

func TestHandler_Execute_NonBinaryLabel(t *testing.T) {
	dt := newFakeModel(t, 2, http.StatusOK, 0)
	lr := newFakeModel(t, 0, http.StatusOK, 0)
	rf := newFakeModel(t, 0, http.StatusOK, 0)

	handler := NewHandler(createTestConfig(dt, lr, rf), nil, logger.NewTestLogger(t))

	_, err := handler.Execute(context.Background(), createTestInput())
	assert.True(t, errors.Is(err, ErrModelScoringFailed))
}

func TestHandler_Execute_ModelTimeout(t *testing.T) {
	dt := newFakeModel(t, 0, http.StatusOK, 0)
	lr := newFakeModel(t, 0, http.StatusOK, 0)
	rf := newFakeModel(t, 0, http.StatusOK, time.Second)

	cfg := createTestConfig(dt, lr, rf)
	cfg.ModelTimeout = 50 * time.Millisecond
	handler := NewHandler(cfg, nil, logger.NewTestLogger(t))

	_, err := handler.Execute(context.Background(), createTestInput())
	assert.True(t, errors.Is(err, ErrModelTimeout))
}

func TestHandler_Execute_MissingApplicantField(t *testing.T) {
	dt := newFakeModel(t, 0, http.StatusOK, 0)
	handler := NewHandler(createTestConfig(dt, dt, dt), nil, logger.NewTestLogger(t))

	input := createTestInput()
	delete(input.Applicant, "income")

	_, err := handler.Execute(context.Background(), input)

	var missing *decisioning.MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"income"}, missing.Fields)
	assert.Equal(t, int32(0), dt.calls.Load())
}

func TestToStandardError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want commonerrors.ErrorCode
	}{
		{"timeout", errors.Join(ErrModelTimeout, ErrModelScoringFailed), commonerrors.ErrCodeModelTimeout},
		{"scoring", ErrModelScoringFailed, commonerrors.ErrCodeModelScoringFailed},
		{"missing", &decisioning.MissingFieldError{Fields: []string{"age"}}, commonerrors.ErrCodeMissingField},
		{"invalid", decisioning.ErrInvalidInput, commonerrors.ErrCodeInvalidInput},
		{"other", errors.New("boom"), commonerrors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, commonerrors.Normalize(toStandardError(tt.err)).Code)
		})
	}
}

func TestFeatureDigest_StableAcrossMapOrder(t *testing.T) {
	a, err := featureDigest(map[string]interface{}{"Age": 30, "Duration": 12})
	require.NoError(t, err)
	b, err := featureDigest(map[string]interface{}{"Duration": 12, "Age": 30})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}
