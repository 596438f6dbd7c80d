// internal/workers/decisioning/aggregate-risk-votes/handler_test.go
package aggregateriskvotes

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"loan-workers/internal/common/camunda/camundatest"
	commonerrors "loan-workers/internal/common/errors"
	"loan-workers/internal/common/logger"
	"loan-workers/internal/decisioning"
	"loan-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type testLogger struct {
	t *testing.T
}

func (tl *testLogger) Debug(msg string, fields map[string]interface{}) {
	tl.t.Logf("DEBUG: %s %v", msg, fields)
}

func (tl *testLogger) Info(msg string, fields map[string]interface{}) {
	tl.t.Logf("INFO: %s %v", msg, fields)
}

func (tl *testLogger) Warn(msg string, fields map[string]interface{}) {
	tl.t.Logf("WARN: %s %v", msg, fields)
}

func (tl *testLogger) Error(msg string, fields map[string]interface{}) {
	tl.t.Logf("ERROR: %s %v", msg, fields)
}

func (tl *testLogger) WithFields(fields map[string]interface{}) logger.Logger {
	return tl
}

func (tl *testLogger) WithError(err error) logger.Logger {
	return tl.WithFields(map[string]interface{}{"error": err})
}

func (tl *testLogger) With(fields map[string]interface{}) logger.Logger {
	return tl
}

func newTestLogger(t *testing.T) logger.Logger {
	return &testLogger{t: t}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name     string
		votes    []int
		expected models.RiskLabel
		bad      int
	}{
		{"unanimous good", []int{0, 0, 0}, models.RiskGood, 0},
		{"single bad vote", []int{0, 1, 0}, models.RiskGood, 1},
		{"two bad votes", []int{1, 0, 1}, models.RiskBad, 2},
		{"unanimous bad", []int{1, 1, 1}, models.RiskBad, 3},
	}

	handler := NewHandler(LoadConfig(), newTestLogger(t))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := handler.Execute(context.Background(), &Input{Votes: tt.votes})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, output.ConsensusRisk)
			assert.Equal(t, tt.bad, output.BadVotes)
		})
	}
}

func TestHandler_Execute_InvalidVotes(t *testing.T) {
	handler := NewHandler(LoadConfig(), newTestLogger(t))

	for _, votes := range [][]int{nil, {0, 1}, {0, 1, 2}, {0, 0, 0, 1}} {
		_, err := handler.Execute(context.Background(), &Input{Votes: votes})
		require.Error(t, err)
		assert.True(t, errors.Is(err, decisioning.ErrInvalidInput))
		assert.Equal(t, commonerrors.ErrCodeInvalidInput, commonerrors.Normalize(err).Code)
	}
}

func TestOutput_JSON(t *testing.T) {
	raw, err := json.Marshal(Output{ConsensusRisk: models.RiskBad, BadVotes: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"consensusRisk":1,"badVotes":2}`, string(raw))
}

// ==========================
// Job Handling Tests
// ==========================

func TestHandler_Handle(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		command   string
		errorCode string
	}{
		{name: "completes with consensus", variables: `{"votes":[1,0,1]}`, command: "complete"},
		{name: "invalid votes throw", variables: `{"votes":[1,2,0]}`, command: "throw", errorCode: "INVALID_INPUT"},
		{name: "unparseable variables throw", variables: `{"votes":"high"}`, command: "throw", errorCode: "PARSE_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := camundatest.NewJobClient()
			NewHandler(LoadConfig(), newTestLogger(t)).Handle(client, entities.Job{ActivatedJob: &pb.ActivatedJob{
				Key:       9001,
				Type:      TaskType,
				Retries:   3,
				Variables: tt.variables,
			}})

			cmds := client.Commands()
			require.Len(t, cmds, 1)
			assert.Equal(t, tt.command, cmds[0].Name)
			assert.Equal(t, tt.errorCode, cmds[0].ErrorCode)
			assert.NoError(t, cmds[0].CtxErr)

			if tt.command == "complete" {
				vars := cmds[0].DecodeVariables()
				assert.Equal(t, 1.0, vars["consensusRisk"])
				assert.Equal(t, 2.0, vars["badVotes"])
			}
		})
	}
}
