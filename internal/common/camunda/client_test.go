package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"loan-workers/internal/common/config"
	"loan-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(maxRetries int) *Client {
	return &Client{config: &ClientConfig{
		ConnectionTimeout: time.Second,
		RetryConfig: &RetryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  time.Millisecond,
			MaxDelay:   2 * time.Millisecond,
		},
	}}
}

func TestExecuteWithRetry_RecoversFromTransientError(t *testing.T) {
	attempts := 0
	result, err := testClient(3).ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, stderrors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return "ok", nil
	}, "topology")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	attempts := 0
	_, err := testClient(3).ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		attempts++
		return nil, stderrors.New("process definition not found")
	}, "create-instance")

	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrorCode("RESOURCE_NOT_FOUND"), stdErr.Code)
}

func TestExecuteWithRetry_ExhaustsRetries(t *testing.T) {
	attempts := 0
	_, err := testClient(2).ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		attempts++
		return nil, stderrors.New("context deadline exceeded")
	}, "topology")

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrorCode("TIMEOUT_ERROR"), stdErr.Code)
	assert.Equal(t, 3, attempts)
}

func TestMapZeebeError(t *testing.T) {
	c := testClient(0)
	tests := []struct {
		msg  string
		want errors.ErrorCode
	}{
		{"connection reset by peer", "EXTERNAL_SERVICE_ERROR"},
		{"deadline exceeded", "TIMEOUT_ERROR"},
		{"job not found", "RESOURCE_NOT_FOUND"},
		{"instance already exists", "BUSINESS_RULE_VIOLATION"},
		{"permission denied", "AUTHENTICATION_ERROR"},
		{"something odd", "EXTERNAL_SERVICE_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := c.mapZeebeError(stderrors.New(tt.msg), "op", 0)
			var stdErr *errors.StandardError
			require.True(t, stderrors.As(err, &stdErr))
			assert.Equal(t, tt.want, stdErr.Code)
		})
	}
}

func TestClientConfigFrom(t *testing.T) {
	cfg := ClientConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", RequestTimeout: 5000})

	assert.Equal(t, "zeebe:26500", cfg.GatewayAddress)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.UsePlaintextConnection)
	assert.Equal(t, DefaultRetryConfig, cfg.RetryConfig)
}

func TestRetryConfig_Backoff(t *testing.T) {
	r := &RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	assert.Equal(t, 100*time.Millisecond, r.backoff(0))
	assert.Equal(t, 400*time.Millisecond, r.backoff(2))
	assert.Equal(t, time.Second, r.backoff(4))
	assert.Equal(t, time.Second, r.backoff(70))
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(stderrors.New("rpc error: code = Unavailable")))
	assert.True(t, isRetryableZeebeError(stderrors.New("write: broken pipe")))
	assert.False(t, isRetryableZeebeError(stderrors.New("job not found")))
	assert.False(t, isRetryableZeebeError(stderrors.New("something odd")))
}
