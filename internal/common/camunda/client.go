// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"loan-workers/internal/common/config"
	"loan-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe gRPC client with enhanced error handling and retry logic.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

// ClientConfig holds configuration for the Camunda/Zeebe client.
type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig defines retry behavior for transient failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig is used when a ClientConfig carries none.
var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// NewClient creates a Camunda client from the camunda config section.
func NewClient(cfg config.CamundaConfig) (*Client, error) {
	return NewClientWithConfig(ClientConfigFrom(cfg))
}

// ClientConfigFrom maps the camunda config section onto a ClientConfig.
func ClientConfigFrom(cfg config.CamundaConfig) *ClientConfig {
	requestTimeout := config.GetDuration(cfg.RequestTimeout)
	if requestTimeout == 0 {
		requestTimeout = 30 * time.Second
	}
	return &ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true, // TLS is terminated by the gateway sidecar
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         requestTimeout,
		RetryConfig:            DefaultRetryConfig,
	}
}

// NewClientWithConfig creates a Camunda client and checks the broker topology,
// retrying transient failures with backoff.
func NewClientWithConfig(cfg *ClientConfig) (*Client, error) {
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = DefaultRetryConfig
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: cfg}

	_, err = c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
		defer cancel()
		return zeebeClient.NewTopologyCommand().Send(ctx)
	}, "topology")
	if err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", cfg.GatewayAddress, err)
	}

	return c, nil
}

// GetClient returns the raw Zeebe client for advanced usage (e.g., job polling).
func (c *Client) GetClient() zbc.Client {
	return c.client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// ExecuteWithRetry runs commandFunc, backing off between transient failures.
// Permanent failures and the final attempt are mapped to a StandardError.
func (c *Client) ExecuteWithRetry(
	ctx context.Context,
	commandFunc func(context.Context) (interface{}, error),
	operationName string,
) (interface{}, error) {
	retry := c.config.RetryConfig

	for attempt := 0; ; attempt++ {
		result, err := commandFunc(ctx)
		if err == nil {
			return result, nil
		}
		if attempt == retry.MaxRetries || !isRetryableZeebeError(err) {
			return nil, c.mapZeebeError(err, operationName, attempt)
		}

		select {
		case <-time.After(retry.backoff(attempt)):
		case <-ctx.Done():
			return nil, fmt.Errorf("operation %s cancelled after %d attempts: %w", operationName, attempt+1, ctx.Err())
		}
	}
}

func (r *RetryConfig) backoff(attempt int) time.Duration {
	delay := r.BaseDelay
	for i := 0; i < attempt && delay < r.MaxDelay; i++ {
		delay *= 2
	}
	if delay > r.MaxDelay {
		return r.MaxDelay
	}
	return delay
}

// zeebeFailure classifies gateway errors by message fragment. Order matters: the first match wins.
type zeebeFailure struct {
	fragments []string
	retryable bool
	build     func(op, msg string) error
}

var zeebeFailures = []zeebeFailure{
	{
		fragments: []string{"connection refused", "connection reset", "unavailable", "unreachable", "broken pipe"},
		retryable: true,
		build: func(op, msg string) error {
			return errors.NewExternalServiceError("zeebe", fmt.Errorf("%s: %s", op, msg))
		},
	},
	{
		fragments: []string{"timeout", "deadline exceeded"},
		retryable: true,
		build: func(op, msg string) error {
			return errors.NewTimeoutError("zeebe", fmt.Errorf("%s: %s", op, msg))
		},
	},
	{
		fragments: []string{"not found"},
		build: func(op, msg string) error {
			return errors.NewResourceNotFoundError("zeebe", fmt.Sprintf("%s: %s", op, msg))
		},
	},
	{
		fragments: []string{"already exists"},
		build: func(op, msg string) error {
			return errors.NewBusinessRuleError(fmt.Sprintf("%s: %s", op, msg), "Resource already exists")
		},
	},
	{
		fragments: []string{"permission denied", "unauthorized"},
		build: func(op, msg string) error {
			return errors.NewAuthenticationError(fmt.Sprintf("%s: %s", op, msg))
		},
	},
}

func classifyZeebeError(err error) (zeebeFailure, bool) {
	msg := strings.ToLower(err.Error())
	for _, f := range zeebeFailures {
		for _, fragment := range f.fragments {
			if strings.Contains(msg, fragment) {
				return f, true
			}
		}
	}
	return zeebeFailure{}, false
}

// isRetryableZeebeError reports whether err is a transient gateway failure.
func isRetryableZeebeError(err error) bool {
	f, ok := classifyZeebeError(err)
	return ok && f.retryable
}

// mapZeebeError converts a gateway error into a StandardError naming the operation.
func (c *Client) mapZeebeError(err error, operation string, attempt int) error {
	op := fmt.Sprintf("Zeebe operation '%s' failed", operation)
	if attempt > 0 {
		op += fmt.Sprintf(" after %d attempts", attempt)
	}

	if f, ok := classifyZeebeError(err); ok {
		return f.build(op, err.Error())
	}
	return errors.NewExternalServiceError("zeebe", fmt.Errorf("%s: %s", op, err.Error()))
}

// HealthCheck performs a basic health check against the Zeebe broker.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	_, err := c.client.NewTopologyCommand().Send(ctx)
	if err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
