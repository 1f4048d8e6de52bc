// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"directory-engine/internal/common/errors"
)

// Client owns the Zeebe gateway connection shared by the job workers and the
// review process launcher.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	// MessageTTL is how long a published message waits for a subscriber.
	MessageTTL  time.Duration
	RetryConfig *RetryConfig
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// NewClient connects over plaintext with default timeouts.
func NewClient(address string) (*Client, error) {
	return NewClientWithConfig(&ClientConfig{
		GatewayAddress:         address,
		UsePlaintextConnection: true,
	})
}

// NewClientWithConfig dials the gateway and waits for a topology response.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	applyClientDefaults(config)

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: config}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectionTimeout)
	defer cancel()

	_, err = c.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return zeebeClient.NewTopologyCommand().Send(ctx)
	}, "topology")
	if err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", config.GatewayAddress, err)
	}

	return c, nil
}

func applyClientDefaults(config *ClientConfig) {
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = 10 * time.Second
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if config.MessageTTL <= 0 {
		config.MessageTTL = time.Hour
	}
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}
}

// GetClient returns the raw Zeebe client for job workers.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// StartProcess creates an instance of the latest deployed version of
// bpmnProcessID and returns its key.
func (c *Client) StartProcess(ctx context.Context, bpmnProcessID string, variables interface{}) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	res, err := c.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		cmd, err := c.client.NewCreateInstanceCommand().
			BPMNProcessId(bpmnProcessID).
			LatestVersion().
			VariablesFromObject(variables)
		if err != nil {
			return nil, errors.NewInvalidRequestError(fmt.Sprintf("encode process variables: %v", err))
		}
		return cmd.Send(ctx)
	}, "createInstance:"+bpmnProcessID)
	if err != nil {
		return 0, err
	}

	type instanceKeyer interface{ GetProcessInstanceKey() int64 }
	if r, ok := res.(instanceKeyer); ok {
		return r.GetProcessInstanceKey(), nil
	}
	return 0, nil
}

// PublishMessage publishes a message correlated by correlationKey.
func (c *Client) PublishMessage(ctx context.Context, name, correlationKey string, variables interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	_, err := c.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		cmd, err := c.client.NewPublishMessageCommand().
			MessageName(name).
			CorrelationKey(correlationKey).
			TimeToLive(c.config.MessageTTL).
			VariablesFromObject(variables)
		if err != nil {
			return nil, errors.NewInvalidRequestError(fmt.Sprintf("encode message variables: %v", err))
		}
		return cmd.Send(ctx)
	}, "publishMessage:"+name)
	return err
}

// ExecuteWithRetry runs command with exponential backoff. Only transient
// gateway errors are retried; the final error is an application error.
func (c *Client) ExecuteWithRetry(
	ctx context.Context,
	command func(context.Context) (interface{}, error),
	operation string,
) (interface{}, error) {
	retry := c.config.RetryConfig
	delay := retry.BaseDelay

	for attempt := 0; ; attempt++ {
		result, err := command(ctx)
		if err == nil {
			return result, nil
		}
		if _, ok := err.(*errors.StandardError); ok {
			return nil, err
		}
		if attempt >= retry.MaxRetries || !isRetryableZeebeError(err) {
			return nil, mapZeebeError(err, operation, attempt)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, errors.NewStoreError(fmt.Errorf("zeebe %s cancelled after %d attempts: %w", operation, attempt+1, ctx.Err()))
		}
		if delay *= 2; delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}
	}
}

var retryablePhrases = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"deadline exceeded",
	"unavailable",
	"unreachable",
	"broken pipe",
	"resource_exhausted",
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// mapZeebeError converts a gateway error into an application error. Broker
// trouble is a store failure as far as the engine is concerned.
func mapZeebeError(err error, operation string, attempt int) error {
	lower := strings.ToLower(err.Error())
	wrapped := fmt.Errorf("zeebe %s failed after %d attempts: %w", operation, attempt+1, err)

	switch {
	case strings.Contains(lower, "not found"):
		return errors.NewNotFoundError()
	case strings.Contains(lower, "already exists"):
		return errors.NewInvalidRequestError(wrapped.Error())
	case strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "unauthenticated"),
		strings.Contains(lower, "unauthorized"):
		return errors.NewUnauthenticatedError(wrapped.Error())
	default:
		return errors.NewStoreError(wrapped)
	}
}

// HealthCheck asks the gateway for its topology.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
