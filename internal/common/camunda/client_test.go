package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directory-engine/internal/common/errors"
)

func testClient() *Client {
	return &Client{config: &ClientConfig{
		ConnectionTimeout: time.Second,
		RetryConfig:       &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}}
}

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	calls := 0
	res, err := testClient().ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, stderrors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return "ok", nil
	}, "topology")

	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := testClient().ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("process definition not found")
	}, "createInstance")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, errors.ErrCodeNotFound, errors.Normalize(err).Code)
}

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want errors.ErrorCode
	}{
		{"connection refused", errors.ErrCodeStoreError},
		{"context deadline exceeded", errors.ErrCodeStoreError},
		{"resource not found", errors.ErrCodeNotFound},
		{"instance already exists", errors.ErrCodeInvalidRequest},
		{"permission denied", errors.ErrCodeUnauthenticated},
		{"something odd", errors.ErrCodeStoreError},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := mapZeebeError(stderrors.New(tt.msg), "op", 1)
			assert.Equal(t, tt.want, errors.Normalize(err).Code)
		})
	}
}

func TestExecuteWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	_, err := testClient().ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("gateway unavailable")
	}, "publishMessage")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	stdErr := errors.Normalize(err)
	assert.Equal(t, errors.ErrCodeStoreError, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestExecuteWithRetry_PassesApplicationErrors(t *testing.T) {
	calls := 0
	_, err := testClient().ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, errors.NewInvalidRequestError("bad variables")
	}, "createInstance")

	assert.Equal(t, 1, calls)
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.Normalize(err).Code)
}

func TestExecuteWithRetry_StopsWhenCancelled(t *testing.T) {
	c := testClient()
	c.config.RetryConfig.BaseDelay = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, stderrors.New("connection reset")
	}, "topology")
	assert.Equal(t, errors.ErrCodeStoreError, errors.Normalize(err).Code)
}

func TestApplyClientDefaults(t *testing.T) {
	cfg := &ClientConfig{GatewayAddress: "zeebe:26500"}
	applyClientDefaults(cfg)
	assert.Equal(t, 10*time.Second, cfg.ConnectionTimeout)
	assert.Equal(t, time.Hour, cfg.MessageTTL)
	assert.Same(t, DefaultRetryConfig, cfg.RetryConfig)
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(stderrors.New("Deadline Exceeded")))
	assert.True(t, isRetryableZeebeError(stderrors.New("broken pipe")))
	assert.False(t, isRetryableZeebeError(stderrors.New("invalid argument")))
}
