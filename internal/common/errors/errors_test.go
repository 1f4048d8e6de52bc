package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Run("passes through wrapped standard errors", func(t *testing.T) {
		wrapped := fmt.Errorf("create listing: %w", NewValidationFailedError("industry"))
		got := Normalize(wrapped)
		assert.Equal(t, ErrCodeValidationFailed, got.Code)
		assert.Equal(t, "industry", got.Metadata["field"])
	})

	t.Run("deadline becomes store error", func(t *testing.T) {
		got := Normalize(context.DeadlineExceeded)
		assert.Equal(t, ErrCodeStoreError, got.Code)
		assert.True(t, got.Retryable)
	})

	t.Run("unknown error becomes internal", func(t *testing.T) {
		got := Normalize(fmt.Errorf("boom"))
		assert.Equal(t, ErrCodeInternal, got.Code)
		assert.Equal(t, "boom", got.Details)
	})
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidRequest, http.StatusBadRequest},
		{ErrCodeValidationFailed, http.StatusUnprocessableEntity},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeUnauthenticated, http.StatusUnauthorized},
		{ErrCodeStoreError, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestGenericMessagesDoNotLeakDetails(t *testing.T) {
	assert.Equal(t, "Resource not found", NewNotFoundError().Message)
	assert.Equal(t, "Operation not permitted", NewForbiddenError().Message)
	assert.Equal(t, "Internal error", NewStoreError(fmt.Errorf("pq: relation listings does not exist")).Message)
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("store errors retry", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewStoreError(fmt.Errorf("connection refused")))
		assert.Equal(t, "STORE_ERROR", bpmn.Code)
		assert.Equal(t, 3, bpmn.Retries)
	})

	t.Run("validation carries field", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewValidationFailedError("website"))
		require.NotNil(t, bpmn.ErrorVariables)
		assert.Equal(t, 0, bpmn.Retries)
		vars := bpmn.ToErrorVariables()
		assert.Equal(t, "website", vars["field"])
		assert.Equal(t, "VALIDATION_FAILED", vars["errorCode"])
	})
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "STORE", GetErrorCategory(ErrCodeStoreError))
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeGenerationUnavailable))
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeForbidden))
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeUnauthenticated))
	assert.Equal(t, "REQUEST", GetErrorCategory(ErrCodeNotFound))
	assert.Equal(t, "REQUEST", GetErrorCategory(ErrCodeValidationFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
