package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"directory-engine/internal/common/logger"
)

func TestStartSpan_RecordsErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	obs := New("directory-engine-test", logger.NewNoOpLogger(), WithSpanProcessor(recorder))
	defer obs.Shutdown(context.Background())

	_, span := obs.StartSpan(context.Background(), "createListing", attribute.String("directoryId", "dir-1"))
	EndSpan(span, errors.New("store down"))

	_, plain := obs.StartSpan(context.Background(), "generateSchema")
	EndSpan(plain, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "createListing", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("directoryId", "dir-1"))
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}

func TestNilObservabilityIsSafe(t *testing.T) {
	var obs *Observability
	ctx, span := obs.StartSpan(context.Background(), "noop")
	assert.NotNil(t, ctx)
	EndSpan(span, nil)
	obs.RecordOperation(ctx, "noop", "ok", time.Millisecond)
	assert.NoError(t, obs.Shutdown(ctx))
}
