// internal/workers/directory/generate-schema/handler.go
package generateschema

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "directory-engine/internal/common/errors"
	"directory-engine/internal/common/logger"
	"directory-engine/internal/common/metrics"
	"directory-engine/internal/schema"
	"directory-engine/internal/service"
)

const TaskType = "generate-schema"

// Engine is the slice of the listing engine this worker drives.
type Engine interface {
	GenerateSchema(ctx context.Context, in schema.Interview) (*service.SchemaResponse, error)
}

type Handler struct {
	config *Config
	engine Engine
	logger logger.Logger
	errors *apperrors.ErrorHandler
}

func NewHandler(config *Config, engine Engine, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = logger.Component(log, TaskType).WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		engine: engine,
		logger: log,
		errors: apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// Execute synthesizes a schema for the interview. The engine falls back to
// a derived schema, so the only failure is a malformed interview.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	resp, err := h.engine.GenerateSchema(ctx, input.Interview())
	if err != nil {
		return nil, err
	}

	h.logger.Debug("schema generated", map[string]interface{}{
		"directoryType": input.DirectoryType,
		"fields":        resp.Schema.Len(),
		"fallback":      resp.Fallback,
	})

	return &Output{
		Schema:   resp.Schema,
		Sample:   resp.Sample,
		Fallback: resp.Fallback,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}
