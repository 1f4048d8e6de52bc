// internal/workers/directory/autofill-listing/handler.go
package autofilllisting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "directory-engine/internal/common/errors"
	"directory-engine/internal/common/logger"
	"directory-engine/internal/common/metrics"
	"directory-engine/internal/service"
)

const TaskType = "autofill-listing"

type Engine interface {
	AutofillListing(ctx context.Context, req service.AutofillRequest) (*service.AutofillResponse, error)
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

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
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

// Execute drafts a payload for the entity against the directory schema.
// A draft is returned even when the model is down; only an unknown
// directory or a malformed request fails the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	resp, err := h.engine.AutofillListing(ctx, service.AutofillRequest{
		DirectoryID: input.DirectoryID,
		EntityName:  input.EntityName,
		EntityURL:   input.EntityURL,
	})
	if err != nil {
		return nil, err
	}

	if resp.Fallback {
		h.logger.Warn("autofill used synthetic draft", map[string]interface{}{
			"directoryId": input.DirectoryID,
			"entityName":  input.EntityName,
		})
	}

	return &Output{Payload: resp.Payload, Fallback: resp.Fallback}, nil
}
