// internal/workers/directory/create-listing/handler.go
package createlisting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "directory-engine/internal/common/errors"
	"directory-engine/internal/common/logger"
	"directory-engine/internal/common/metrics"
	"directory-engine/internal/identity"
	"directory-engine/internal/listing"
	"directory-engine/internal/service"
)

const TaskType = "create-listing"

type Engine interface {
	CreateListing(ctx context.Context, actor identity.Identity, req service.CreateListingRequest) (*listing.Listing, error)
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

// Execute validates and stores a submission on behalf of the process actor.
// The status decision is the engine's; listingStatus lets the process branch
// into a review task when the listing is pending.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	created, err := h.engine.CreateListing(ctx, input.Actor(h.config.AdminRole), service.CreateListingRequest{
		DirectoryID: input.DirectoryID,
		Payload:     input.Payload,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("listing created", map[string]interface{}{
		"listingId":   created.ID,
		"directoryId": created.DirectoryID,
		"status":      created.Status.String(),
	})

	return &Output{
		ListingID:     created.ID,
		ListingStatus: created.Status,
		Listing:       created,
	}, nil
}
