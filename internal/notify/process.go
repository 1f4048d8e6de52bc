package notify

import (
	"context"

	"directory-engine/internal/common/logger"
	"directory-engine/internal/listing"
)

const (
	// ReviewProcessID is the BPMN process started for every pending listing.
	ReviewProcessID = "listing-review"
	// StatusChangedMessage is correlated to a running review by listing id.
	StatusChangedMessage = "listing-status-changed"
)

// ProcessEngine is the part of the Zeebe client the review launcher needs.
type ProcessEngine interface {
	StartProcess(ctx context.Context, bpmnProcessID string, variables interface{}) (int64, error)
	PublishMessage(ctx context.Context, name, correlationKey string, variables interface{}) error
}

type reviewVariables struct {
	ListingID     string `json:"listingId"`
	DirectoryID   string `json:"directoryId"`
	DirectoryName string `json:"directoryName,omitempty"`
	SubmitterID   string `json:"submitterId"`
	ListingStatus string `json:"listingStatus"`
}

type statusVariables struct {
	ListingStatus  string `json:"listingStatus"`
	PreviousStatus string `json:"previousStatus"`
	ActorID        string `json:"actorId"`
}

// ReviewProcess hands pending listings to a BPMN review process and tells it
// when a decision was made elsewhere.
type ReviewProcess struct {
	engine ProcessEngine
	logger logger.Logger
}

func NewReviewProcess(engine ProcessEngine, log logger.Logger) *ReviewProcess {
	return &ReviewProcess{engine: engine, logger: logger.Component(log, "review-process")}
}

func (r *ReviewProcess) ListingCreated(ctx context.Context, dir *listing.Directory, l *listing.Listing) {
	if l.Status != listing.StatusPending {
		return
	}

	vars := reviewVariables{
		ListingID:     l.ID,
		DirectoryID:   l.DirectoryID,
		SubmitterID:   l.SubmitterID,
		ListingStatus: l.Status.String(),
	}
	if dir != nil {
		vars.DirectoryName = dir.Name
	}

	key, err := r.engine.StartProcess(ctx, ReviewProcessID, vars)
	if err != nil {
		r.logger.Warn("failed to start review process", map[string]interface{}{
			"listingId": l.ID,
			"error":     err,
		})
		return
	}
	r.logger.Info("review process started", map[string]interface{}{
		"listingId":          l.ID,
		"processInstanceKey": key,
	})
}

func (r *ReviewProcess) StatusChanged(ctx context.Context, l *listing.Listing, previous listing.Status, actorID string) {
	err := r.engine.PublishMessage(ctx, StatusChangedMessage, l.ID, statusVariables{
		ListingStatus:  l.Status.String(),
		PreviousStatus: previous.String(),
		ActorID:        actorID,
	})
	if err != nil {
		r.logger.Warn("failed to publish status message", map[string]interface{}{
			"listingId": l.ID,
			"error":     err,
		})
	}
}
