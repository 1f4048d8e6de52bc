// Package service implements the engine's request operations on top of the
// schema, generation, validation and workflow components.
package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "directory-engine/internal/common/errors"
	"directory-engine/internal/common/logger"
	"directory-engine/internal/common/metrics"
	"directory-engine/internal/common/observability"
	"directory-engine/internal/identity"
	"directory-engine/internal/listing"
	"directory-engine/internal/schema"
	"directory-engine/internal/search"
	"directory-engine/internal/synthesis"
	"directory-engine/internal/synthetic"
)

const (
	OpGenerateSchema   = "generateSchema"
	OpAutofillListing  = "autofillListing"
	OpCreateListing    = "createListing"
	OpSetListingStatus = "setListingStatus"
	OpGetListing       = "getListing"
	OpListListings     = "listListings"
	OpSearchListings   = "searchListings"

	sourceAI       = "ai"
	sourceFallback = "fallback"

	defaultNotifyTimeout = 5 * time.Second
)

// SchemaSynthesizer produces a schema for an interview and never fails.
type SchemaSynthesizer interface {
	Synthesize(ctx context.Context, in schema.Interview) synthesis.Result
}

// ListingGenerator is the model-backed autofill source.
type ListingGenerator interface {
	GenerateListingData(ctx context.Context, m *schema.Model, entityName, entityURL string) (schema.Payload, error)
}

type Notifier interface {
	ListingCreated(ctx context.Context, dir *listing.Directory, l *listing.Listing)
	StatusChanged(ctx context.Context, l *listing.Listing, previous listing.Status, actorID string)
}

type Indexer interface {
	Sync(ctx context.Context, l *listing.Listing) error
	Search(ctx context.Context, q search.Query) (*search.Results, error)
}

type Engine struct {
	store       listing.Store
	workflow    *listing.Workflow
	synthesizer SchemaSynthesizer
	generator   ListingGenerator
	fallback    *synthetic.Generator
	notifiers   []Notifier
	notifyAfter time.Duration
	indexer     Indexer
	obs         *observability.Observability
	logger      logger.Logger
}

type Option func(*Engine)

// WithNotifier adds a listener for listing events. Listeners run in the
// order they were added.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifiers = append(e.notifiers, n) }
}

// WithNotifyTimeout bounds each notifier call. Non-positive values keep the
// default.
func WithNotifyTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.notifyAfter = d
		}
	}
}

func WithIndexer(i Indexer) Option { return func(e *Engine) { e.indexer = i } }

func WithObservability(o *observability.Observability) Option {
	return func(e *Engine) { e.obs = o }
}

// WithFallbackGenerator replaces the autofill fallback generator.
func WithFallbackGenerator(g *synthetic.Generator) Option {
	return func(e *Engine) { e.fallback = g }
}

// New builds an Engine. generator may be nil, in which case autofill always
// uses synthetic data.
func New(store listing.Store, synthesizer SchemaSynthesizer, generator ListingGenerator, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		workflow:    listing.NewWorkflow(store),
		synthesizer: synthesizer,
		generator:   generator,
		fallback:    synthetic.New(synthetic.AutofillPolicy),
		notifyAfter: defaultNotifyTimeout,
		logger:      logger.Component(log, "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateSchema synthesizes a directory schema from an interview. Model
// failures are absorbed; the response flags when the fallback was used.
func (e *Engine) GenerateSchema(ctx context.Context, in schema.Interview) (resp *SchemaResponse, err error) {
	ctx, done := e.begin(ctx, OpGenerateSchema)
	defer func() { done(err) }()

	if strings.TrimSpace(in.DirectoryType) == "" {
		return nil, apperrors.NewInvalidRequestError("directoryType is required")
	}

	res := e.synthesizer.Synthesize(ctx, in)
	metrics.GenerationOutcomes.WithLabelValues(OpGenerateSchema, source(res.Fallback)).Inc()

	return &SchemaResponse{Schema: res.Schema, Sample: res.Sample, Fallback: res.Fallback}, nil
}

// AutofillListing pre-populates a listing for entityName. The model is
// tried once; any failure falls back to synthetic data.
func (e *Engine) AutofillListing(ctx context.Context, req AutofillRequest) (resp *AutofillResponse, err error) {
	ctx, done := e.begin(ctx, OpAutofillListing, attribute.String("directoryId", req.DirectoryID))
	defer func() { done(err) }()

	entityName := strings.TrimSpace(req.EntityName)
	if strings.TrimSpace(req.DirectoryID) == "" || entityName == "" {
		return nil, apperrors.NewInvalidRequestError("directoryId and entityName are required")
	}

	dir, err := e.store.GetDirectory(ctx, req.DirectoryID)
	if err != nil {
		return nil, toStandardError(err)
	}

	model := schemaOf(dir)
	if e.generator != nil {
		payload, genErr := e.generator.GenerateListingData(ctx, model, entityName, strings.TrimSpace(req.EntityURL))
		if genErr == nil {
			metrics.GenerationOutcomes.WithLabelValues(OpAutofillListing, sourceAI).Inc()
			return &AutofillResponse{Payload: payload}, nil
		}
		e.logger.Warn("autofill fell back to synthetic data", map[string]interface{}{
			"directoryId": req.DirectoryID,
			"error":       genErr,
		})
	}

	metrics.GenerationOutcomes.WithLabelValues(OpAutofillListing, sourceFallback).Inc()
	return &AutofillResponse{Payload: e.fallback.Generate(model, entityName), Fallback: true}, nil
}

// CreateListing validates a submission against its directory's schema and
// stores it with the status the workflow decides for the submitter.
func (e *Engine) CreateListing(ctx context.Context, actor identity.Identity, req CreateListingRequest) (created *listing.Listing, err error) {
	ctx, done := e.begin(ctx, OpCreateListing, attribute.String("directoryId", req.DirectoryID))
	defer func() { done(err) }()

	if strings.TrimSpace(req.DirectoryID) == "" || req.Payload == nil {
		return nil, apperrors.NewInvalidRequestError("directoryId and payload are required")
	}
	if !actor.Authenticated() {
		return nil, apperrors.NewUnauthenticatedError("creating a listing requires a signed-in user")
	}

	dir, err := e.store.GetDirectory(ctx, req.DirectoryID)
	if err != nil {
		return nil, toStandardError(err)
	}

	model := schemaOf(dir)
	if err := listing.Validate(model, req.Payload); err != nil {
		return nil, e.rejectSubmission(err)
	}
	// optional values that do not fit their declared type are stored as sent
	payload := req.Payload.CoerceLenient(model)

	status := listing.Decide(actor, dir)
	created, err = e.store.InsertListing(ctx, &listing.Listing{
		DirectoryID: dir.ID,
		SubmitterID: actor.UserID,
		Payload:     payload,
		Status:      status,
	})
	if err != nil {
		return nil, toStandardError(err)
	}

	metrics.ListingsCreated.WithLabelValues(status.String()).Inc()
	e.logger.Info("listing created", map[string]interface{}{
		"listingId":   created.ID,
		"directoryId": dir.ID,
		"status":      status.String(),
	})

	e.notify(ctx, func(ctx context.Context, n Notifier) { n.ListingCreated(ctx, dir, created) })
	e.sync(ctx, created)
	return created, nil
}

// SetListingStatus moves a listing to approved or rejected on behalf of an
// admin.
func (e *Engine) SetListingStatus(ctx context.Context, actor identity.Identity, listingID, status string) (resp *StatusResponse, err error) {
	ctx, done := e.begin(ctx, OpSetListingStatus, attribute.String("listingId", listingID))
	defer func() { done(err) }()

	if strings.TrimSpace(listingID) == "" || strings.TrimSpace(status) == "" {
		return nil, apperrors.NewInvalidRequestError("listingId and status are required")
	}
	target, err := listing.ParseStatus(status)
	if err != nil {
		return nil, toStandardError(err)
	}
	if !actor.Authenticated() {
		return nil, apperrors.NewUnauthenticatedError("changing a listing status requires a signed-in user")
	}

	res, err := e.workflow.Transition(ctx, listingID, target, actor)
	if err != nil {
		return nil, toStandardError(err)
	}

	metrics.ListingTransitions.WithLabelValues(target.String(), boolLabel(res.Changed)).Inc()
	if res.Changed {
		e.logger.Info("listing status changed", map[string]interface{}{
			"listingId": listingID,
			"from":      res.Previous.String(),
			"to":        target.String(),
			"actorId":   actor.UserID,
		})
		e.notify(ctx, func(ctx context.Context, n Notifier) {
			n.StatusChanged(ctx, res.Listing, res.Previous, actor.UserID)
		})
		e.sync(ctx, res.Listing)
	}

	return &StatusResponse{Listing: res.Listing, Previous: res.Previous, Changed: res.Changed}, nil
}

// GetListing returns a listing the viewer may see. Listings the viewer may
// not see are reported as not found.
func (e *Engine) GetListing(ctx context.Context, viewer identity.Identity, listingID string) (l *listing.Listing, err error) {
	ctx, done := e.begin(ctx, OpGetListing, attribute.String("listingId", listingID))
	defer func() { done(err) }()

	if strings.TrimSpace(listingID) == "" {
		return nil, apperrors.NewInvalidRequestError("listingId is required")
	}

	l, err = e.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, toStandardError(err)
	}

	var dir *listing.Directory
	if l.Status != listing.StatusApproved && !viewer.IsAdmin() {
		if dir, err = e.store.GetDirectory(ctx, l.DirectoryID); err != nil && !isNotFound(err) {
			return nil, toStandardError(err)
		}
	}
	if !listing.CanView(viewer, dir, l) {
		return nil, apperrors.NewNotFoundError()
	}
	return l, nil
}

// ListListings pages through a directory. Callers that cannot moderate the
// directory only see approved listings.
func (e *Engine) ListListings(ctx context.Context, viewer identity.Identity, req ListRequest) (out []*listing.Listing, err error) {
	ctx, done := e.begin(ctx, OpListListings, attribute.String("directoryId", req.DirectoryID))
	defer func() { done(err) }()

	if strings.TrimSpace(req.DirectoryID) == "" {
		return nil, apperrors.NewInvalidRequestError("directoryId is required")
	}

	filter := listing.Filter{Limit: req.Limit, Offset: req.Offset}
	if req.Status != "" {
		if filter.Status, err = listing.ParseStatus(req.Status); err != nil {
			return nil, toStandardError(err)
		}
	}

	dir, err := e.store.GetDirectory(ctx, req.DirectoryID)
	if err != nil {
		return nil, toStandardError(err)
	}
	if !listing.CanModerate(viewer, dir) {
		if filter.Status != "" && filter.Status != listing.StatusApproved {
			return []*listing.Listing{}, nil
		}
		filter.Status = listing.StatusApproved
	}

	out, err = e.store.ListListings(ctx, dir.ID, filter)
	if err != nil {
		return nil, toStandardError(err)
	}
	if out == nil {
		out = []*listing.Listing{}
	}
	return out, nil
}

// SearchListings runs a full-text query over a directory's approved listings.
func (e *Engine) SearchListings(ctx context.Context, req SearchRequest) (res *search.Results, err error) {
	ctx, done := e.begin(ctx, OpSearchListings, attribute.String("directoryId", req.DirectoryID))
	defer func() { done(err) }()

	if strings.TrimSpace(req.DirectoryID) == "" {
		return nil, apperrors.NewInvalidRequestError("directoryId is required")
	}
	if e.indexer == nil {
		return nil, apperrors.NewInvalidRequestError("search is not enabled")
	}
	if _, err := e.store.GetDirectory(ctx, req.DirectoryID); err != nil {
		return nil, toStandardError(err)
	}

	res, err = e.indexer.Search(ctx, search.Query{
		DirectoryID: req.DirectoryID,
		Text:        req.Query,
		From:        req.Offset,
		Size:        req.Limit,
	})
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	return res, nil
}

func (e *Engine) rejectSubmission(err error) error {
	stdErr := toStandardError(err)
	if field, ok := stdErr.Metadata["field"].(string); ok {
		metrics.ValidationFailures.WithLabelValues(field).Inc()
	}
	return stdErr
}

// notify runs call for every notifier, each under its own deadline.
// Cancelling the request does not cancel a notifier.
func (e *Engine) notify(ctx context.Context, call func(context.Context, Notifier)) {
	base := context.WithoutCancel(ctx)
	for _, n := range e.notifiers {
		nctx, cancel := context.WithTimeout(base, e.notifyAfter)
		call(nctx, n)
		cancel()
	}
}

// schemaOf returns the directory's schema, or an empty one when none is set.
func schemaOf(dir *listing.Directory) *schema.Model {
	if dir == nil || dir.Schema == nil {
		return schema.MustNew("", nil, nil)
	}
	return dir.Schema
}

// sync mirrors the listing into the search index. Index failures are logged.
func (e *Engine) sync(ctx context.Context, l *listing.Listing) {
	if e.indexer == nil {
		return
	}
	if err := e.indexer.Sync(ctx, l); err != nil {
		e.logger.Warn("failed to sync listing to search index", map[string]interface{}{
			"listingId": l.ID,
			"error":     err,
		})
	}
}

// begin opens a span for op and returns the function that closes it and
// records the outcome.
func (e *Engine) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := e.obs.StartSpan(ctx, op, attrs...)
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = string(apperrors.Normalize(err).Code)
		}
		elapsed := time.Since(start)
		metrics.RequestDuration.WithLabelValues(op, outcome).Observe(elapsed.Seconds())
		e.obs.RecordOperation(ctx, op, outcome, elapsed)
		observability.EndSpan(span, err)
	}
}

func source(fallback bool) string {
	if fallback {
		return sourceFallback
	}
	return sourceAI
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
