// Package api exposes the engine over HTTP with gin.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"directory-engine/internal/common/logger"
	"directory-engine/internal/identity"
	"directory-engine/internal/listing"
	"directory-engine/internal/schema"
	"directory-engine/internal/search"
	"directory-engine/internal/service"
)

// Engine is the operation set served by the router.
type Engine interface {
	GenerateSchema(ctx context.Context, in schema.Interview) (*service.SchemaResponse, error)
	AutofillListing(ctx context.Context, req service.AutofillRequest) (*service.AutofillResponse, error)
	CreateListing(ctx context.Context, actor identity.Identity, req service.CreateListingRequest) (*listing.Listing, error)
	SetListingStatus(ctx context.Context, actor identity.Identity, listingID, status string) (*service.StatusResponse, error)
	GetListing(ctx context.Context, viewer identity.Identity, listingID string) (*listing.Listing, error)
	ListListings(ctx context.Context, viewer identity.Identity, req service.ListRequest) ([]*listing.Listing, error)
	SearchListings(ctx context.Context, req service.SearchRequest) (*search.Results, error)
}

type Options struct {
	Resolver       identity.Resolver
	RequestTimeout time.Duration
	Logger         logger.Logger
}

// NewRouter builds the gin engine. Call gin.SetMode before it to pick the mode.
func NewRouter(engine Engine, opts Options) *gin.Engine {
	log := logger.Component(opts.Logger, "http")
	resolver := opts.Resolver
	if resolver == nil {
		resolver = identity.HeaderResolver{}
	}

	h := &Handler{engine: engine}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), requestTimeout(opts.RequestTimeout))
	r.NoRoute(notFoundRoute)

	apiGroup := r.Group("/api", resolveIdentity(resolver))
	{
		apiGroup.POST("/directories/generate-schema", h.GenerateSchema)
		apiGroup.POST("/directories/:id/autofill", h.AutofillListing)
		apiGroup.POST("/directories/:id/listings", h.CreateListing)
		apiGroup.GET("/directories/:id/listings", h.ListListings)
		apiGroup.GET("/directories/:id/search", h.SearchListings)
		apiGroup.GET("/listings/:id", h.GetListing)
		apiGroup.PUT("/listings/:id/status", h.SetListingStatus)
	}

	return r
}
