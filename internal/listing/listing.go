// Package listing holds directory listings, the rules a submitted payload
// must satisfy and the moderation state machine.
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"directory-engine/internal/schema"
)

var (
	ErrNotFound      = errors.New("listing: not found")
	ErrForbidden     = errors.New("listing: forbidden")
	ErrInvalidStatus = errors.New("listing: invalid status")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

func (s Status) String() string { return string(s) }

// Directory is the schema-typed collection a listing belongs to.
type Directory struct {
	ID      string
	Name    string
	OwnerID string
	Schema  *schema.Model
}

type Listing struct {
	ID          string         `json:"id"`
	DirectoryID string         `json:"directoryId"`
	SubmitterID string         `json:"submitterId"`
	Payload     schema.Payload `json:"payload"`
	Status      Status         `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Filter narrows ListListings. A zero Status matches every status.
type Filter struct {
	Status Status
	Limit  int
	Offset int
}

// Store is the persistence collaborator. Implementations return ErrNotFound
// for absent directories and listings.
type Store interface {
	GetDirectory(ctx context.Context, id string) (*Directory, error)
	InsertListing(ctx context.Context, l *Listing) (*Listing, error)
	GetListing(ctx context.Context, id string) (*Listing, error)
	UpdateListingStatus(ctx context.Context, id string, status Status) (*Listing, error)
	ListListings(ctx context.Context, directoryID string, f Filter) ([]*Listing, error)
}
