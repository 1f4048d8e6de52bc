package listing

import (
	"context"
	"fmt"

	"directory-engine/internal/identity"
)

// Decide picks the initial status of a validated submission. Admins and the
// directory owner skip moderation.
func Decide(submitter identity.Identity, dir *Directory) Status {
	if submitter.IsAdmin() {
		return StatusApproved
	}
	if dir != nil && submitter.Owns(dir.OwnerID) {
		return StatusApproved
	}
	return StatusPending
}

// TransitionResult reports the listing after a transition and whether the
// stored status changed.
type TransitionResult struct {
	Listing  *Listing
	Previous Status
	Changed  bool
}

// Workflow moves listings between moderation states.
type Workflow struct {
	store Store
}

func NewWorkflow(store Store) *Workflow {
	return &Workflow{store: store}
}

// Transition sets a listing to approved or rejected on behalf of actor.
// The target is checked first, then the actor's capability and only then
// whether the listing exists, so callers without ADMIN learn nothing about
// which ids are taken. Re-applying the current status succeeds with
// Changed=false and does not write.
func (w *Workflow) Transition(ctx context.Context, listingID string, target Status, actor identity.Identity) (*TransitionResult, error) {
	if target != StatusApproved && target != StatusRejected {
		return nil, fmt.Errorf("%w: %q is not a transition target", ErrInvalidStatus, target)
	}
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	current, err := w.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if current.Status == target {
		return &TransitionResult{Listing: current, Previous: current.Status}, nil
	}

	updated, err := w.store.UpdateListingStatus(ctx, listingID, target)
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Listing: updated, Previous: current.Status, Changed: true}, nil
}

// CanView reports whether viewer may read a listing of dir.
func CanView(viewer identity.Identity, dir *Directory, l *Listing) bool {
	switch {
	case viewer.IsAdmin():
		return true
	case dir != nil && viewer.Owns(dir.OwnerID):
		return true
	case l != nil && viewer.Owns(l.SubmitterID):
		return true
	case l != nil && l.Status == StatusApproved:
		return true
	}
	return false
}

// CanModerate reports whether viewer may list every listing of dir.
func CanModerate(viewer identity.Identity, dir *Directory) bool {
	return viewer.IsAdmin() || (dir != nil && viewer.Owns(dir.OwnerID))
}
