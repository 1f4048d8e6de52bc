package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directory-engine/internal/listing"
	"directory-engine/internal/schema"
)

func TestMemory_ListListings(t *testing.T) {
	mem := NewMemory(testDirectory())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	mem.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	ctx := context.Background()

	for i, st := range []listing.Status{listing.StatusPending, listing.StatusApproved, listing.StatusPending} {
		_, err := mem.InsertListing(ctx, &listing.Listing{
			ID:          string(rune('a' + i)),
			DirectoryID: "dir-1",
			Status:      st,
		})
		require.NoError(t, err)
	}
	_, err := mem.InsertListing(ctx, &listing.Listing{ID: "z", DirectoryID: "other", Status: listing.StatusPending})
	require.NoError(t, err)

	all, err := mem.ListListings(ctx, "dir-1", listing.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID, "newest first")

	pending, err := mem.ListListings(ctx, "dir-1", listing.Filter{Status: listing.StatusPending, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].ID)

	none, err := mem.ListListings(ctx, "dir-1", listing.Filter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemory_CopiesOnReadAndWrite(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	in := &listing.Listing{DirectoryID: "d", Payload: schema.Payload{"name": schema.String("Acme")}, Status: listing.StatusPending}

	out, err := mem.InsertListing(ctx, in)
	require.NoError(t, err)
	in.Payload["name"] = schema.String("Mutated")
	out.Payload["name"] = schema.String("Mutated")

	got, err := mem.GetListing(ctx, out.ID)
	require.NoError(t, err)
	name, _ := got.Payload["name"].Str()
	assert.Equal(t, "Acme", name)

	_, err = mem.UpdateListingStatus(ctx, "missing", listing.StatusApproved)
	assert.ErrorIs(t, err, listing.ErrNotFound)
}
