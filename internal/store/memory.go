package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"directory-engine/internal/listing"
	"directory-engine/internal/schema"
)

// Memory is an in-process listing.Store for local runs and tests.
type Memory struct {
	mu          sync.RWMutex
	directories map[string]*listing.Directory
	listings    map[string]*listing.Listing
	now         func() time.Time
}

func NewMemory(dirs ...*listing.Directory) *Memory {
	m := &Memory{
		directories: make(map[string]*listing.Directory),
		listings:    make(map[string]*listing.Listing),
		now:         time.Now,
	}
	for _, d := range dirs {
		m.directories[d.ID] = d
	}
	return m
}

func (m *Memory) GetDirectory(_ context.Context, id string) (*listing.Directory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.directories[id]
	if !ok {
		return nil, listing.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *Memory) InsertListing(_ context.Context, l *listing.Listing) (*listing.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := copyListing(l)
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	ts := m.now().UTC()
	out.CreatedAt, out.UpdatedAt = ts, ts
	m.listings[out.ID] = out
	return copyListing(out), nil
}

func (m *Memory) GetListing(_ context.Context, id string) (*listing.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, listing.ErrNotFound
	}
	return copyListing(l), nil
}

func (m *Memory) UpdateListingStatus(_ context.Context, id string, status listing.Status) (*listing.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, listing.ErrNotFound
	}
	l.Status = status
	l.UpdatedAt = m.now().UTC()
	return copyListing(l), nil
}

func (m *Memory) ListListings(_ context.Context, directoryID string, f listing.Filter) ([]*listing.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*listing.Listing
	for _, l := range m.listings {
		if l.DirectoryID != directoryID || (f.Status != "" && l.Status != f.Status) {
			continue
		}
		out = append(out, copyListing(l))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	offset := max(f.Offset, 0)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if size := pageSize(f.Limit); len(out) > size {
		out = out[:size]
	}
	return out, nil
}

func copyListing(l *listing.Listing) *listing.Listing {
	cp := *l
	cp.Payload = make(schema.Payload, len(l.Payload))
	for k, v := range l.Payload {
		cp.Payload[k] = v
	}
	return &cp
}
