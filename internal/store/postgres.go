// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"directory-engine/internal/listing"
	"directory-engine/internal/schema"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ErrStore marks failures of the backing database.
var ErrStore = errors.New("store failure")

// Postgres persists directories and listings. Payloads and schemas are JSONB.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) GetDirectory(ctx context.Context, id string) (*listing.Directory, error) {
	var (
		dir       listing.Directory
		rawSchema []byte
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, schema
		FROM directories
		WHERE id = $1`, id).Scan(&dir.ID, &dir.Name, &dir.OwnerID, &rawSchema)
	if err != nil {
		return nil, wrap("get directory", err)
	}

	m, err := schema.FromJSONSchema(rawSchema)
	if err != nil {
		return nil, fmt.Errorf("%w: directory %s has an unreadable schema: %v", ErrStore, id, err)
	}
	dir.Schema = m
	return &dir, nil
}

func (p *Postgres) InsertListing(ctx context.Context, l *listing.Listing) (*listing.Listing, error) {
	out := *l
	if out.ID == "" {
		out.ID = uuid.NewString()
	}

	payload, err := json.Marshal(out.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	err = p.db.QueryRowContext(ctx, `
		INSERT INTO listings (id, directory_id, submitter_id, payload, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		out.ID, out.DirectoryID, out.SubmitterID, payload, string(out.Status),
	).Scan(&out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, wrap("insert listing", err)
	}
	return &out, nil
}

const listingColumns = `id, directory_id, submitter_id, payload, status, created_at, updated_at`

func (p *Postgres) GetListing(ctx context.Context, id string) (*listing.Listing, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE id = $1`, id)
	l, err := scanListing(row)
	if err != nil {
		return nil, wrap("get listing", err)
	}
	return l, nil
}

func (p *Postgres) UpdateListingStatus(ctx context.Context, id string, status listing.Status) (*listing.Listing, error) {
	row := p.db.QueryRowContext(ctx, `
		UPDATE listings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+listingColumns, id, string(status))
	l, err := scanListing(row)
	if err != nil {
		return nil, wrap("update listing status", err)
	}
	return l, nil
}

func (p *Postgres) ListListings(ctx context.Context, directoryID string, f listing.Filter) ([]*listing.Listing, error) {
	var (
		query strings.Builder
		args  = []interface{}{directoryID}
	)
	query.WriteString(`SELECT ` + listingColumns + ` FROM listings WHERE directory_id = $1`)
	if f.Status != "" {
		args = append(args, string(f.Status))
		query.WriteString(fmt.Sprintf(" AND status = $%d", len(args)))
	}
	args = append(args, pageSize(f.Limit), max(f.Offset, 0))
	query.WriteString(fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)))

	rows, err := p.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, wrap("list listings", err)
	}
	defer rows.Close()

	var out []*listing.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, wrap("list listings", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list listings", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(s scanner) (*listing.Listing, error) {
	var (
		l          listing.Listing
		rawPayload []byte
		status     string
	)
	if err := s.Scan(&l.ID, &l.DirectoryID, &l.SubmitterID, &rawPayload, &status, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Status = listing.Status(status)
	if len(rawPayload) > 0 {
		if err := json.Unmarshal(rawPayload, &l.Payload); err != nil {
			return nil, fmt.Errorf("decode payload of %s: %w", l.ID, err)
		}
	}
	if l.Payload == nil {
		l.Payload = schema.Payload{}
	}
	return &l, nil
}

func pageSize(n int) int {
	switch {
	case n <= 0:
		return defaultPageSize
	case n > maxPageSize:
		return maxPageSize
	default:
		return n
	}
}

func wrap(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return listing.ErrNotFound
	}
	return fmt.Errorf("%w: %s: %v", ErrStore, op, err)
}
