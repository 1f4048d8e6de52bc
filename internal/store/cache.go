// internal/store/cache.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"directory-engine/internal/common/logger"
	"directory-engine/internal/listing"
	"directory-engine/internal/schema"
)

const directoryKeyPrefix = "directory:schema:"

type cachedDirectory struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	OwnerID string          `json:"ownerId"`
	Schema  json.RawMessage `json:"schema"`
}

// Cached serves directory lookups from redis and delegates everything else.
// Redis failures degrade to the backing store.
type Cached struct {
	listing.Store
	rdb    redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCached(backing listing.Store, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *Cached {
	return &Cached{
		Store:  backing,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.Component(log, "directory-cache"),
	}
}

func (c *Cached) GetDirectory(ctx context.Context, id string) (*listing.Directory, error) {
	key := directoryKeyPrefix + id

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		dir, decodeErr := decodeDirectory(data)
		if decodeErr == nil {
			return dir, nil
		}
		c.logger.Warn("dropping unreadable cache entry", map[string]interface{}{"key": key, "error": decodeErr})
		c.rdb.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err})
	}

	dir, err := c.Store.GetDirectory(ctx, id)
	if err != nil {
		return nil, err
	}

	if encoded, encErr := encodeDirectory(dir); encErr == nil {
		if setErr := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); setErr != nil {
			c.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": setErr})
		}
	}
	return dir, nil
}

func encodeDirectory(dir *listing.Directory) ([]byte, error) {
	var raw json.RawMessage
	if dir.Schema != nil {
		b, err := json.Marshal(dir.Schema)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(cachedDirectory{ID: dir.ID, Name: dir.Name, OwnerID: dir.OwnerID, Schema: raw})
}

func decodeDirectory(data []byte) (*listing.Directory, error) {
	var entry cachedDirectory
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	dir := &listing.Directory{ID: entry.ID, Name: entry.Name, OwnerID: entry.OwnerID}
	if len(entry.Schema) > 0 {
		m, err := schema.FromJSONSchema(entry.Schema)
		if err != nil {
			return nil, err
		}
		dir.Schema = m
	}
	return dir, nil
}
