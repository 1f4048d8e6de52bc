// Package search mirrors approved listings into Elasticsearch and queries them.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"directory-engine/internal/common/logger"
	"directory-engine/internal/listing"
)

var (
	ErrIndexFailed  = errors.New("SEARCH_INDEX_FAILED")
	ErrSearchFailed = errors.New("SEARCH_QUERY_FAILED")
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "listingId":   {"type": "keyword"},
      "directoryId": {"type": "keyword"},
      "status":      {"type": "keyword"},
      "name":        {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "text":        {"type": "text"},
      "payload":     {"type": "object", "enabled": false},
      "createdAt":   {"type": "date"}
    }
  }
}`

// Document is the indexed form of a listing.
type Document struct {
	ListingID   string                 `json:"listingId"`
	DirectoryID string                 `json:"directoryId"`
	Status      string                 `json:"status"`
	Name        string                 `json:"name"`
	Text        string                 `json:"text"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"createdAt"`
}

type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
		logger: logger.Component(log, "search-indexer"),
	}
}

// EnsureIndex creates the listing index when it does not exist yet.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.index}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = i.client.Indices.Create(i.index,
		i.client.Indices.Create.WithContext(ctx),
		i.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: create index: %s", ErrIndexFailed, res.Status())
	}
	return nil
}

// Sync makes the index reflect the listing: approved listings are upserted,
// anything else is removed.
func (i *Indexer) Sync(ctx context.Context, l *listing.Listing) error {
	if l.Status == listing.StatusApproved {
		return i.put(ctx, l)
	}
	return i.remove(ctx, l.ID)
}

func (i *Indexer) put(ctx context.Context, l *listing.Listing) error {
	body, err := json.Marshal(toDocument(l))
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrIndexFailed, err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: l.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: index %s: %s", ErrIndexFailed, l.ID, res.Status())
	}

	i.logger.Debug("listing indexed", map[string]interface{}{"listingId": l.ID, "index": i.index})
	return nil
}

func (i *Indexer) remove(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: i.index, DocumentID: id}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: delete %s: %s", ErrIndexFailed, id, res.Status())
	}
	return nil
}

func toDocument(l *listing.Listing) Document {
	doc := Document{
		ListingID:   l.ID,
		DirectoryID: l.DirectoryID,
		Status:      l.Status.String(),
		Payload:     l.Payload.Map(),
		CreatedAt:   l.CreatedAt,
	}

	var text []string
	for _, k := range l.Payload.Keys() {
		s, ok := l.Payload[k].Str()
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		if k == "name" {
			doc.Name = s
			continue
		}
		text = append(text, s)
	}
	doc.Text = strings.Join(text, " ")
	return doc
}

// Query is a full-text search over one directory's approved listings.
type Query struct {
	DirectoryID string
	Text        string
	From        int
	Size        int
}

type Hit struct {
	ListingID string                 `json:"listingId"`
	Name      string                 `json:"name"`
	Score     float64                `json:"score"`
	Payload   map[string]interface{} `json:"payload"`
}

type Results struct {
	Total int   `json:"total"`
	Hits  []Hit `json:"hits"`
}

func (i *Indexer) Search(ctx context.Context, q Query) (*Results, error) {
	if q.Size <= 0 || q.Size > 100 {
		q.Size = 20
	}
	if q.From < 0 {
		q.From = 0
	}

	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(body),
		From:  &q.From,
		Size:  &q.Size,
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("%w: %s: %s", ErrSearchFailed, res.Status(), raw)
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Score  float64  `json:"_score"`
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchFailed, err)
	}

	out := &Results{Total: parsed.Hits.Total.Value, Hits: make([]Hit, 0, len(parsed.Hits.Hits))}
	for _, h := range parsed.Hits.Hits {
		out.Hits = append(out.Hits, Hit{
			ListingID: h.Source.ListingID,
			Name:      h.Source.Name,
			Score:     h.Score,
			Payload:   h.Source.Payload,
		})
	}
	sort.SliceStable(out.Hits, func(a, b int) bool { return out.Hits[a].Score > out.Hits[b].Score })
	return out, nil
}

func buildQuery(q Query) map[string]interface{} {
	filter := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"directoryId": q.DirectoryID}},
		map[string]interface{}{"term": map[string]interface{}{"status": listing.StatusApproved.String()}},
	}

	var must []interface{}
	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"name^3", "text"},
				"type":   "best_fields",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
	}
}
