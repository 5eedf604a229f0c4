package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Point is one vector with its payload, addressed by a stable ID so
// re-upserting the same ID overwrites the previous version.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Match is one search or scroll hit.
type Match struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// FieldFilter restricts a search to points whose payload field equals
// the given value.
type FieldFilter struct {
	Key   string
	Value any
}

// Backend abstracts the vector database operations the store needs.
type Backend interface {
	EnsureCollection(ctx context.Context, name string, dimensions int) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, collection string, points []Point) error
	Search(ctx context.Context, collection string, vector []float32, filters []FieldFilter, limit int) ([]Match, error)
	Scroll(ctx context.Context, collection string, limit int) ([]Match, error)
	Count(ctx context.Context, collection string) (int, error)
}

// QdrantBackend implements Backend against the Qdrant HTTP API.
type QdrantBackend struct {
	BaseURL    string
	HTTPClient *http.Client
}

var _ Backend = (*QdrantBackend)(nil)

// NewQdrant creates a QdrantBackend that communicates with Qdrant via HTTP.
func NewQdrant(url string) *QdrantBackend {
	return &QdrantBackend{
		BaseURL:    strings.TrimRight(url, "/"),
		HTTPClient: &http.Client{},
	}
}

// do issues one JSON request and decodes the response into out when
// non-nil. Non-2xx statuses include the response body in the error.
func (q *QdrantBackend) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := q.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

// EnsureCollection creates the collection if it does not exist yet.
// PUT /collections/{name} with {"vectors": {"size": dims, "distance": "Cosine"}}
func (q *QdrantBackend) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	var exists struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodGet, "/collections/"+name+"/exists", nil, &exists); err != nil {
		return err
	}
	if exists.Result.Exists {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimensions,
			"distance": "Cosine",
		},
	}
	return q.do(ctx, http.MethodPut, "/collections/"+name, body, nil)
}

// DeleteCollection removes a collection.
// DELETE /collections/{name}
func (q *QdrantBackend) DeleteCollection(ctx context.Context, name string) error {
	return q.do(ctx, http.MethodDelete, "/collections/"+name, nil, nil)
}

// Upsert writes points into the collection, overwriting existing IDs.
// PUT /collections/{name}/points
func (q *QdrantBackend) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	wire := make([]map[string]any, 0, len(points))
	for _, p := range points {
		wire = append(wire, map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		})
	}

	body := map[string]any{"points": wire}
	return q.do(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true", body, nil)
}

type qdrantSearchRequest struct {
	Vector      []float32      `json:"vector"`
	Limit       int            `json:"limit"`
	WithPayload bool           `json:"with_payload"`
	Filter      map[string]any `json:"filter,omitempty"`
}

type qdrantHit struct {
	ID      any            `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// Search performs a nearest-neighbor search, optionally restricted by
// payload field filters.
// POST /collections/{name}/points/search
func (q *QdrantBackend) Search(ctx context.Context, collection string, vector []float32, filters []FieldFilter, limit int) ([]Match, error) {
	searchReq := qdrantSearchRequest{
		Vector:      vector,
		Limit:       limit,
		WithPayload: true,
	}

	if len(filters) > 0 {
		must := make([]map[string]any, 0, len(filters))
		for _, f := range filters {
			must = append(must, map[string]any{
				"key":   f.Key,
				"match": map[string]any{"value": f.Value},
			})
		}
		searchReq.Filter = map[string]any{"must": must}
	}

	var searchResp struct {
		Result []qdrantHit `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, "/collections/"+collection+"/points/search", searchReq, &searchResp); err != nil {
		return nil, err
	}

	return toMatches(searchResp.Result), nil
}

// Scroll lists points without a query vector.
// POST /collections/{name}/points/scroll
func (q *QdrantBackend) Scroll(ctx context.Context, collection string, limit int) ([]Match, error) {
	body := map[string]any{
		"limit":        limit,
		"with_payload": true,
	}

	var scrollResp struct {
		Result struct {
			Points []qdrantHit `json:"points"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, "/collections/"+collection+"/points/scroll", body, &scrollResp); err != nil {
		return nil, err
	}

	return toMatches(scrollResp.Result.Points), nil
}

// Count returns the exact number of points in the collection.
// POST /collections/{name}/points/count
func (q *QdrantBackend) Count(ctx context.Context, collection string) (int, error) {
	var countResp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	body := map[string]any{"exact": true}
	if err := q.do(ctx, http.MethodPost, "/collections/"+collection+"/points/count", body, &countResp); err != nil {
		return 0, err
	}
	return countResp.Result.Count, nil
}

func toMatches(hits []qdrantHit) []Match {
	matches := make([]Match, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, Match{
			ID:      fmt.Sprintf("%v", h.ID),
			Score:   h.Score,
			Payload: h.Payload,
		})
	}
	return matches
}
