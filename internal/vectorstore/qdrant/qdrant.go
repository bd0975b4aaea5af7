// Package qdrant is a minimal REST client for a Qdrant collection holding
// named dense+sparse vector pairs per compound record.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"chemi/internal/domain"
)

// Config configures the Qdrant client.
type Config struct {
	URL            string
	APIKey         string
	Collection     string
	Timeout        time.Duration
	PrefetchFactor int // per-branch prefetch limit = topK * PrefetchFactor
}

// Store talks to one Qdrant collection over its REST API.
type Store struct {
	url            string
	apiKey         string
	collection     string
	prefetchFactor int
	client         *http.Client
	log            *zap.Logger
}

// NewStore creates a Qdrant store client.
func NewStore(cfg Config, log *zap.Logger) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	pf := cfg.PrefetchFactor
	if pf <= 0 {
		pf = 2
	}
	return &Store{
		url:            cfg.URL,
		apiKey:         cfg.APIKey,
		collection:     cfg.Collection,
		prefetchFactor: pf,
		client:         &http.Client{Timeout: timeout},
		log:            log,
	}
}

type sparseVectorJSON struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// Recreate drops the collection if present and creates it with a named dense
// cosine vector and a named sparse vector.
func (s *Store) Recreate(ctx context.Context, denseDim int) error {
	if denseDim <= 0 {
		return errors.New("invalid dense dimension")
	}
	// Drop is best-effort: a missing collection is fine.
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil)
	if err != nil {
		return err
	}
	s.setHeaders(req)
	if resp, err := s.client.Do(req); err == nil {
		resp.Body.Close()
	}

	body := map[string]any{
		"vectors": map[string]any{
			"dense": map[string]any{
				"size":     denseDim,
				"distance": "Cosine",
			},
		},
		// Sparse weights are computed client-side (BM25), so no modifier.
		"sparse_vectors": map[string]any{
			"sparse": map[string]any{},
		},
	}
	if err := s.do(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s", s.url, s.collection), body, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.log.Info("collection created",
		zap.String("collection", s.collection), zap.Int("dense_dim", denseDim))
	return nil
}

// Upsert writes one point per record, with the full record as payload.
func (s *Store) Upsert(ctx context.Context, records []domain.Compound, dense [][]float32, sparse []domain.SparseVector) error {
	if len(records) != len(dense) || len(records) != len(sparse) {
		return errors.New("records and vectors length mismatch")
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id": i,
			"vector": map[string]any{
				"dense":  dense[i],
				"sparse": sparseVectorJSON{Indices: sparse[i].Indices, Values: sparse[i].Values},
			},
			"payload": r,
		}
	}
	body := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body, nil); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

// Query runs a hybrid query: dense and sparse prefetch branches fused with
// reciprocal rank fusion server-side.
func (s *Store) Query(ctx context.Context, dense []float32, sparse domain.SparseVector, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 3
	}
	prefetchLimit := topK * s.prefetchFactor
	body := map[string]any{
		"prefetch": []map[string]any{
			{
				"query": dense,
				"using": "dense",
				"limit": prefetchLimit,
			},
			{
				"query": sparseVectorJSON{Indices: sparse.Indices, Values: sparse.Values},
				"using": "sparse",
				"limit": prefetchLimit,
			},
		},
		"query":        map[string]any{"fusion": "rrf"},
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result struct {
			Points []struct {
				Score   float64         `json:"score"`
				Payload domain.Compound `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/query", s.url, s.collection), body, &resp); err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		results = append(results, domain.SearchResult{Compound: p.Payload, Score: p.Score})
	}
	return results, nil
}

// Count returns the exact number of points in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/count", s.url, s.collection),
		map[string]any{"exact": true}, &resp); err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return resp.Result.Count, nil
}

// Close is a no-op; the client holds no persistent connections.
func (s *Store) Close() error { return nil }

func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}

func (s *Store) do(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	s.setHeaders(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
