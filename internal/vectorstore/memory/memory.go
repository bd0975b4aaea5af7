// Package memory is an in-process vector store used in tests and for running
// without a Qdrant instance. Hybrid scores are a weighted sum of dense and
// sparse cosine similarity.
package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"chemi/internal/domain"
)

// Store is a brute-force hybrid vector store.
type Store struct {
	mu           sync.RWMutex
	dimension    int
	records      []domain.Compound
	dense        [][]float32
	sparse       []domain.SparseVector
	denseWeight  float64
	sparseWeight float64
}

// NewStore creates a store with the given fusion weights. Zero weights fall
// back to 0.7 dense / 0.3 sparse.
func NewStore(denseWeight, sparseWeight float64) *Store {
	if denseWeight == 0 && sparseWeight == 0 {
		denseWeight, sparseWeight = 0.7, 0.3
	}
	return &Store{denseWeight: denseWeight, sparseWeight: sparseWeight}
}

// Recreate resets the store for the given dense dimension.
func (s *Store) Recreate(_ context.Context, denseDim int) error {
	if denseDim <= 0 {
		return errors.New("invalid dense dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = denseDim
	s.records = nil
	s.dense = nil
	s.sparse = nil
	return nil
}

// Upsert appends records with their vector pairs.
func (s *Store) Upsert(_ context.Context, records []domain.Compound, dense [][]float32, sparse []domain.SparseVector) error {
	if len(records) != len(dense) || len(records) != len(sparse) {
		return errors.New("records and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range dense {
		if len(v) != s.dimension {
			return errors.New("dense vector dimension mismatch")
		}
	}
	s.records = append(s.records, records...)
	s.dense = append(s.dense, dense...)
	s.sparse = append(s.sparse, sparse...)
	return nil
}

// Query ranks all records by fused similarity.
func (s *Store) Query(_ context.Context, dense []float32, sparse domain.SparseVector, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 3
	}
	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(s.records))
	for i := range s.records {
		d := cosineDense(s.dense[i], dense)
		sp := cosineSparse(s.sparse[i], sparse)
		scores[i] = scored{i, s.denseWeight*d + s.sparseWeight*sp}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK > len(scores) {
		topK = len(scores)
	}
	results := make([]domain.SearchResult, 0, topK)
	for i := 0; i < topK; i++ {
		results = append(results, domain.SearchResult{
			Compound: s.records[scores[i].idx],
			Score:    scores[i].score,
		})
	}
	return results, nil
}

// Count returns the number of stored records.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func cosineDense(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func cosineSparse(a, b domain.SparseVector) float64 {
	am := make(map[uint32]float64, len(a.Indices))
	var na float64
	for i, idx := range a.Indices {
		v := float64(a.Values[i])
		am[idx] = v
		na += v * v
	}
	var dot, nb float64
	for i, idx := range b.Indices {
		v := float64(b.Values[i])
		nb += v * v
		if av, ok := am[idx]; ok {
			dot += av * v
		}
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
