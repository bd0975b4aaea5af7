// Package retriever finds catalog records for a user query, either through
// hybrid vector search or through a vector-free fuzzy keyword fallback.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"chemi/internal/domain"
)

// Common shorthand is expanded before embedding: formulas this short match
// better through their English names.
var abbreviations = map[string]string{
	"NaCl": "sodium chloride",
	"HCl":  "hydrogen chloride",
	"H2O":  "water",
}

// PreprocessQuery trims and expands well-known abbreviations.
func PreprocessQuery(query string) string {
	query = strings.TrimSpace(query)
	if expanded, ok := abbreviations[query]; ok {
		return expanded
	}
	return query
}

// Vector retrieves via hybrid dense+sparse search against the vector store.
type Vector struct {
	embedder  domain.DenseEmbedder
	encoder   domain.SparseEncoder
	store     domain.VectorStore
	threshold float64
	log       *zap.Logger
}

// NewVector creates a hybrid retriever. Results scoring below threshold are
// dropped.
func NewVector(embedder domain.DenseEmbedder, encoder domain.SparseEncoder, store domain.VectorStore, threshold float64, log *zap.Logger) *Vector {
	return &Vector{embedder: embedder, encoder: encoder, store: store, threshold: threshold, log: log}
}

// Search embeds the query both ways and runs a hybrid store query.
func (r *Vector) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	processed := PreprocessQuery(query)
	dense, err := r.embedder.Embed(ctx, processed)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	sparse, err := r.encoder.EncodeQuery(processed)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	results, err := r.store.Query(ctx, dense, sparse, topK)
	if err != nil {
		return nil, err
	}
	filtered := results[:0]
	for _, res := range results {
		if res.Score >= r.threshold {
			filtered = append(filtered, res)
		}
	}
	r.log.Info("hybrid search",
		zap.String("query", query),
		zap.Int("results", len(filtered)),
		zap.Int("unfiltered", len(results)))
	return filtered, nil
}
