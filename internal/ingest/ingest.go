// Package ingest builds the vector collection from the compound catalog.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"chemi/internal/domain"
)

// Embedding batches stay under the API's per-request content limit.
const batchSize = 100

// Ingestor embeds catalog records and writes them to the vector store.
type Ingestor struct {
	embedder domain.DenseEmbedder
	encoder  domain.SparseEncoder
	store    domain.VectorStore
	log      *zap.Logger
}

// New creates an ingestor.
func New(embedder domain.DenseEmbedder, encoder domain.SparseEncoder, store domain.VectorStore, log *zap.Logger) *Ingestor {
	return &Ingestor{embedder: embedder, encoder: encoder, store: store, log: log}
}

// Run recreates the collection and indexes every record with a dense and a
// sparse vector. It returns the number of points the store holds afterwards.
func (in *Ingestor) Run(ctx context.Context, records []domain.Compound) (int, error) {
	if len(records) == 0 {
		return 0, fmt.Errorf("ingest: no records to index")
	}
	corpus := Corpus(records)

	if err := in.encoder.Prepare(corpus); err != nil {
		return 0, fmt.Errorf("prepare sparse encoder: %w", err)
	}
	sparse := make([]domain.SparseVector, len(corpus))
	for i, text := range corpus {
		v, err := in.encoder.EncodeDocument(text)
		if err != nil {
			return 0, fmt.Errorf("encode document %s: %w", records[i].DocID, err)
		}
		sparse[i] = v
	}

	dense := make([][]float32, 0, len(corpus))
	for start := 0; start < len(corpus); start += batchSize {
		end := min(start+batchSize, len(corpus))
		vecs, err := in.embedder.EmbedBatch(ctx, corpus[start:end])
		if err != nil {
			return 0, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		dense = append(dense, vecs...)
		in.log.Info("embedded batch", zap.Int("from", start), zap.Int("to", end))
	}

	if err := in.store.Recreate(ctx, in.embedder.Dimension()); err != nil {
		return 0, fmt.Errorf("recreate collection: %w", err)
	}
	if err := in.store.Upsert(ctx, records, dense, sparse); err != nil {
		return 0, fmt.Errorf("upsert points: %w", err)
	}

	count, err := in.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("verify count: %w", err)
	}
	if count != len(records) {
		return count, fmt.Errorf("ingest: indexed %d of %d records", count, len(records))
	}
	in.log.Info("ingest complete", zap.Int("records", count))
	return count, nil
}

// Corpus returns the indexable text for each record, in record order.
func Corpus(records []domain.Compound) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.SearchableText()
	}
	return out
}
