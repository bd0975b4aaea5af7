package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chemi/internal/domain"
)

type stubEmbedder struct {
	lastText string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.lastText = text
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int { return 3 }

type stubEncoder struct{}

func (stubEncoder) Prepare([]string) error { return nil }
func (stubEncoder) EncodeDocument(string) (domain.SparseVector, error) {
	return domain.SparseVector{}, nil
}
func (stubEncoder) EncodeQuery(string) (domain.SparseVector, error) {
	return domain.SparseVector{}, nil
}

type stubStore struct {
	results []domain.SearchResult
}

func (s *stubStore) Recreate(context.Context, int) error { return nil }
func (s *stubStore) Upsert(context.Context, []domain.Compound, [][]float32, []domain.SparseVector) error {
	return nil
}
func (s *stubStore) Query(context.Context, []float32, domain.SparseVector, int) ([]domain.SearchResult, error) {
	return s.results, nil
}
func (s *stubStore) Count(context.Context) (int, error) { return len(s.results), nil }
func (s *stubStore) Close() error                       { return nil }

func TestPreprocessQuery(t *testing.T) {
	assert.Equal(t, "sodium chloride", PreprocessQuery("NaCl"))
	assert.Equal(t, "water", PreprocessQuery("  H2O  "))
	assert.Equal(t, "ethanol", PreprocessQuery("ethanol"))
}

func TestVectorSearchThreshold(t *testing.T) {
	store := &stubStore{results: []domain.SearchResult{
		{Compound: domain.Compound{DocID: "water"}, Score: 0.9},
		{Compound: domain.Compound{DocID: "ethanol"}, Score: 0.1},
	}}
	r := NewVector(&stubEmbedder{}, stubEncoder{}, store, 0.3, zap.NewNop())

	res, err := r.Search(context.Background(), "water", 3)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "water", res[0].Compound.DocID)
}

func TestVectorSearchExpandsAbbreviations(t *testing.T) {
	emb := &stubEmbedder{}
	r := NewVector(emb, stubEncoder{}, &stubStore{}, 0.3, zap.NewNop())

	_, err := r.Search(context.Background(), "NaCl", 3)
	require.NoError(t, err)
	assert.Equal(t, "sodium chloride", emb.lastText)
}
