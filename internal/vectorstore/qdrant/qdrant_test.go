package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chemi/internal/domain"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStore(Config{
		URL:            srv.URL,
		APIKey:         "secret",
		Collection:     "chemistry_compounds",
		PrefetchFactor: 2,
	}, zap.NewNop())
}

func TestRecreate(t *testing.T) {
	var deleted bool
	var created map[string]any
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		switch r.Method {
		case http.MethodDelete:
			deleted = true
		case http.MethodPut:
			assert.Equal(t, "/collections/chemistry_compounds", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		}
		w.Write([]byte(`{"result":true,"status":"ok"}`))
	})

	require.NoError(t, s.Recreate(context.Background(), 768))
	assert.True(t, deleted)

	dense := created["vectors"].(map[string]any)["dense"].(map[string]any)
	assert.Equal(t, float64(768), dense["size"])
	assert.Equal(t, "Cosine", dense["distance"])
	assert.Contains(t, created["sparse_vectors"], "sparse")
}

func TestRecreateRejectsBadDimension(t *testing.T) {
	s := NewStore(Config{URL: "http://unused", Collection: "c"}, zap.NewNop())
	require.Error(t, s.Recreate(context.Background(), 0))
}

func TestUpsert(t *testing.T) {
	var body map[string]any
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/collections/chemistry_compounds/points", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"result":{"status":"acknowledged"}}`))
	})

	records := []domain.Compound{{DocID: "water", IUPACName: "water", Formula: "H2O"}}
	dense := [][]float32{{0.1, 0.2}}
	sparse := []domain.SparseVector{{Indices: []uint32{3}, Values: []float32{1.5}}}
	require.NoError(t, s.Upsert(context.Background(), records, dense, sparse))

	points := body["points"].([]any)
	require.Len(t, points, 1)
	point := points[0].(map[string]any)
	assert.Equal(t, float64(0), point["id"])
	payload := point["payload"].(map[string]any)
	assert.Equal(t, "water", payload["doc_id"])
	vector := point["vector"].(map[string]any)
	assert.Contains(t, vector, "dense")
	assert.Contains(t, vector, "sparse")
}

func TestUpsertLengthMismatch(t *testing.T) {
	s := NewStore(Config{URL: "http://unused", Collection: "c"}, zap.NewNop())
	err := s.Upsert(context.Background(), []domain.Compound{{DocID: "x"}}, nil, nil)
	require.Error(t, err)
}

func TestQuery(t *testing.T) {
	var body map[string]any
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/chemistry_compounds/points/query", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"result":{"points":[
			{"score":0.91,"payload":{"doc_id":"water","iupac_name":"water","formula":"H2O","type":"compound"}},
			{"score":0.42,"payload":{"doc_id":"ethanol","iupac_name":"ethanol","formula":"C2H6O","type":"compound"}}
		]}}`))
	})

	res, err := s.Query(context.Background(), []float32{0.5},
		domain.SparseVector{Indices: []uint32{1}, Values: []float32{2}}, 3)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "water", res[0].Compound.DocID)
	assert.InDelta(t, 0.91, res[0].Score, 1e-9)

	t.Run("hybrid request shape", func(t *testing.T) {
		prefetch := body["prefetch"].([]any)
		require.Len(t, prefetch, 2)
		first := prefetch[0].(map[string]any)
		assert.Equal(t, "dense", first["using"])
		assert.Equal(t, float64(6), first["limit"]) // topK * prefetch factor
		fusion := body["query"].(map[string]any)
		assert.Equal(t, "rrf", fusion["fusion"])
		assert.Equal(t, float64(3), body["limit"])
		assert.Equal(t, true, body["with_payload"])
	})
}

func TestCount(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/chemistry_compounds/points/count", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, true, req["exact"])
		w.Write([]byte(`{"result":{"count":118}}`))
	})

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 118, n)
}

func TestErrorStatusSurfaces(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	})
	_, err := s.Count(context.Background())
	require.Error(t, err)
}
