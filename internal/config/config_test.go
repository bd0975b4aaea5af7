package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "GEMINI_API_KEY", cfg.Gemini.APIKeyEnv)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.ChatModel)
	assert.Equal(t, "gemini-embedding-001", cfg.Gemini.EmbedModel)
	assert.Equal(t, 60, cfg.Gemini.TimeoutSecs)
	assert.InDelta(t, 0.1, cfg.Gemini.Temperature, 1e-6)
	assert.Equal(t, "qdrant", cfg.VectorStore.Type)
	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "chemistry_compounds", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.3, cfg.Retrieval.ScoreThreshold, 1e-9)
	assert.InDelta(t, 0.7, cfg.Retrieval.DenseWeight, 1e-9)
	assert.Equal(t, 2, cfg.Retrieval.PrefetchFactor)
	assert.Equal(t, "data/chemistry_data.json", cfg.Data.CatalogFile)
}

func TestLoadAppliesDefaultsToPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9000"
retrieval:
  top_k: 5
vector_store:
  type: memory
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	// untouched sections still get defaults
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.ChatModel)
	assert.InDelta(t, 0.3, cfg.Retrieval.ScoreThreshold, 1e-9)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [broken"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := defaultConfig()
	cfg.Server.Addr = ":7777"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7777", loaded.Server.Addr)
	assert.Equal(t, cfg.Retrieval.TopK, loaded.Retrieval.TopK)
}
