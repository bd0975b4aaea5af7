package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chemi/internal/domain"
)

func writeCatalogFile(t *testing.T, records []domain.Compound) string {
	t.Helper()
	data, err := json.Marshal(records)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestSyncAndGet(t *testing.T) {
	jsonPath := writeCatalogFile(t, []domain.Compound{
		{DocID: "water", Type: "compound", IUPACName: "water", Formula: "H2O",
			ImagePath: "old/images/water.png", AudioPath: "old/audio/water.wav"},
		{DocID: "fe", Type: "element", IUPACName: "iron", Formula: "Fe",
			ImagePath: "https://cdn.example.com/fe.png",
			AudioPath: "old/audio/elements/fe.wav"},
	})
	store, err := Open(filepath.Join(t.TempDir(), "cat.db"), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Sync(jsonPath, "data/images", "data/audio")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	t.Run("relative paths rewritten", func(t *testing.T) {
		c, err := store.Get("water")
		require.NoError(t, err)
		assert.Equal(t, "data/images/water.png", c.ImagePath)
		assert.Equal(t, "data/audio/water.wav", c.AudioPath)
	})

	t.Run("urls pass through", func(t *testing.T) {
		c, err := store.Get("fe")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/fe.png", c.ImagePath)
	})

	t.Run("element audio keeps elements subdirectory", func(t *testing.T) {
		// pre-generation writes element audio under <audio_dir>/elements/, so
		// the rewritten path must point there too
		c, err := store.Get("fe")
		require.NoError(t, err)
		assert.Equal(t, "data/audio/elements/fe.wav", c.AudioPath)
	})

	t.Run("unknown doc_id", func(t *testing.T) {
		_, err := store.Get("nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("second sync is a no-op", func(t *testing.T) {
		n, err := store.Sync(jsonPath, "data/images", "data/audio")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("count and all", func(t *testing.T) {
		count, err := store.Count()
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		all, err := store.All()
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "fe", all[0].DocID) // ordered by doc_id
	})
}

func TestLoadJSON(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadJSON(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
	})

	t.Run("bad json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
		_, err := LoadJSON(path)
		require.Error(t, err)
	})
}

func TestSaveJSONRoundTrip(t *testing.T) {
	records := []domain.Compound{
		{DocID: "water", Type: "compound", IUPACName: "water", Formula: "H2O"},
		{DocID: "fe", Type: "element", IUPACName: "iron", Formula: "Fe"},
	}
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, SaveJSON(path, records))

	loaded, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestRewritePath(t *testing.T) {
	assert.Equal(t, "", rewritePath("", "data/images"))
	assert.Equal(t, "data/images/x.png", rewritePath("anything/x.png", "data/images"))
	assert.Equal(t, "http://a/b.png", rewritePath("http://a/b.png", "data/images"))
	assert.Equal(t, "data/audio/elements/h.wav", rewritePath("audio/elements/h.wav", "data/audio"))
}
