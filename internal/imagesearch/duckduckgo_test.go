package imagesearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(zap.NewNop())
	c.baseURL = srv.URL
	return c
}

func TestFirstImageURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			assert.Equal(t, "images", r.URL.Query().Get("iax"))
			w.Write([]byte(`<html><script>vqd="123-456"</script></html>`))
		case "/i.js":
			assert.Equal(t, "123-456", r.URL.Query().Get("vqd"))
			assert.Equal(t, "ethanol structure", r.URL.Query().Get("q"))
			w.Write([]byte(`{"results":[{"image":"https://img.example.com/ethanol.png"}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	url, err := c.FirstImageURL(context.Background(), "ethanol structure")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/ethanol.png", url)
}

func TestFirstImageURLNoResults(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Write([]byte(`vqd='99'`))
		case "/i.js":
			calls++
			w.Write([]byte(`{"results":[]}`))
		}
	})
	c.attempts = 2

	_, err := c.FirstImageURL(context.Background(), "nothing")
	require.ErrorIs(t, err, ErrNoResults)
	assert.Equal(t, 2, calls, "transient failures are retried")
}

func TestVqdTokenMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>no token here</html>`))
	})
	c.attempts = 1

	_, err := c.FirstImageURL(context.Background(), "water")
	require.Error(t, err)
}

func TestFirstImageURLHonorsContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FirstImageURL(ctx, "water")
	require.Error(t, err)
}
