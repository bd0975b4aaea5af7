package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedClient returns canned raw responses in order and records every
// request it saw.
func scriptedClient(temperature float32, responses ...string) (*Client, *[]Request) {
	var seen []Request
	c := &Client{log: zap.NewNop(), model: "test", temperature: temperature}
	c.generateFn = func(_ context.Context, req Request) (string, error) {
		seen = append(seen, req)
		return responses[len(seen)-1], nil
	}
	return c, &seen
}

func TestGenerateStructuredRetriesOnce(t *testing.T) {
	t.Run("malformed then valid succeeds", func(t *testing.T) {
		c, seen := scriptedClient(0, "sorry, here it is:", `{"a": 1}`)

		var out struct {
			A int `json:"a"`
		}
		require.NoError(t, c.GenerateStructured(context.Background(), Request{Prompt: "p"}, &out))
		assert.Equal(t, 1, out.A)

		require.Len(t, *seen, 2)
		assert.Equal(t, "p", (*seen)[0].Prompt)
		assert.Contains(t, (*seen)[1].Prompt, "CHỈ trả về JSON")
	})

	t.Run("malformed twice fails", func(t *testing.T) {
		c, seen := scriptedClient(0, "nope", "still nope")

		var out map[string]any
		err := c.GenerateStructured(context.Background(), Request{Prompt: "p"}, &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed JSON twice")
		assert.Len(t, *seen, 2)
	})

	t.Run("valid response is not retried", func(t *testing.T) {
		c, seen := scriptedClient(0, `{"ok": true}`)

		var out map[string]any
		require.NoError(t, c.GenerateStructured(context.Background(), Request{Prompt: "p"}, &out))
		assert.Len(t, *seen, 1)
	})
}

func TestGenerateStructuredTemperatureDefault(t *testing.T) {
	t.Run("zero request temperature uses client default", func(t *testing.T) {
		c, seen := scriptedClient(0.1, `{}`)
		var out map[string]any
		require.NoError(t, c.GenerateStructured(context.Background(), Request{Prompt: "p"}, &out))
		assert.InDelta(t, 0.1, (*seen)[0].Temperature, 1e-6)
	})

	t.Run("explicit request temperature wins", func(t *testing.T) {
		c, seen := scriptedClient(0.1, `{}`)
		var out map[string]any
		require.NoError(t, c.GenerateStructured(context.Background(),
			Request{Prompt: "p", Temperature: 0.7}, &out))
		assert.InDelta(t, 0.7, (*seen)[0].Temperature, 1e-6)
	})
}

func TestStripFences(t *testing.T) {
	t.Run("plain json passes through", func(t *testing.T) {
		assert.Equal(t, `{"a":1}`, StripFences(`{"a":1}`))
	})

	t.Run("json fence removed", func(t *testing.T) {
		in := "```json\n{\"a\":1}\n```"
		assert.Equal(t, `{"a":1}`, StripFences(in))
	})

	t.Run("bare fence removed", func(t *testing.T) {
		in := "```\n{\"a\":1}\n```"
		assert.Equal(t, `{"a":1}`, StripFences(in))
	})

	t.Run("surrounding whitespace trimmed", func(t *testing.T) {
		assert.Equal(t, `{"a":1}`, StripFences("  {\"a\":1}\n"))
	})
}
