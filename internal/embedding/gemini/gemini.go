// Package gemini provides the dense half of hybrid search: semantic
// embeddings from the Gemini embedding API.
package gemini

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// Embeddings are requested at a fixed dimensionality so the vector collection
// schema does not depend on the model default.
const dimension = 768

// Embedder generates dense embeddings using Google's Gemini API.
type Embedder struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewEmbedder creates a Gemini embedder for the given model. A non-zero
// timeout bounds each API call.
func NewEmbedder(ctx context.Context, apiKey, model string, timeout time.Duration) (*Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Embedder{client: client, model: model, timeout: timeout}, nil
}

// Embed generates a retrieval-query embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates retrieval-document embeddings for multiple texts.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts, "RETRIEVAL_DOCUMENT")
}

// Dimension returns the dimensionality of produced vectors.
func (e *Embedder) Dimension() int { return dimension }

func (e *Embedder) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: genai.Ptr[int32](dimension),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}
	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		if len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini embed: empty embedding at %d", i)
		}
		out[i] = emb.Values
	}
	return out, nil
}
