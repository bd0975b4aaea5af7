// Package llm wraps the Gemini API behind a structured-completion interface:
// prompt plus optional image in, typed JSON out.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Request describes one structured completion.
type Request struct {
	Prompt      string
	Image       []byte // optional inline image (PNG/JPEG)
	ImageMIME   string
	Schema      *genai.Schema // response schema; nil means free-form JSON
	System      string        // optional system instruction
	Temperature float32       // zero falls back to the client default
}

// Config configures the Gemini chat client.
type Config struct {
	APIKey      string
	Model       string
	Timeout     time.Duration // per-call deadline; zero means no limit
	Temperature float32       // default for requests that set none
}

// Client is the Gemini chat client used by the agent pipeline and the quiz
// generator.
type Client struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	temperature float32
	log         *zap.Logger

	generateFn func(ctx context.Context, req Request) (string, error)
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c := &Client{
		client:      client,
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		log:         log,
	}
	c.generateFn = c.generate
	return c, nil
}

// GenerateStructured runs one completion and decodes the JSON response into
// out. A malformed JSON response is retried exactly once with a corrective
// instruction appended.
func (c *Client) GenerateStructured(ctx context.Context, req Request, out any) error {
	if req.Temperature == 0 {
		req.Temperature = c.temperature
	}
	raw, err := c.generateFn(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(StripFences(raw)), out); err == nil {
		return nil
	}
	c.log.Warn("malformed JSON from model, retrying once", zap.String("model", c.model))
	retry := req
	retry.Prompt = req.Prompt + "\n\nPhản hồi trước không phải JSON hợp lệ. CHỈ trả về JSON đúng schema, không thêm text nào khác."
	raw, err = c.generateFn(ctx, retry)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(StripFences(raw)), out); err != nil {
		return fmt.Errorf("model returned malformed JSON twice: %w", err)
	}
	return nil
}

func (c *Client) generate(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if len(req.Image) > 0 {
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, genai.NewPartFromBytes(req.Image, mime))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](req.Temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini generate: empty response")
	}
	return text, nil
}

// StripFences removes a markdown code fence wrapper, which models sometimes
// add around JSON despite the response MIME type.
func StripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimPrefix(t, "json")
	if i := strings.LastIndex(t, "```"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}
