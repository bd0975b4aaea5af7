// Package imagesearch finds chemistry images on DuckDuckGo, used when a
// catalog record has no pre-rendered structure image.
package imagesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"go.uber.org/zap"
)

// ErrNoResults is returned when the search yields no images.
var ErrNoResults = errors.New("imagesearch: no results")

var vqdPattern = regexp.MustCompile(`vqd=['"]?([\d-]+)`)

// Client queries the DuckDuckGo image endpoint. The endpoint requires a vqd
// token scraped from the HTML search page first.
type Client struct {
	baseURL  string
	client   *http.Client
	attempts int
	log      *zap.Logger
}

// NewClient creates an image search client.
func NewClient(log *zap.Logger) *Client {
	return &Client{
		baseURL:  "https://duckduckgo.com",
		client:   &http.Client{Timeout: 15 * time.Second},
		attempts: 3,
		log:      log,
	}
}

// FirstImageURL returns the URL of the top image hit for keyword, retrying
// transient failures with exponential backoff.
func (c *Client) FirstImageURL(ctx context.Context, keyword string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(1<<(attempt-1)) * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		imageURL, err := c.search(ctx, keyword)
		if err == nil {
			c.log.Info("image found", zap.String("keyword", keyword), zap.String("url", imageURL))
			return imageURL, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("image search %q: %w", keyword, lastErr)
}

func (c *Client) search(ctx context.Context, keyword string) (string, error) {
	token, err := c.vqd(ctx, keyword)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("l", "us-en")
	q.Set("o", "json")
	q.Set("q", keyword)
	q.Set("vqd", token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/i.js?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	c.setHeaders(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image endpoint: %s", resp.Status)
	}
	var out struct {
		Results []struct {
			Image string `json:"image"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Results) == 0 || out.Results[0].Image == "" {
		return "", ErrNoResults
	}
	return out.Results[0].Image, nil
}

func (c *Client) vqd(ctx context.Context, keyword string) (string, error) {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("iax", "images")
	q.Set("ia", "images")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	c.setHeaders(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	m := vqdPattern.FindSubmatch(body)
	if m == nil {
		return "", errors.New("imagesearch: vqd token not found")
	}
	return string(m[1]), nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) chemi/1.0")
	req.Header.Set("Referer", c.baseURL+"/")
}
