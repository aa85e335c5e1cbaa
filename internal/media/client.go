package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client implements Illustrator and Narrator against an HTTP media
// service. An empty endpoint disables it entirely.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a media service client. With an empty endpoint
// every call returns ErrDisabled.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: strings.TrimSuffix(strings.TrimSpace(endpoint), "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool { return c.endpoint != "" }

// Illustrate requests an image for the prompt.
func (c *Client) Illustrate(ctx context.Context, prompt string) ([]byte, string, error) {
	return c.post(ctx, "/illustrate", map[string]any{"prompt": prompt})
}

// Narrate requests spoken audio for the text and optional choices.
func (c *Client) Narrate(ctx context.Context, text string, options []string) ([]byte, string, error) {
	body := map[string]any{"text": text}
	if len(options) > 0 {
		body["options"] = options
	}
	return c.post(ctx, "/narrate", body)
}

func (c *Client) post(ctx context.Context, path string, body map[string]any) ([]byte, string, error) {
	if !c.Enabled() {
		return nil, "", ErrDisabled
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("encode media request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("build media request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("media request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("media request: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read media response: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
