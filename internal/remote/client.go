// Package remote implements the HTTP client for the remote key-value
// store holding player payloads. The store is addressed by trimmed,
// URL-escaped username; each PUT overwrites the whole record.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/itqan/nahw-station/internal/domain"
)

var (
	// ErrNotFound means the username has no remote record. This is a
	// business outcome, distinct from transport failures.
	ErrNotFound = errors.New("remote: user not found")
	// ErrUnconfigured means no remote base URL was configured; callers
	// treat the store as unreachable.
	ErrUnconfigured = errors.New("remote: store not configured")
)

// Client talks to the remote store. A zero base URL disables it.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a remote store client. An empty or non-HTTPS base
// URL leaves the client unconfigured, matching the original deployment
// guard against placeholder endpoints.
func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = ""
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Configured reports whether a usable base URL is set.
func (c *Client) Configured() bool { return c.baseURL != "" }

func (c *Client) userURL(username string) string {
	return c.baseURL + "/users/" + url.PathEscape(strings.TrimSpace(username)) + ".json"
}

// FetchUser retrieves one player's payload. Returns ErrNotFound when the
// record is absent; any other error is transport-level.
func (c *Client) FetchUser(ctx context.Context, username string) (*domain.Payload, error) {
	if !c.Configured() {
		return nil, ErrUnconfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userURL(username), nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch user: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read fetch response: %w", err)
	}

	// The store replies with a literal null body for absent keys.
	if isEmptyJSON(body) {
		return nil, ErrNotFound
	}

	var payload domain.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode fetch response: %w", err)
	}
	return &payload, nil
}

// PutUser upserts one player's full payload.
func (c *Client) PutUser(ctx context.Context, username string, payload domain.Payload) error {
	if !c.Configured() {
		return ErrUnconfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.userURL(username), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build put request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("put user: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// FetchAllUsers retrieves the full username-to-payload mapping for
// leaderboard consumption.
func (c *Client) FetchAllUsers(ctx context.Context) (map[string]domain.Payload, error) {
	if !c.Configured() {
		return nil, ErrUnconfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users.json", nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch-all request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch all users: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch all users: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read fetch-all response: %w", err)
	}
	if isEmptyJSON(body) {
		return map[string]domain.Payload{}, nil
	}

	var users map[string]domain.Payload
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("decode fetch-all response: %w", err)
	}
	return users, nil
}

func isEmptyJSON(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return trimmed == "" || trimmed == "null"
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
