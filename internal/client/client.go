// Package client implements the device-facing side of the rollcall API:
// single-shot attendance submission and live-session polling. All decisions
// about geofencing, duplicates, and expiry are made server-side; this package
// only composes requests and interprets the server's verdict.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Client talks to a rollcall API server.
type Client struct {
	BaseURL     string
	HTTP        *http.Client
	Credentials *Credentials
}

// New creates a client. Submission requests carry no explicit client-side
// timeout; pass a context deadline or a tuned http.Client to change that.
func New(baseURL string, creds *Credentials) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		HTTP:        &http.Client{},
		Credentials: creds,
	}
}

// LiveSnapshot fetches the live view of one session with bearer auth.
func (c *Client) LiveSnapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	token, err := c.Credentials.Token()
	if err != nil {
		return nil, fmt.Errorf("live session auth: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/sessions/"+sessionID+"/live", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("live session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var out struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		if out.Message == "" {
			out.Message = resp.Status
		}
		return nil, fmt.Errorf("live session fetch: %s", out.Message)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}
