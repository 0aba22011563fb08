package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/runnerr0/pagetrace/internal/recorder"
)

// Client talks to a running probe.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the probe at baseURL. A nil hc uses a
// client with a 5 second timeout.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

// Changing asks whether the page changed within the last timeoutMs.
func (c *Client) Changing(ctx context.Context, timeoutMs int) (ChangingResponse, error) {
	var out ChangingResponse
	q := url.Values{"timeout": {strconv.Itoa(timeoutMs)}}
	err := c.getJSON(ctx, "/changing", q, &out)
	return out, err
}

// Events returns the recorded log, optionally restricted to kind.
func (c *Client) Events(ctx context.Context, kind recorder.Kind) ([]recorder.Record, error) {
	var q url.Values
	if kind != "" {
		q = url.Values{"kind": {string(kind)}}
	}
	var out []recorder.Record
	if err := c.getJSON(ctx, "/events", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Status returns the probe's status summary.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.getJSON(ctx, "/status", nil, &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("query probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("probe %s: %s (status %d)", path, body.Error, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
