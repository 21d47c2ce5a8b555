package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client wraps an HTTP client for the JSON calls this package makes.
// A response is decoded into the caller's value on 2xx; anything else is
// surfaced as an error carrying the status and response body.
type Client struct {
	http   *http.Client
	logger zerolog.Logger
}

// NewClient creates a JSON client. httpClient may be nil, in which case a
// client with a 30 second timeout is used. The session poll overrides the
// timeout per request via its context.
func NewClient(httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{http: httpClient, logger: logger}
}

// PostJSON sends a POST request with an optional JSON body and decodes a
// JSON response into out on 2xx. body and out may each be nil.
func (c *Client) PostJSON(ctx context.Context, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug().Str("url", url).Msg("request")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Debug().Str("url", url).Int("status", resp.StatusCode).Msg("request rejected")
		return fmt.Errorf("request failed: %s - %s", resp.Status, string(data))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
