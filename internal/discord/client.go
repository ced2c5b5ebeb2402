package discord

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Destination is a webhook, optionally scoped to a thread of its channel.
type Destination struct {
	WebhookURL string
	ThreadID   string
}

// ExecuteURL returns the webhook URL with wait=true and, when set, thread_id.
func (d Destination) ExecuteURL() (string, error) {
	u, err := url.Parse(d.WebhookURL)
	if err != nil {
		return "", fmt.Errorf("parsing webhook URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("webhook URL must be absolute")
	}

	q := u.Query()
	q.Set("wait", "true")
	if d.ThreadID != "" {
		q.Set("thread_id", d.ThreadID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Key identifies the destination without exposing the webhook token.
func (d Destination) Key() string {
	sum := sha256.Sum256([]byte(d.WebhookURL + "#" + d.ThreadID))
	return "discord:" + hex.EncodeToString(sum[:6])
}

// Result is the destination's answer to an execution.
type Result struct {
	StatusCode int
	Body       string
}

// Client executes Discord webhooks.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Execute posts msg to the destination once. A non-2xx answer is returned
// as an error together with the result.
func (c *Client) Execute(ctx context.Context, dest Destination, msg Message) (*Result, error) {
	target, err := dest.ExecuteURL()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error embeds the URL, which carries the webhook token.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Read response body (limit to 1KB to prevent memory issues)
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	result := &Result{StatusCode: resp.StatusCode, Body: string(body)}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return result, nil
}
