package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultHelixURL is the base URL of the Twitch API.
const DefaultHelixURL = "https://api.twitch.tv/helix"

// ErrUserNotFound is returned when Helix knows no matching user.
var ErrUserNotFound = errors.New("twitch user not found")

// User is the subset of a Helix user the service uses.
type User struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// Client calls the Helix API on behalf of one application.
type Client struct {
	BaseURL    string
	clientID   string
	httpClient *http.Client
}

func NewClient(clientID string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:  DefaultHelixURL,
		clientID: clientID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetUser looks up a user by login. An empty login returns the user the
// access token belongs to.
func (c *Client) GetUser(ctx context.Context, accessToken, login string) (*User, error) {
	endpoint := c.BaseURL + "/users"
	if login != "" {
		endpoint += "?" + url.Values{"login": {login}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("helix returned status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Data []User `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding users response: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, ErrUserNotFound
	}
	return &payload.Data[0], nil
}
