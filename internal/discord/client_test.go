package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestination_ExecuteURL(t *testing.T) {
	tests := []struct {
		name string
		dest Destination
		want url.Values
	}{
		{
			name: "no thread",
			dest: Destination{WebhookURL: "https://discord.com/api/webhooks/1/token"},
			want: url.Values{"wait": {"true"}},
		},
		{
			name: "thread",
			dest: Destination{WebhookURL: "https://discord.com/api/webhooks/1/token", ThreadID: "42"},
			want: url.Values{"wait": {"true"}, "thread_id": {"42"}},
		},
		{
			name: "existing query kept",
			dest: Destination{WebhookURL: "https://discord.com/api/webhooks/1/token?with_components=true"},
			want: url.Values{"wait": {"true"}, "with_components": {"true"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.dest.ExecuteURL()
			require.NoError(t, err)

			u, err := url.Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, "/api/webhooks/1/token", u.Path)
			assert.Equal(t, tt.want, u.Query())
		})
	}
}

func TestDestination_ExecuteURLRejectsRelative(t *testing.T) {
	_, err := Destination{WebhookURL: "/api/webhooks/1/token"}.ExecuteURL()
	assert.Error(t, err)
}

func TestDestination_KeyHidesToken(t *testing.T) {
	dest := Destination{WebhookURL: "https://discord.com/api/webhooks/1/supersecrettoken"}
	key := dest.Key()

	assert.True(t, strings.HasPrefix(key, "discord:"))
	assert.NotContains(t, key, "supersecrettoken")
	assert.Equal(t, key, dest.Key())
	assert.NotEqual(t, key, Destination{WebhookURL: dest.WebhookURL, ThreadID: "1"}.Key())
}

func TestClient_Execute(t *testing.T) {
	var (
		gotQuery       url.Values
		gotContentType string
		gotBody        Message
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"123"}`))
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	msg := SuspiciousUserMessage(fullEvent())

	res, err := client.Execute(context.Background(), Destination{WebhookURL: server.URL + "/api/webhooks/1/token", ThreadID: "7"}, msg)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, `{"id":"123"}`, res.Body)
	assert.Equal(t, "true", gotQuery.Get("wait"))
	assert.Equal(t, "7", gotQuery.Get("thread_id"))
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, msg, gotBody)
}

func TestClient_ExecuteNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer server.Close()

	res, err := NewClient(5*time.Second).Execute(context.Background(), Destination{WebhookURL: server.URL}, Message{})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	assert.Len(t, res.Body, 1024)
}

func TestClient_ExecuteTransportErrorHidesURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL + "/api/webhooks/1/supersecrettoken"
	server.Close()

	res, err := NewClient(time.Second).Execute(context.Background(), Destination{WebhookURL: target}, Message{})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.NotContains(t, err.Error(), "supersecrettoken")
}
