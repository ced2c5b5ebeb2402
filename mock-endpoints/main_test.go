package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wissididom/twitch-sus-user-logger/internal/discord"
	"github.com/Wissididom/twitch-sus-user-logger/internal/eventsub"
)

func TestMockDiscord_AgainstClient(t *testing.T) {
	server := httptest.NewServer(newRouter(slog.New(slog.NewJSONHandler(io.Discard, nil)), 10*time.Millisecond))
	defer server.Close()

	client := discord.NewClient(5 * time.Second)
	msg := discord.SuspiciousUserMessage(eventsub.SuspiciousUserEvent{
		BroadcasterUserID: "1", BroadcasterUserLogin: "b", BroadcasterUserName: "B",
		UserID: "2", UserLogin: "u", UserName: "U",
	})

	tests := []struct {
		token   string
		status  int
		wantErr bool
	}{
		{"token", http.StatusOK, false},
		{"slow", http.StatusOK, false},
		{"fail", http.StatusInternalServerError, true},
		{"ratelimited", http.StatusTooManyRequests, true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			dest := discord.Destination{WebhookURL: server.URL + "/api/webhooks/1/" + tt.token, ThreadID: "42"}
			res, err := client.Execute(context.Background(), dest, msg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, res)
			assert.Equal(t, tt.status, res.StatusCode)
		})
	}
}
