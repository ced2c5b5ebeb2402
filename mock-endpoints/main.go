// Command mock-endpoints serves a stand-in for Discord's execute webhook
// endpoint so the relay can be exercised locally.
package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Wissididom/twitch-sus-user-logger/internal/discord"
)

var requestCount atomic.Int64

func main() {
	port := "9090"
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	logger.Info("mock discord starting",
		"port", port,
		"routes", []string{
			"POST /api/webhooks/{id}/{token}        -> 200 with message",
			"POST /api/webhooks/{id}/slow           -> 200 after 3s",
			"POST /api/webhooks/{id}/fail           -> 500",
			"POST /api/webhooks/{id}/ratelimited    -> 429",
			"GET  /stats                            -> request count",
		},
	)

	if err := http.ListenAndServe(":"+port, newRouter(logger, 3*time.Second)); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newRouter(logger *slog.Logger, slowDelay time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Post("/api/webhooks/{id}/{token}", func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)

		var msg discord.Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Cannot send an empty message", "code": 50006})
			return
		}

		status := http.StatusOK
		switch chi.URLParam(r, "token") {
		case "slow":
			time.Sleep(slowDelay)
		case "fail":
			status = http.StatusInternalServerError
		case "ratelimited":
			status = http.StatusTooManyRequests
		}

		logRequest(logger, r, count, status, msg)

		switch status {
		case http.StatusInternalServerError:
			writeJSON(w, status, map[string]any{"message": "500: Internal Server Error", "code": 0})
		case http.StatusTooManyRequests:
			w.Header().Set("Retry-After", "2")
			writeJSON(w, status, map[string]any{"message": "You are being rate limited.", "retry_after": 1.5, "global": false})
		default:
			writeJSON(w, status, map[string]any{
				"id":         strconv.FormatInt(count, 10),
				"channel_id": r.URL.Query().Get("thread_id"),
				"embeds":     msg.Embeds,
			})
		}
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int64{"total_requests": requestCount.Load()})
	})

	return r
}

func logRequest(logger *slog.Logger, r *http.Request, count int64, status int, msg discord.Message) {
	attrs := []any{
		"n", count,
		"status", status,
		"wait", r.URL.Query().Get("wait"),
		"thread_id", r.URL.Query().Get("thread_id"),
	}
	if len(msg.Embeds) > 0 {
		attrs = append(attrs,
			"title", msg.Embeds[0].Title,
			"fields", msg.FieldNames(),
		)
	}
	logger.Info("webhook executed", attrs...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
