package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Wissididom/twitch-sus-user-logger/internal/discord"
	"github.com/Wissididom/twitch-sus-user-logger/internal/eventsub"
	"github.com/Wissididom/twitch-sus-user-logger/internal/metrics"
	"github.com/Wissididom/twitch-sus-user-logger/internal/worker"
)

// DefaultMaxBodySize bounds the bytes read from an EventSub request.
const DefaultMaxBodySize = 1 << 20

// Forwarder accepts delivery jobs without blocking.
type Forwarder interface {
	Submit(job worker.Job) bool
}

// EventSubHandler receives Twitch EventSub webhook calls.
//
// Every request moves through received, authenticated, classified and
// handled. A request that fails authentication is answered with 403 before
// its body is parsed.
type EventSubHandler struct {
	verifier    *eventsub.Verifier
	forwarder   Forwarder
	destination discord.Destination
	maxBodySize int64
	logger      *slog.Logger
}

func NewEventSubHandler(verifier *eventsub.Verifier, forwarder Forwarder, destination discord.Destination, maxBodySize int64, logger *slog.Logger) *EventSubHandler {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &EventSubHandler{
		verifier:    verifier,
		forwarder:   forwarder,
		destination: destination,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

func (h *EventSubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		h.reject(r, "unreadable body", err)
		writeResponse(w, eventsub.Forbidden)
		return
	}

	auth, err := h.verifier.Authenticate(eventsub.InboundRequest{Header: r.Header, Body: body})
	if err != nil {
		h.reject(r, "authentication failed", err)
		writeResponse(w, eventsub.Forbidden)
		return
	}

	n, err := eventsub.Classify(auth)
	h.handle(auth, n, err)
	writeResponse(w, eventsub.Decide(n, err))
}

// reject logs a refused request. Payload contents are never logged.
func (h *EventSubHandler) reject(r *http.Request, reason string, err error) {
	metrics.VerificationFailures.Inc()

	attrs := []any{
		"reason", reason,
		"remote_addr", r.RemoteAddr,
		"message_id", r.Header.Get(eventsub.HeaderMessageID),
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		attrs = append(attrs, "limit", maxErr.Limit)
	}
	h.logger.Warn("rejected eventsub request", attrs...)
}

func (h *EventSubHandler) handle(auth *eventsub.Authenticated, n eventsub.Notification, err error) {
	logger := h.logger.With(
		"message_id", auth.MessageID,
		"message_type", auth.MessageType,
	)
	if auth.Retry != "" {
		logger = logger.With("retry", auth.Retry)
	}

	metrics.NotificationsTotal.WithLabelValues(n.Kind.String(), n.Subscription.Type).Inc()

	if err != nil {
		metrics.MalformedPayloads.Inc()
		logger.Warn("malformed eventsub payload", "kind", n.Kind.String(), "error", err)
		return
	}

	switch n.Kind {
	case eventsub.KindVerification:
		logger.Info("eventsub subscription verification",
			"subscription_id", n.Subscription.ID,
			"subscription_type", n.Subscription.Type,
		)

	case eventsub.KindRevocation:
		logger.Warn("eventsub subscription revoked",
			"subscription_id", n.Subscription.ID,
			"subscription_type", n.Subscription.Type,
			"reason", n.Subscription.Status,
			"condition", string(n.Subscription.Condition),
		)

	case eventsub.KindNotification:
		if !n.Forwardable() {
			logger.Info("eventsub notification not forwarded",
				"subscription_type", n.Subscription.Type,
				"event", string(n.Event),
			)
			return
		}
		h.forward(logger, auth, n)

	default:
		logger.Info("unknown eventsub message type")
	}
}

func (h *EventSubHandler) forward(logger *slog.Logger, auth *eventsub.Authenticated, n eventsub.Notification) {
	ev := *n.SuspiciousUser
	job := worker.NewJob(auth.MessageID, n.Subscription.Type, h.destination, discord.SuspiciousUserMessage(ev))
	job.BroadcasterID = ev.BroadcasterUserID
	job.UserID = ev.UserID

	if !h.forwarder.Submit(job) {
		logger.Error("suspicious user message not forwarded", "delivery_id", job.ID)
		return
	}
	logger.Info("suspicious user message queued",
		"delivery_id", job.ID,
		"broadcaster_login", ev.BroadcasterUserLogin,
		"user_login", ev.UserLogin,
		"low_trust_status", string(ev.LowTrustStatus),
	)
}

func writeResponse(w http.ResponseWriter, resp eventsub.Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.Status)
	if resp.Body != "" {
		_, _ = io.WriteString(w, resp.Body)
	}
}
