package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Wissididom/twitch-sus-user-logger/internal/domain"
)

// DeliveryLog reads recorded delivery attempts.
type DeliveryLog interface {
	ListDeliveryAttempts(ctx context.Context, filter domain.DeliveryFilter) ([]domain.DeliveryAttempt, error)
	GetDeliveryAttempt(ctx context.Context, id string) (*domain.DeliveryAttempt, error)
}

type DeliveryHandler struct {
	log DeliveryLog
}

func NewDeliveryHandler(log DeliveryLog) *DeliveryHandler {
	return &DeliveryHandler{log: log}
}

func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 50
	if limitStr := q.Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = min(n, 500)
		}
	}

	attempts, err := h.log.ListDeliveryAttempts(r.Context(), domain.DeliveryFilter{
		MessageID:     q.Get("message_id"),
		BroadcasterID: q.Get("broadcaster_id"),
		Status:        q.Get("status"),
		Limit:         limit,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list delivery attempts")
		return
	}

	respondJSON(w, http.StatusOK, attempts)
}

func (h *DeliveryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	attempt, err := h.log.GetDeliveryAttempt(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get delivery attempt")
		return
	}
	if attempt == nil {
		respondError(w, http.StatusNotFound, "delivery attempt not found")
		return
	}

	respondJSON(w, http.StatusOK, attempt)
}
