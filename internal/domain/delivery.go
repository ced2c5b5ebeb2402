package domain

import (
	"time"
)

// Delivery attempt outcomes.
const (
	DeliveryStatusSuccess = "success"
	DeliveryStatusFailed  = "failed"
	DeliveryStatusSkipped = "skipped"
)

// DeliveryAttempt is one forward of an EventSub notification to the downstream webhook.
type DeliveryAttempt struct {
	ID             string    `json:"id"`
	MessageID      string    `json:"message_id"`
	EventType      string    `json:"event_type"`
	BroadcasterID  string    `json:"broadcaster_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	Destination    string    `json:"destination"`
	Status         string    `json:"status"`
	HTTPStatusCode *int      `json:"http_status_code,omitempty"`
	ResponseBody   *string   `json:"response_body,omitempty"`
	ResponseTimeMs *int      `json:"response_time_ms,omitempty"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// DeliveryFilter narrows a delivery attempt listing.
type DeliveryFilter struct {
	MessageID     string
	BroadcasterID string
	Status        string
	Limit         int
}
