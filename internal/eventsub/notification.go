package eventsub

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Values of the Twitch-Eventsub-Message-Type header.
const (
	MessageTypeVerification = "webhook_callback_verification"
	MessageTypeNotification = "notification"
	MessageTypeRevocation   = "revocation"
)

// ErrMalformedPayload is returned when an authenticated body cannot be
// parsed into the shape its message type requires.
var ErrMalformedPayload = errors.New("eventsub: malformed payload")

// MessageKind routes an authenticated message.
type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindVerification
	KindNotification
	KindRevocation
)

func (k MessageKind) String() string {
	switch k {
	case KindVerification:
		return "verification"
	case KindNotification:
		return "notification"
	case KindRevocation:
		return "revocation"
	default:
		return "unknown"
	}
}

// KindOf maps a message type header value to its kind.
func KindOf(messageType string) MessageKind {
	switch messageType {
	case MessageTypeVerification:
		return KindVerification
	case MessageTypeNotification:
		return KindNotification
	case MessageTypeRevocation:
		return KindRevocation
	default:
		return KindUnknown
	}
}

// Notification is a classified EventSub message.
type Notification struct {
	Kind        MessageKind
	MessageType string

	// Challenge is set for KindVerification.
	Challenge string

	Subscription Subscription
	Event        json.RawMessage

	// SuspiciousUser is set when the notification carries a
	// channel.suspicious_user.message event.
	SuspiciousUser *SuspiciousUserEvent
}

// Forwardable reports whether the notification must be relayed downstream.
func (n Notification) Forwardable() bool {
	return n.Kind == KindNotification && n.SuspiciousUser != nil
}

type envelope struct {
	Challenge    *string         `json:"challenge"`
	Subscription Subscription    `json:"subscription"`
	Event        json.RawMessage `json:"event"`
}

// Classify parses the authenticated body once and routes it by message type.
// Unknown message types are returned without touching the body.
func Classify(a *Authenticated) (Notification, error) {
	n := Notification{
		Kind:        KindOf(a.MessageType),
		MessageType: a.MessageType,
	}
	if n.Kind == KindUnknown {
		return n, nil
	}

	var env envelope
	if err := json.Unmarshal(a.Body, &env); err != nil {
		return n, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	n.Subscription = env.Subscription
	n.Event = env.Event

	switch n.Kind {
	case KindVerification:
		if env.Challenge == nil {
			return n, fmt.Errorf("%w: missing challenge", ErrMalformedPayload)
		}
		n.Challenge = *env.Challenge

	case KindNotification:
		if env.Subscription.Type != SubscriptionSuspiciousUserMessage {
			return n, nil
		}
		if isEmptyJSON(env.Event) {
			return n, fmt.Errorf("%w: missing event", ErrMalformedPayload)
		}
		var event SuspiciousUserEvent
		if err := json.Unmarshal(env.Event, &event); err != nil {
			return n, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		n.SuspiciousUser = &event
	}

	return n, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Response is what the sender receives for a request.
type Response struct {
	Status      int
	ContentType string
	Body        string
}

// Forbidden is the response to any request that fails authentication.
var Forbidden = Response{Status: http.StatusForbidden}

// Decide maps a classification result to the response owed to the sender.
// Revocations are acknowledged even when their body cannot be parsed.
func Decide(n Notification, err error) Response {
	if err != nil {
		if n.Kind == KindRevocation {
			return Response{Status: http.StatusNoContent}
		}
		return Response{Status: http.StatusBadRequest}
	}

	if n.Kind == KindVerification {
		return Response{
			Status:      http.StatusOK,
			ContentType: "text/plain",
			Body:        n.Challenge,
		}
	}
	return Response{Status: http.StatusNoContent}
}
