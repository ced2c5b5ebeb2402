package eventsub

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Request headers sent by Twitch with every EventSub webhook delivery.
const (
	HeaderMessageID        = "Twitch-Eventsub-Message-Id"
	HeaderMessageTimestamp = "Twitch-Eventsub-Message-Timestamp"
	HeaderMessageSignature = "Twitch-Eventsub-Message-Signature"
	HeaderMessageType      = "Twitch-Eventsub-Message-Type"
	HeaderMessageRetry     = "Twitch-Eventsub-Message-Retry"
)

const signaturePrefix = "sha256="

// ErrAuthentication is returned for any request whose signature cannot be
// verified. The cause is deliberately not exposed.
var ErrAuthentication = errors.New("eventsub: authentication failed")

// InboundRequest is the raw material of a webhook call. Body must be the
// exact bytes received on the wire.
type InboundRequest struct {
	Header http.Header
	Body   []byte
}

// Authenticated is an inbound request whose signature has been verified.
// Nothing downstream of the verifier accepts anything else.
type Authenticated struct {
	MessageID   string
	Timestamp   string
	MessageType string
	Retry       string
	Body        []byte
}

// Sign computes the signature Twitch attaches to a message:
// "sha256=" + hex(HMAC-SHA256(secret, messageID || timestamp || body)).
func Sign(messageID, timestamp string, body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(messageID))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the valid signature of the message.
// Any empty input fails closed. The comparison is constant-time.
func Verify(messageID, timestamp string, body []byte, signature, secret string) bool {
	if messageID == "" || timestamp == "" || len(body) == 0 || signature == "" || secret == "" {
		return false
	}
	expected := Sign(messageID, timestamp, body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Verifier authenticates inbound requests against the shared EventSub secret.
type Verifier struct {
	secret string
	maxAge time.Duration
	now    func() time.Time
}

// NewVerifier creates a verifier. A positive maxAge additionally rejects
// messages whose timestamp is further than maxAge from the current time.
func NewVerifier(secret string, maxAge time.Duration) *Verifier {
	return &Verifier{
		secret: secret,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Authenticate verifies the request signature and returns the authenticated
// view of it. All failures return ErrAuthentication.
func (v *Verifier) Authenticate(req InboundRequest) (*Authenticated, error) {
	if req.Header == nil {
		return nil, ErrAuthentication
	}

	messageID := req.Header.Get(HeaderMessageID)
	timestamp := req.Header.Get(HeaderMessageTimestamp)
	signature := req.Header.Get(HeaderMessageSignature)

	if !Verify(messageID, timestamp, req.Body, signature, v.secret) {
		return nil, ErrAuthentication
	}

	if v.maxAge > 0 && !v.fresh(timestamp) {
		return nil, ErrAuthentication
	}

	return &Authenticated{
		MessageID:   messageID,
		Timestamp:   timestamp,
		MessageType: strings.TrimSpace(req.Header.Get(HeaderMessageType)),
		Retry:       req.Header.Get(HeaderMessageRetry),
		Body:        req.Body,
	}, nil
}

func (v *Verifier) fresh(timestamp string) bool {
	sent, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return false
	}
	age := v.now().Sub(sent)
	if age < 0 {
		age = -age
	}
	return age <= v.maxAge
}
