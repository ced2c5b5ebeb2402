package eventsub

import "encoding/json"

// SubscriptionSuspiciousUserMessage is the only subscription type whose
// events are forwarded.
const SubscriptionSuspiciousUserMessage = "channel.suspicious_user.message"

// LowTrustStatus is the moderation treatment applied to a suspicious user.
type LowTrustStatus string

const (
	LowTrustNone             LowTrustStatus = "none"
	LowTrustActiveMonitoring LowTrustStatus = "active_monitoring"
	LowTrustRestricted       LowTrustStatus = "restricted"
)

// Subscription is the subscription record Twitch embeds in every message.
type Subscription struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Type      string          `json:"type"`
	Version   string          `json:"version"`
	Condition json.RawMessage `json:"condition,omitempty"`
	CreatedAt string          `json:"created_at,omitempty"`
	Cost      int             `json:"cost"`
}

// Identity is a Twitch user as referenced in event payloads.
type Identity struct {
	ID          string
	Login       string
	DisplayName string
}

// ChatMessage is the chat message that triggered a suspicious user event.
type ChatMessage struct {
	MessageID string          `json:"message_id"`
	Text      string          `json:"text"`
	Fragments json.RawMessage `json:"fragments,omitempty"`
}

// SuspiciousUserEvent is the event body of channel.suspicious_user.message.
// Every field except the identities may be absent.
type SuspiciousUserEvent struct {
	BroadcasterUserID    string         `json:"broadcaster_user_id"`
	BroadcasterUserLogin string         `json:"broadcaster_user_login"`
	BroadcasterUserName  string         `json:"broadcaster_user_name"`
	UserID               string         `json:"user_id"`
	UserLogin            string         `json:"user_login"`
	UserName             string         `json:"user_name"`
	LowTrustStatus       LowTrustStatus `json:"low_trust_status"`
	SharedBanChannelIDs  []string       `json:"shared_ban_channel_ids"`
	Types                []string       `json:"types"`
	BanEvasionEvaluation string         `json:"ban_evasion_evaluation"`
	Message              *ChatMessage   `json:"message"`
}

// Broadcaster returns the identity of the channel owner.
func (e SuspiciousUserEvent) Broadcaster() Identity {
	return Identity{
		ID:          e.BroadcasterUserID,
		Login:       e.BroadcasterUserLogin,
		DisplayName: e.BroadcasterUserName,
	}
}

// User returns the identity of the flagged user.
func (e SuspiciousUserEvent) User() Identity {
	return Identity{
		ID:          e.UserID,
		Login:       e.UserLogin,
		DisplayName: e.UserName,
	}
}
