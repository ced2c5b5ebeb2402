package eventsub

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const suspiciousBody = `{
  "subscription": {
    "id": "f1c2a387-161a-49f9-a165-0f21d7a4e1c4",
    "type": "channel.suspicious_user.message",
    "version": "1",
    "status": "enabled",
    "cost": 0,
    "condition": {"broadcaster_user_id": "1050263432", "moderator_user_id": "1050263433"},
    "created_at": "2023-04-11T10:11:12.123Z"
  },
  "event": {
    "broadcaster_user_id": "1050263432",
    "broadcaster_user_name": "Dcf9c2d1",
    "broadcaster_user_login": "dcf9c2d1",
    "user_id": "1050263434",
    "user_name": "4a46e2cc",
    "user_login": "4a46e2cc",
    "low_trust_status": "active_monitoring",
    "shared_ban_channel_ids": ["100", "200"],
    "types": ["manually_added", "ban_evader"],
    "ban_evasion_evaluation": "likely",
    "message": {
      "message_id": "101010",
      "text": "bad stuff pogchamp",
      "fragments": [{"type": "text", "text": "bad stuff pogchamp"}]
    }
  }
}`

func authenticated(messageType, body string) *Authenticated {
	return &Authenticated{
		MessageID:   testMessageID,
		Timestamp:   testTimestamp,
		MessageType: messageType,
		Body:        []byte(body),
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindVerification, KindOf("webhook_callback_verification"))
	assert.Equal(t, KindNotification, KindOf("notification"))
	assert.Equal(t, KindRevocation, KindOf("revocation"))
	assert.Equal(t, KindUnknown, KindOf(""))
	assert.Equal(t, KindUnknown, KindOf("Notification"))
	assert.Equal(t, "unknown", KindUnknown.String())
}

func TestClassify_Verification(t *testing.T) {
	n, err := Classify(authenticated(MessageTypeVerification, `{"challenge":"abc123","subscription":{"type":"channel.suspicious_user.message"}}`))
	require.NoError(t, err)

	assert.Equal(t, KindVerification, n.Kind)
	assert.Equal(t, "abc123", n.Challenge)
	assert.False(t, n.Forwardable())

	resp := Decide(n, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "text/plain", resp.ContentType)
	assert.Equal(t, "abc123", resp.Body)
}

func TestClassify_VerificationChallengeIsVerbatim(t *testing.T) {
	n, err := Classify(authenticated(MessageTypeVerification, `{"challenge":"  pogchamp-kappa\t"}`))
	require.NoError(t, err)
	assert.Equal(t, "  pogchamp-kappa\t", Decide(n, err).Body)
}

func TestClassify_VerificationMissingChallenge(t *testing.T) {
	n, err := Classify(authenticated(MessageTypeVerification, `{"subscription":{}}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Equal(t, http.StatusBadRequest, Decide(n, err).Status)
}

func TestClassify_SuspiciousUserNotification(t *testing.T) {
	n, err := Classify(authenticated(MessageTypeNotification, suspiciousBody))
	require.NoError(t, err)

	assert.Equal(t, KindNotification, n.Kind)
	assert.Equal(t, SubscriptionSuspiciousUserMessage, n.Subscription.Type)
	require.NotNil(t, n.SuspiciousUser)
	assert.True(t, n.Forwardable())

	ev := n.SuspiciousUser
	assert.Equal(t, Identity{ID: "1050263432", Login: "dcf9c2d1", DisplayName: "Dcf9c2d1"}, ev.Broadcaster())
	assert.Equal(t, Identity{ID: "1050263434", Login: "4a46e2cc", DisplayName: "4a46e2cc"}, ev.User())
	assert.Equal(t, LowTrustActiveMonitoring, ev.LowTrustStatus)
	assert.Equal(t, []string{"100", "200"}, ev.SharedBanChannelIDs)
	assert.Equal(t, []string{"manually_added", "ban_evader"}, ev.Types)
	assert.Equal(t, "likely", ev.BanEvasionEvaluation)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "101010", ev.Message.MessageID)
	assert.Equal(t, "bad stuff pogchamp", ev.Message.Text)

	assert.Equal(t, http.StatusNoContent, Decide(n, err).Status)
}

func TestClassify_SuspiciousUserMinimalEvent(t *testing.T) {
	body := `{"subscription":{"type":"channel.suspicious_user.message"},"event":{"broadcaster_user_id":"1","broadcaster_user_login":"b","broadcaster_user_name":"B","user_id":"2","user_login":"u","user_name":"U"}}`

	n, err := Classify(authenticated(MessageTypeNotification, body))
	require.NoError(t, err)
	require.NotNil(t, n.SuspiciousUser)
	assert.Nil(t, n.SuspiciousUser.Message)
	assert.Empty(t, n.SuspiciousUser.SharedBanChannelIDs)
	assert.Empty(t, n.SuspiciousUser.LowTrustStatus)
}

func TestClassify_OtherNotificationIsNotForwarded(t *testing.T) {
	body := `{"subscription":{"type":"channel.follow","version":"2"},"event":{"user_id":"1234"}}`

	n, err := Classify(authenticated(MessageTypeNotification, body))
	require.NoError(t, err)

	assert.Equal(t, KindNotification, n.Kind)
	assert.Equal(t, "channel.follow", n.Subscription.Type)
	assert.Nil(t, n.SuspiciousUser)
	assert.False(t, n.Forwardable())
	assert.JSONEq(t, `{"user_id":"1234"}`, string(n.Event))
	assert.Equal(t, http.StatusNoContent, Decide(n, err).Status)
}

func TestClassify_SuspiciousUserMissingEvent(t *testing.T) {
	for _, body := range []string{
		`{"subscription":{"type":"channel.suspicious_user.message"}}`,
		`{"subscription":{"type":"channel.suspicious_user.message"},"event":null}`,
	} {
		n, err := Classify(authenticated(MessageTypeNotification, body))
		assert.ErrorIs(t, err, ErrMalformedPayload)
		assert.False(t, n.Forwardable())
		assert.Equal(t, http.StatusBadRequest, Decide(n, err).Status)
	}
}

func TestClassify_SuspiciousUserEventWrongShape(t *testing.T) {
	body := `{"subscription":{"type":"channel.suspicious_user.message"},"event":{"types":"not-a-list"}}`

	n, err := Classify(authenticated(MessageTypeNotification, body))
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Nil(t, n.SuspiciousUser)
}

func TestClassify_MalformedJSON(t *testing.T) {
	for _, messageType := range []string{MessageTypeVerification, MessageTypeNotification} {
		n, err := Classify(authenticated(messageType, `{"challenge":`))
		assert.ErrorIs(t, err, ErrMalformedPayload, messageType)
		assert.Equal(t, http.StatusBadRequest, Decide(n, err).Status, messageType)
	}
}

func TestClassify_Revocation(t *testing.T) {
	body := `{"subscription":{"id":"f1c2a387","status":"authorization_revoked","type":"channel.suspicious_user.message","condition":{"broadcaster_user_id":"12826"}}}`

	n, err := Classify(authenticated(MessageTypeRevocation, body))
	require.NoError(t, err)

	assert.Equal(t, KindRevocation, n.Kind)
	assert.Equal(t, "authorization_revoked", n.Subscription.Status)
	assert.JSONEq(t, `{"broadcaster_user_id":"12826"}`, string(n.Subscription.Condition))
	assert.False(t, n.Forwardable())
	assert.Equal(t, http.StatusNoContent, Decide(n, err).Status)
}

func TestClassify_RevocationAlwaysAcknowledged(t *testing.T) {
	for _, body := range []string{`not json`, `{}`, `[]`, `{"subscription":{"status":"user_removed"}}`} {
		n, err := Classify(authenticated(MessageTypeRevocation, body))
		assert.Equal(t, http.StatusNoContent, Decide(n, err).Status, body)
		assert.False(t, n.Forwardable(), body)
	}
}

func TestClassify_UnknownTypeDoesNotParse(t *testing.T) {
	for _, messageType := range []string{"", "something_new"} {
		n, err := Classify(authenticated(messageType, `not json at all`))
		require.NoError(t, err)
		assert.Equal(t, KindUnknown, n.Kind)
		assert.Equal(t, http.StatusNoContent, Decide(n, err).Status)
	}
}

func TestClassify_Idempotent(t *testing.T) {
	a := authenticated(MessageTypeNotification, suspiciousBody)

	first, err1 := Classify(a)
	second, err2 := Classify(a)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
	assert.Equal(t, Decide(first, err1), Decide(second, err2))
}
