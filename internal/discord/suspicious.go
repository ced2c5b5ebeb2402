package discord

import (
	"fmt"
	"strings"

	"github.com/Wissididom/twitch-sus-user-logger/internal/eventsub"
)

const (
	suspiciousColor = 0xcc3333
	suspiciousTitle = "Message from suspicious user"
	notApplicable   = "N/A"
	channelBaseURL  = "https://www.twitch.tv/"
)

// Field names, in the order they appear in the embed.
const (
	FieldBroadcaster       = "Broadcaster"
	FieldUser              = "User"
	FieldLowTrustStatus    = "Low Trust Status"
	FieldSharedBanChannels = "Shared Ban Channels"
	FieldTypes             = "Types"
	FieldBanEvasion        = "Type of Ban Evader"
	FieldMessageID         = "Message ID"
)

// SuspiciousUserMessage builds the webhook message for a suspicious user
// event. It never fails; absent optional fields are simply left out.
func SuspiciousUserMessage(ev eventsub.SuspiciousUserEvent) Message {
	text := notApplicable
	if ev.Message != nil && ev.Message.Text != "" {
		text = ev.Message.Text
	}

	fields := []Field{
		{Name: FieldBroadcaster, Value: identityValue(ev.Broadcaster())},
		{Name: FieldUser, Value: identityValue(ev.User())},
		{Name: FieldLowTrustStatus, Value: LowTrustLabel(ev.LowTrustStatus)},
	}
	if len(ev.SharedBanChannelIDs) > 0 {
		fields = append(fields, Field{Name: FieldSharedBanChannels, Value: strings.Join(ev.SharedBanChannelIDs, ", ")})
	}
	if len(ev.Types) > 0 {
		fields = append(fields, Field{Name: FieldTypes, Value: strings.Join(ev.Types, ", ")})
	}
	if ev.BanEvasionEvaluation != "" {
		fields = append(fields, Field{Name: FieldBanEvasion, Value: ev.BanEvasionEvaluation})
	}
	if ev.Message != nil && ev.Message.MessageID != "" {
		fields = append(fields, Field{Name: FieldMessageID, Value: ev.Message.MessageID})
	}

	return Message{
		Embeds: []Embed{{
			Color:       suspiciousColor,
			Title:       suspiciousTitle,
			Description: "```" + text + "```",
			Fields:      fields,
		}},
	}
}

// LowTrustLabel maps a low trust status to its display label.
func LowTrustLabel(status eventsub.LowTrustStatus) string {
	switch status {
	case eventsub.LowTrustActiveMonitoring:
		return "Monitoring"
	case eventsub.LowTrustRestricted:
		return "Restricted"
	case eventsub.LowTrustNone:
		return "None"
	default:
		return notApplicable
	}
}

func identityValue(id eventsub.Identity) string {
	return fmt.Sprintf("[`%s` (`%s` - `%s`)](<%s%s>)", id.DisplayName, id.Login, id.ID, channelBaseURL, id.Login)
}
