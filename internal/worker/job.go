package worker

import (
	"github.com/Wissididom/twitch-sus-user-logger/internal/discord"
	"github.com/google/uuid"
)

// Job is one Discord message waiting to be forwarded.
type Job struct {
	ID            string
	MessageID     string
	EventType     string
	BroadcasterID string
	UserID        string
	Destination   discord.Destination
	Message       discord.Message
}

// NewJob returns a job with a fresh delivery ID for the EventSub message messageID.
func NewJob(messageID, eventType string, dest discord.Destination, msg discord.Message) Job {
	return Job{
		ID:          uuid.NewString(),
		MessageID:   messageID,
		EventType:   eventType,
		Destination: dest,
		Message:     msg,
	}
}
