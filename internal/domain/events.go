package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeMessageCreated     = "thread.message.created"
	EventTypeParticipantCreated = "thread.participant.created"
)

// Event is the notification payload handed to the dispatcher together with its
// recipient set. Delivery channels live behind the dispatcher; the domain only
// states what happened.
type Event struct {
	EventID    uuid.UUID
	Type       string
	ThreadID   uuid.UUID
	Subject    string
	MessageID  *uuid.UUID
	ActorID    uuid.UUID
	Body       map[string]any
	OccurredAt time.Time
}

// NewMessageCreated describes a freshly posted message authored by ActorID.
func NewMessageCreated(thread Thread, message Message, occurredAt time.Time) Event {
	id := message.MessageID
	return Event{
		EventID:    uuid.New(),
		Type:       EventTypeMessageCreated,
		ThreadID:   thread.ThreadID,
		Subject:    thread.Subject,
		MessageID:  &id,
		ActorID:    message.UserID,
		Body:       message.Body,
		OccurredAt: occurredAt,
	}
}

// NewParticipantCreated describes a user joining (or rejoining) a thread.
func NewParticipantCreated(thread Thread, participant Participant, occurredAt time.Time) Event {
	return Event{
		EventID:    uuid.New(),
		Type:       EventTypeParticipantCreated,
		ThreadID:   thread.ThreadID,
		Subject:    thread.Subject,
		ActorID:    participant.UserID,
		OccurredAt: occurredAt,
	}
}
