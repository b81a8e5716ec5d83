package domain

import (
	"time"

	"github.com/google/uuid"
)

// Thread is a named conversation container owning participants and messages.
// Relations are attached only when the caller asked for an eager load; an
// empty slice therefore means "not loaded", not "none exist".
type Thread struct {
	ThreadID  uuid.UUID
	Subject   string
	CreatedAt time.Time
	UpdatedAt time.Time

	Participants []Participant
	Messages     []Message
}

// Participant is a user's membership record in a thread. Archival is a soft
// state: the row is retained and any new message in the thread reactivates it.
type Participant struct {
	ParticipantID uuid.UUID
	ThreadID      uuid.UUID
	UserID        uuid.UUID
	LastRead      *time.Time
	ArchivedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	User   *User
	Thread *Thread
}

func (p Participant) Archived() bool { return p.ArchivedAt != nil }

// Message is an immutable post in a thread. Body is structured content, not
// necessarily plain text.
type Message struct {
	MessageID uuid.UUID
	ThreadID  uuid.UUID
	UserID    uuid.UUID
	Body      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}
