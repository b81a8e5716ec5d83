package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ikidnapmyself/pp-api/internal/domain"
	"github.com/ikidnapmyself/pp-api/internal/ports"
)

// OutboxNotifier persists notification events into the transactional outbox.
// The worker loop picks them up and pushes them to the broker, so a broker
// outage never blocks a message post.
type OutboxNotifier struct {
	outbox ports.OutboxRepository
}

func NewOutboxNotifier(outbox ports.OutboxRepository) *OutboxNotifier {
	return &OutboxNotifier{outbox: outbox}
}

type notificationPayload struct {
	EventID    string           `json:"event_id"`
	Type       string           `json:"type"`
	ThreadID   string           `json:"thread_id"`
	Subject    string           `json:"subject"`
	MessageID  *string          `json:"message_id,omitempty"`
	ActorID    string           `json:"actor_id"`
	Body       map[string]any   `json:"body,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
	Recipients []eventRecipient `json:"recipients"`
}

type eventRecipient struct {
	UserID    string   `json:"user_id"`
	Name      string   `json:"name"`
	Email     string   `json:"email,omitempty"`
	NotifyVia []string `json:"notify_via,omitempty"`
}

func (n *OutboxNotifier) Notify(ctx context.Context, recipients []domain.User, event domain.Event) error {
	if len(recipients) == 0 {
		return nil
	}

	payload := notificationPayload{
		EventID:    event.EventID.String(),
		Type:       event.Type,
		ThreadID:   event.ThreadID.String(),
		Subject:    event.Subject,
		ActorID:    event.ActorID.String(),
		Body:       event.Body,
		OccurredAt: event.OccurredAt,
		Recipients: make([]eventRecipient, 0, len(recipients)),
	}
	if event.MessageID != nil {
		id := event.MessageID.String()
		payload.MessageID = &id
	}
	for _, user := range recipients {
		payload.Recipients = append(payload.Recipients, eventRecipient{
			UserID:    user.UserID.String(),
			Name:      user.Name,
			Email:     user.Email,
			NotifyVia: user.NotifyVia,
		})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}
	return n.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      event.EventID,
		EventType:    event.Type,
		PartitionKey: event.ThreadID.String(),
		Payload:      raw,
		OccurredAt:   event.OccurredAt,
	})
}
