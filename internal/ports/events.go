package ports

import (
	"context"

	"github.com/ikidnapmyself/pp-api/internal/domain"
)

// NotificationDispatcher is the outbound fan-out port. Dispatch is best-effort
// from the domain's point of view: callers log failures and move on, delivery
// guarantees belong to whatever sits behind the port.
type NotificationDispatcher interface {
	Notify(ctx context.Context, recipients []domain.User, event domain.Event) error
}

// EventPublisher is the broker-facing publish port used by the outbox worker.
// partitionKey is the thread id of the notification; publishers that partition
// use it as the message key so one thread's notifications stay ordered.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, partitionKey string, payload []byte) error
}
