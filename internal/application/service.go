package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ikidnapmyself/pp-api/internal/domain"
	"github.com/ikidnapmyself/pp-api/internal/ports"
)

const serviceName = "pp-api"

// Config carries the tunables of the messaging domain service.
type Config struct {
	PageSize int
}

// MessagingService orchestrates thread, participant and message lifecycle
// plus notification fan-out. It owns no transport concerns; everything it
// touches comes in through ports.
type MessagingService struct {
	cfg          Config
	users        ports.UserRepository
	threads      ports.ThreadRepository
	participants ports.ParticipantRepository
	messages     ports.MessageRepository
	dispatcher   ports.NotificationDispatcher
	nowFn        func() time.Time
}

type Dependencies struct {
	Config       Config
	Users        ports.UserRepository
	Threads      ports.ThreadRepository
	Participants ports.ParticipantRepository
	Messages     ports.MessageRepository
	Dispatcher   ports.NotificationDispatcher
}

func NewMessagingService(deps Dependencies) *MessagingService {
	cfg := deps.Config
	if cfg.PageSize <= 0 {
		cfg.PageSize = 15
	}
	return &MessagingService{
		cfg:          cfg,
		users:        deps.Users,
		threads:      deps.Threads,
		participants: deps.Participants,
		messages:     deps.Messages,
		dispatcher:   deps.Dispatcher,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}

// dispatch hands an event to the notification port. Dispatch failures never
// fail the domain operation that produced the event.
func (s *MessagingService) dispatch(ctx context.Context, recipients []domain.User, event domain.Event) {
	if s.dispatcher == nil || len(recipients) == 0 {
		return
	}
	if err := s.dispatcher.Notify(ctx, recipients, event); err != nil {
		slog.Default().WarnContext(ctx, "notification dispatch failed",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "dispatch_notification",
			"outcome", "failure",
			"event_type", event.Type,
			"thread_id", event.ThreadID.String(),
			"recipient_count", len(recipients),
			"error", err,
		)
	}
}
