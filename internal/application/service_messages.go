package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ikidnapmyself/pp-api/internal/domain"
	"github.com/ikidnapmyself/pp-api/internal/ports"
)

// PostMessage appends a message to the thread. New activity revives everyone:
// all archived participants are reactivated first, and the author becomes (or
// stays) a participant whose last_read is set so their own post never counts
// as unread. MessageCreated goes to the union of reactivated members and the
// author.
func (s *MessagingService) PostMessage(
	ctx context.Context,
	thread domain.Thread,
	author domain.User,
	body map[string]any,
) (domain.Message, error) {
	if len(body) == 0 {
		return domain.Message{}, fmt.Errorf("%w: message body is required", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	activated, err := s.participants.ActivateAllByThread(ctx, thread.ThreadID, now)
	if err != nil {
		return domain.Message{}, err
	}

	recipientIDs := make([]uuid.UUID, 0, len(activated)+1)
	for _, p := range activated {
		recipientIDs = append(recipientIDs, p.UserID)
	}
	recipientIDs = appendUnique(recipientIDs, author.UserID)

	message, err := s.messages.Create(ctx, ports.MessageCreateParams{
		ThreadID:  thread.ThreadID,
		UserID:    author.UserID,
		Body:      body,
		CreatedAt: now,
	})
	if err != nil {
		return domain.Message{}, err
	}
	if err := s.threads.Touch(ctx, thread.ThreadID, now); err != nil {
		return domain.Message{}, err
	}

	if _, err := s.AddParticipant(ctx, thread, author, true); err != nil {
		return domain.Message{}, err
	}

	// Ids that no longer resolve to a user are filtered here, not failed.
	recipients, err := s.users.ListByIDs(ctx, recipientIDs)
	if err != nil {
		return domain.Message{}, err
	}
	s.dispatch(ctx, recipients, domain.NewMessageCreated(thread, message, now))

	return message, nil
}

// MarkThreadRead stamps the user's membership with the current time.
// ErrNotFound when the user is not a participant of the thread.
func (s *MessagingService) MarkThreadRead(ctx context.Context, thread domain.Thread, userID uuid.UUID) (domain.Participant, error) {
	return s.participants.MarkRead(ctx, thread.ThreadID, userID, s.nowFn())
}

// MarkAllThreadsRead stamps every membership of the user, archived rows
// included, and reports whether any row changed.
func (s *MessagingService) MarkAllThreadsRead(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.participants.MarkAllReadByUser(ctx, userID, s.nowFn())
}
