package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/ikidnapmyself/pp-api/internal/domain"
)

// ListAllThreads returns every thread ordered by most-recent activity.
// Archived participant rows are excluded from the attached membership.
func (s *MessagingService) ListAllThreads(ctx context.Context, page int) (ThreadPage, error) {
	page = normalizePage(page)
	threads, total, err := s.threads.ListLatest(ctx, page, s.cfg.PageSize)
	if err != nil {
		return ThreadPage{}, err
	}
	return ThreadPage{Threads: threads, Total: total, Page: page, PageSize: s.cfg.PageSize}, nil
}

// ListThreadsForUser returns threads where the user holds a non-archived
// membership, newest activity first.
func (s *MessagingService) ListThreadsForUser(ctx context.Context, userID uuid.UUID, page int) (ThreadPage, error) {
	page = normalizePage(page)
	threads, total, err := s.threads.ListForUser(ctx, userID, page, s.cfg.PageSize)
	if err != nil {
		return ThreadPage{}, err
	}
	return ThreadPage{Threads: threads, Total: total, Page: page, PageSize: s.cfg.PageSize}, nil
}

// ListUnreadThreadsForUser returns the user's threads carrying messages newer
// than the user's last_read mark. Deliberately unpaginated.
func (s *MessagingService) ListUnreadThreadsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Thread, error) {
	return s.threads.ListUnreadForUser(ctx, userID)
}

// GetThread retrieves one thread with messages and participants+users attached.
func (s *MessagingService) GetThread(ctx context.Context, threadID uuid.UUID) (domain.Thread, error) {
	return s.threads.GetWithRelations(ctx, threadID)
}

// GetThreadParticipants returns the active membership of a thread.
func (s *MessagingService) GetThreadParticipants(ctx context.Context, threadID uuid.UUID) ([]domain.Participant, error) {
	if _, err := s.threads.GetByID(ctx, threadID); err != nil {
		return nil, err
	}
	return s.participants.ListByThread(ctx, threadID, false)
}

// CreateThread opens a new thread, adds each resolvable recipient as a
// participant, then posts the opening message from the author. Recipient ids
// that resolve to no user are dropped silently; they are not an error.
func (s *MessagingService) CreateThread(
	ctx context.Context,
	subject string,
	author domain.User,
	body map[string]any,
	recipientIDs []uuid.UUID,
) (domain.Thread, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return domain.Thread{}, fmt.Errorf("%w: subject is required", domain.ErrInvalidInput)
	}
	if len(body) == 0 {
		return domain.Thread{}, fmt.Errorf("%w: message body is required", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	thread, err := s.threads.Create(ctx, subject, now)
	if err != nil {
		return domain.Thread{}, err
	}

	for _, recipientID := range recipientIDs {
		recipient, err := s.users.GetByID(ctx, recipientID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				slog.Default().DebugContext(ctx, "thread recipient dropped",
					"service", serviceName,
					"module", "application",
					"layer", "application",
					"operation", "create_thread",
					"outcome", "skipped",
					"thread_id", thread.ThreadID.String(),
					"recipient_id", recipientID.String(),
				)
				continue
			}
			return domain.Thread{}, err
		}
		if _, err := s.AddParticipant(ctx, thread, recipient, false); err != nil {
			return domain.Thread{}, err
		}
	}

	if _, err := s.PostMessage(ctx, thread, author, body); err != nil {
		return domain.Thread{}, err
	}

	return s.threads.GetWithRelations(ctx, thread.ThreadID)
}
