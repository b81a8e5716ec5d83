package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/ikidnapmyself/pp-api/internal/domain"
	"github.com/ikidnapmyself/pp-api/internal/ports"
)

// AddParticipant joins a user to a thread with create-or-update semantics on
// (thread_id, user_id): an existing row is updated in place, which also clears
// its archival marker. Every current thread member is notified of the
// addition, the added user included.
func (s *MessagingService) AddParticipant(
	ctx context.Context,
	thread domain.Thread,
	user domain.User,
	markAsRead bool,
) (domain.Participant, error) {
	now := s.nowFn()
	participant, err := s.participants.Upsert(ctx, ports.ParticipantUpsertParams{
		ThreadID:    thread.ThreadID,
		UserID:      user.UserID,
		SetLastRead: markAsRead,
		At:          now,
	})
	if err != nil {
		return domain.Participant{}, err
	}

	members, err := s.participants.ListByThread(ctx, thread.ThreadID, false)
	if err != nil {
		return domain.Participant{}, err
	}
	memberIDs := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, m.UserID)
	}
	recipients, err := s.users.ListByIDs(ctx, memberIDs)
	if err != nil {
		return domain.Participant{}, err
	}
	s.dispatch(ctx, recipients, domain.NewParticipantCreated(thread, participant, now))

	return participant, nil
}

// ListAllPossibleParticipants returns every user sharing any thread with the
// given user through any membership row, archived or not, excluding the user
// themselves and deduplicated.
func (s *MessagingService) ListAllPossibleParticipants(ctx context.Context, userID uuid.UUID, page int) (UserPage, error) {
	page = normalizePage(page)

	threadIDs, err := s.participants.ListThreadIDsByUser(ctx, userID)
	if err != nil {
		return UserPage{}, err
	}
	if len(threadIDs) == 0 {
		return UserPage{Page: page, PageSize: s.cfg.PageSize}, nil
	}

	candidateIDs, err := s.participants.ListUserIDsByThreads(ctx, threadIDs)
	if err != nil {
		return UserPage{}, err
	}
	contactIDs := make([]uuid.UUID, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		if id == userID {
			continue
		}
		contactIDs = appendUnique(contactIDs, id)
	}
	if len(contactIDs) == 0 {
		return UserPage{Page: page, PageSize: s.cfg.PageSize}, nil
	}

	users, total, err := s.users.ListByIDsPaged(ctx, contactIDs, page, s.cfg.PageSize)
	if err != nil {
		return UserPage{}, err
	}
	return UserPage{Users: users, Total: total, Page: page, PageSize: s.cfg.PageSize}, nil
}
