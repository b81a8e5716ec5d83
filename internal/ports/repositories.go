package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ikidnapmyself/pp-api/internal/domain"
)

// UserCreateParams captures the attributes persisted on first login from a
// provider identity. Profile is stored as a structured blob, not columns.
type UserCreateParams struct {
	Name         string
	Email        string
	ProviderName string
	ProviderID   string
	AccessToken  string
	RefreshToken string
	Profile      map[string]any
	NotifyVia    []string
	CreatedAt    time.Time
}

// UserUpdateParams holds the mutable fields refreshed on every repeat login.
type UserUpdateParams struct {
	UserID       uuid.UUID
	Name         string
	Email        string
	AccessToken  string
	RefreshToken string
	Profile      map[string]any
	UpdatedAt    time.Time
}

// UserRepository persists local identities.
// GetByProviderIdentity is the lookup backing the (provider_name, provider_id)
// uniqueness invariant.
type UserRepository interface {
	Create(ctx context.Context, params UserCreateParams) (domain.User, error)
	Update(ctx context.Context, params UserUpdateParams) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	GetByProviderIdentity(ctx context.Context, providerName, providerID string) (domain.User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.User, error)
	ListByIDsPaged(ctx context.Context, ids []uuid.UUID, page, pageSize int) ([]domain.User, int, error)
}

// ThreadRepository persists conversation containers.
// List methods return the page plus the unfiltered total for pagination envelopes.
type ThreadRepository interface {
	Create(ctx context.Context, subject string, createdAt time.Time) (domain.Thread, error)
	GetByID(ctx context.Context, threadID uuid.UUID) (domain.Thread, error)
	// GetWithRelations eagerly attaches messages and participants with their users.
	GetWithRelations(ctx context.Context, threadID uuid.UUID) (domain.Thread, error)
	// ListLatest returns all threads by most-recent activity with their
	// non-archived participants attached.
	ListLatest(ctx context.Context, page, pageSize int) ([]domain.Thread, int, error)
	// ListForUser returns threads where the user has a non-archived participant row.
	ListForUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Thread, int, error)
	// ListUnreadForUser returns the subset of ListForUser whose latest message
	// postdates the user's last_read (or last_read is unset). Not paginated.
	ListUnreadForUser(ctx context.Context, userID uuid.UUID) ([]domain.Thread, error)
	// Touch bumps updated_at so activity ordering reflects new messages.
	Touch(ctx context.Context, threadID uuid.UUID, at time.Time) error
}

// ParticipantUpsertParams drives the atomic create-or-update on (thread_id, user_id).
// An update always clears the archival marker; last_read is only written when
// SetLastRead is true.
type ParticipantUpsertParams struct {
	ThreadID    uuid.UUID
	UserID      uuid.UUID
	SetLastRead bool
	At          time.Time
}

// ParticipantRepository manages thread membership and per-user read state.
type ParticipantRepository interface {
	// Upsert must be atomic: concurrent calls for the same (thread, user) pair
	// end with exactly one row.
	Upsert(ctx context.Context, params ParticipantUpsertParams) (domain.Participant, error)
	ListByThread(ctx context.Context, threadID uuid.UUID, includeArchived bool) ([]domain.Participant, error)
	// ActivateAllByThread clears archival on every participant of the thread and
	// returns the resulting rows.
	ActivateAllByThread(ctx context.Context, threadID uuid.UUID, at time.Time) ([]domain.Participant, error)
	// MarkRead sets last_read for one membership; ErrNotFound when the user is
	// not a participant of the thread.
	MarkRead(ctx context.Context, threadID, userID uuid.UUID, at time.Time) (domain.Participant, error)
	// MarkAllReadByUser bulk-sets last_read on every row of the user, archived
	// included, and reports whether anything changed.
	MarkAllReadByUser(ctx context.Context, userID uuid.UUID, at time.Time) (bool, error)
	// ListThreadIDsByUser returns thread ids for every membership of the user,
	// regardless of archival state.
	ListThreadIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	// ListUserIDsByThreads returns the deduplicated user ids across the given threads.
	ListUserIDsByThreads(ctx context.Context, threadIDs []uuid.UUID) ([]uuid.UUID, error)
}

// MessageCreateParams captures an immutable message at creation time.
type MessageCreateParams struct {
	ThreadID  uuid.UUID
	UserID    uuid.UUID
	Body      map[string]any
	CreatedAt time.Time
}

// MessageRepository persists append-only messages.
type MessageRepository interface {
	Create(ctx context.Context, params MessageCreateParams) (domain.Message, error)
	ListByThread(ctx context.Context, threadID uuid.UUID) ([]domain.Message, error)
}

// ClientRepository manages OAuth client registrations keyed by name.
type ClientRepository interface {
	Create(ctx context.Context, client domain.Client) (domain.Client, error)
	GetByName(ctx context.Context, name string) (domain.Client, error)
}

// OutboxEvent is the write-side event payload prior to storage.
// It is adapter-neutral to keep application code independent of broker specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	FirstSeenAt    time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls the publish-retry workflow for notification events.
// This explicit contract enables transactional outbox patterns without leaking DB details.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
