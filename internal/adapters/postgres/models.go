package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name"`
	Email        *string   `gorm:"column:email"`
	ProviderName string    `gorm:"column:provider_name"`
	ProviderID   string    `gorm:"column:provider_id"`
	AccessToken  string    `gorm:"column:access_token"`
	RefreshToken *string   `gorm:"column:refresh_token"`
	Profile      *string   `gorm:"column:profile;type:jsonb"`
	NotifyVia    *string   `gorm:"column:notify_via;type:jsonb"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type threadModel struct {
	ThreadID  uuid.UUID `gorm:"column:thread_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Subject   string    `gorm:"column:subject"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (threadModel) TableName() string { return "threads" }

type participantModel struct {
	ParticipantID uuid.UUID  `gorm:"column:participant_id;type:uuid;default:gen_random_uuid();primaryKey"`
	ThreadID      uuid.UUID  `gorm:"column:thread_id"`
	UserID        uuid.UUID  `gorm:"column:user_id"`
	LastRead      *time.Time `gorm:"column:last_read"`
	ArchivedAt    *time.Time `gorm:"column:archived_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (participantModel) TableName() string { return "participants" }

type messageModel struct {
	MessageID uuid.UUID `gorm:"column:message_id;type:uuid;default:gen_random_uuid();primaryKey"`
	ThreadID  uuid.UUID `gorm:"column:thread_id"`
	UserID    uuid.UUID `gorm:"column:user_id"`
	Body      string    `gorm:"column:body;type:jsonb"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (messageModel) TableName() string { return "messages" }

type oauthClientModel struct {
	ClientID    uuid.UUID `gorm:"column:client_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id"`
	Name        string    `gorm:"column:name"`
	SecretHash  string    `gorm:"column:secret_hash"`
	RedirectURI string    `gorm:"column:redirect_uri"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (oauthClientModel) TableName() string { return "oauth_clients" }

type outboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	FirstSeenAt    time.Time  `gorm:"column:first_seen_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "notification_outbox" }
