package postgres

import (
	"github.com/ikidnapmyself/pp-api/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Users        ports.UserRepository
	Threads      ports.ThreadRepository
	Participants ports.ParticipantRepository
	Messages     ports.MessageRepository
	Clients      ports.ClientRepository
	Outbox       ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:        &userRepository{db: db},
		Threads:      &threadRepository{db: db},
		Participants: &participantRepository{db: db},
		Messages:     &messageRepository{db: db},
		Clients:      &clientRepository{db: db},
		Outbox:       &outboxRepository{db: db},
	}
}
