package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/ikidnapmyself/pp-api/internal/domain"
)

// GetUser resolves a user by id for presentation-layer lookups.
func (s *MessagingService) GetUser(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	return s.users.GetByID(ctx, userID)
}
