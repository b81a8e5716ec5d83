package postgres

import (
	"context"
	"errors"

	"github.com/ikidnapmyself/pp-api/internal/domain"
	"gorm.io/gorm"
)

type clientRepository struct {
	db *gorm.DB
}

func (r *clientRepository) Create(ctx context.Context, client domain.Client) (domain.Client, error) {
	rec := oauthClientModel{
		UserID:      client.UserID,
		Name:        client.Name,
		SecretHash:  client.SecretHash,
		RedirectURI: client.RedirectURI,
		CreatedAt:   client.CreatedAt,
		UpdatedAt:   client.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Client{}, domain.ErrConflict
		}
		return domain.Client{}, err
	}
	return toDomainClient(rec), nil
}

func (r *clientRepository) GetByName(ctx context.Context, name string) (domain.Client, error) {
	var rec oauthClientModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Client{}, domain.ErrNotFound
		}
		return domain.Client{}, err
	}
	return toDomainClient(rec), nil
}
