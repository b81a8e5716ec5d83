package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ikidnapmyself/pp-api/internal/domain"
	"github.com/ikidnapmyself/pp-api/internal/ports"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, params ports.UserCreateParams) (domain.User, error) {
	rec := userModel{
		Name:         params.Name,
		Email:        nullableString(params.Email),
		ProviderName: params.ProviderName,
		ProviderID:   params.ProviderID,
		AccessToken:  params.AccessToken,
		RefreshToken: nullableString(params.RefreshToken),
		Profile:      encodeJSONMap(params.Profile),
		NotifyVia:    encodeJSONStrings(params.NotifyVia),
		CreatedAt:    params.CreatedAt,
		UpdatedAt:    params.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrConflict
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) Update(ctx context.Context, params ports.UserUpdateParams) (domain.User, error) {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ?", params.UserID).
		Updates(map[string]any{
			"name":          params.Name,
			"email":         nullableString(params.Email),
			"access_token":  params.AccessToken,
			"refresh_token": nullableString(params.RefreshToken),
			"profile":       encodeJSONMap(params.Profile),
			"updated_at":    params.UpdatedAt,
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domain.User{}, domain.ErrConflict
		}
		return domain.User{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	return r.GetByID(ctx, params.UserID)
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByProviderIdentity(ctx context.Context, providerName, providerID string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).
		Where("provider_name = ?", providerName).
		Where("provider_id = ?", providerID).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []userModel
	if err := r.db.WithContext(ctx).
		Where("user_id IN ?", ids).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainUser(row))
	}
	return result, nil
}

func (r *userRepository) ListByIDsPaged(ctx context.Context, ids []uuid.UUID, page, pageSize int) ([]domain.User, int, error) {
	if len(ids) == 0 {
		return nil, 0, nil
	}
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id IN ?", ids).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []userModel
	if err := r.db.WithContext(ctx).
		Where("user_id IN ?", ids).
		Order("name ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	result := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainUser(row))
	}
	return result, int(total), nil
}
