package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/ikidnapmyself/pp-api/internal/domain"
	"github.com/ikidnapmyself/pp-api/internal/ports"
	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

func (r *messageRepository) Create(ctx context.Context, params ports.MessageCreateParams) (domain.Message, error) {
	body, err := json.Marshal(params.Body)
	if err != nil {
		return domain.Message{}, fmt.Errorf("encode message body: %w", err)
	}
	rec := messageModel{
		ThreadID:  params.ThreadID,
		UserID:    params.UserID,
		Body:      string(body),
		CreatedAt: params.CreatedAt,
		UpdatedAt: params.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Message{}, err
	}
	return toDomainMessage(rec), nil
}

func (r *messageRepository) ListByThread(ctx context.Context, threadID uuid.UUID) ([]domain.Message, error) {
	var rows []messageModel
	if err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainMessage(row))
	}
	return result, nil
}
