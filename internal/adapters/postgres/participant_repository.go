package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ikidnapmyself/pp-api/internal/domain"
	"github.com/ikidnapmyself/pp-api/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type participantRepository struct {
	db *gorm.DB
}

// Upsert inserts or updates the (thread_id, user_id) membership in a single
// statement. The unique index makes concurrent calls converge on one row; an
// update through this path always clears archived_at.
func (r *participantRepository) Upsert(ctx context.Context, params ports.ParticipantUpsertParams) (domain.Participant, error) {
	rec := participantModel{
		ThreadID:  params.ThreadID,
		UserID:    params.UserID,
		CreatedAt: params.At,
		UpdatedAt: params.At,
	}
	if params.SetLastRead {
		at := params.At
		rec.LastRead = &at
	}

	assignments := map[string]any{
		"archived_at": nil,
		"updated_at":  params.At,
	}
	if params.SetLastRead {
		assignments["last_read"] = params.At
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "thread_id"},
			{Name: "user_id"},
		},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&rec).Error; err != nil {
		return domain.Participant{}, err
	}

	// Re-read so conflict updates surface the surviving row, not the insert draft.
	var row participantModel
	if err := r.db.WithContext(ctx).
		Where("thread_id = ?", params.ThreadID).
		Where("user_id = ?", params.UserID).
		Take(&row).Error; err != nil {
		return domain.Participant{}, err
	}
	return toDomainParticipant(row), nil
}

func (r *participantRepository) ListByThread(ctx context.Context, threadID uuid.UUID, includeArchived bool) ([]domain.Participant, error) {
	query := r.db.WithContext(ctx).Where("thread_id = ?", threadID)
	if !includeArchived {
		query = query.Where("archived_at IS NULL")
	}
	var rows []participantModel
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Participant, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainParticipant(row))
	}
	return result, nil
}

func (r *participantRepository) ActivateAllByThread(ctx context.Context, threadID uuid.UUID, at time.Time) ([]domain.Participant, error) {
	if err := r.db.WithContext(ctx).
		Model(&participantModel{}).
		Where("thread_id = ?", threadID).
		Where("archived_at IS NOT NULL").
		Updates(map[string]any{
			"archived_at": nil,
			"updated_at":  at,
		}).Error; err != nil {
		return nil, err
	}
	return r.ListByThread(ctx, threadID, false)
}

func (r *participantRepository) MarkRead(ctx context.Context, threadID, userID uuid.UUID, at time.Time) (domain.Participant, error) {
	res := r.db.WithContext(ctx).
		Model(&participantModel{}).
		Where("thread_id = ?", threadID).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"last_read":  at,
			"updated_at": at,
		})
	if res.Error != nil {
		return domain.Participant{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Participant{}, domain.ErrNotFound
	}

	var row participantModel
	if err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Where("user_id = ?", userID).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Participant{}, domain.ErrNotFound
		}
		return domain.Participant{}, err
	}
	return toDomainParticipant(row), nil
}

func (r *participantRepository) MarkAllReadByUser(ctx context.Context, userID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&participantModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"last_read":  at,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *participantRepository) ListThreadIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&participantModel{}).
		Where("user_id = ?", userID).
		Pluck("thread_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *participantRepository) ListUserIDsByThreads(ctx context.Context, threadIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(threadIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&participantModel{}).
		Distinct("user_id").
		Where("thread_id IN ?", threadIDs).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
