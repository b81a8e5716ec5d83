package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ikidnapmyself/pp-api/internal/domain"
	"gorm.io/gorm"
)

type threadRepository struct {
	db *gorm.DB
}

func (r *threadRepository) Create(ctx context.Context, subject string, createdAt time.Time) (domain.Thread, error) {
	rec := threadModel{
		Subject:   subject,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Thread{}, err
	}
	return toDomainThread(rec), nil
}

func (r *threadRepository) GetByID(ctx context.Context, threadID uuid.UUID) (domain.Thread, error) {
	var rec threadModel
	if err := r.db.WithContext(ctx).Where("thread_id = ?", threadID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Thread{}, domain.ErrNotFound
		}
		return domain.Thread{}, err
	}
	return toDomainThread(rec), nil
}

func (r *threadRepository) GetWithRelations(ctx context.Context, threadID uuid.UUID) (domain.Thread, error) {
	thread, err := r.GetByID(ctx, threadID)
	if err != nil {
		return domain.Thread{}, err
	}

	var participantRows []participantModel
	if err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Where("archived_at IS NULL").
		Order("created_at ASC").
		Find(&participantRows).Error; err != nil {
		return domain.Thread{}, err
	}

	userIDs := make([]uuid.UUID, 0, len(participantRows))
	for _, row := range participantRows {
		userIDs = append(userIDs, row.UserID)
	}
	usersByID := map[uuid.UUID]domain.User{}
	if len(userIDs) > 0 {
		var userRows []userModel
		if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&userRows).Error; err != nil {
			return domain.Thread{}, err
		}
		for _, row := range userRows {
			usersByID[row.UserID] = toDomainUser(row)
		}
	}

	thread.Participants = make([]domain.Participant, 0, len(participantRows))
	for _, row := range participantRows {
		participant := toDomainParticipant(row)
		if user, ok := usersByID[row.UserID]; ok {
			participant.User = &user
		}
		thread.Participants = append(thread.Participants, participant)
	}

	var messageRows []messageModel
	if err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Find(&messageRows).Error; err != nil {
		return domain.Thread{}, err
	}
	thread.Messages = make([]domain.Message, 0, len(messageRows))
	for _, row := range messageRows {
		thread.Messages = append(thread.Messages, toDomainMessage(row))
	}

	return thread, nil
}

func (r *threadRepository) ListLatest(ctx context.Context, page, pageSize int) ([]domain.Thread, int, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&threadModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []threadModel
	if err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	threads, err := r.attachActiveParticipants(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return threads, int(total), nil
}

func (r *threadRepository) ListForUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Thread, int, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&threadModel{}).
		Joins("JOIN participants ON participants.thread_id = threads.thread_id").
		Where("participants.user_id = ?", userID).
		Where("participants.archived_at IS NULL").
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []threadModel
	if err := r.db.WithContext(ctx).
		Model(&threadModel{}).
		Select("threads.*").
		Joins("JOIN participants ON participants.thread_id = threads.thread_id").
		Where("participants.user_id = ?", userID).
		Where("participants.archived_at IS NULL").
		Order("threads.updated_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	threads, err := r.attachActiveParticipants(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return threads, int(total), nil
}

func (r *threadRepository) ListUnreadForUser(ctx context.Context, userID uuid.UUID) ([]domain.Thread, error) {
	var rows []threadModel
	if err := r.db.WithContext(ctx).
		Model(&threadModel{}).
		Select("threads.*").
		Joins("JOIN participants ON participants.thread_id = threads.thread_id").
		Where("participants.user_id = ?", userID).
		Where("participants.archived_at IS NULL").
		Where(`EXISTS (
			SELECT 1 FROM messages
			WHERE messages.thread_id = threads.thread_id
			AND (participants.last_read IS NULL OR messages.created_at > participants.last_read)
		)`).
		Order("threads.updated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.attachActiveParticipants(ctx, rows)
}

func (r *threadRepository) Touch(ctx context.Context, threadID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&threadModel{}).
		Where("thread_id = ?", threadID).
		Update("updated_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// attachActiveParticipants loads the non-archived membership rows for a page of
// threads in one query instead of one per thread.
func (r *threadRepository) attachActiveParticipants(ctx context.Context, rows []threadModel) ([]domain.Thread, error) {
	threads := make([]domain.Thread, 0, len(rows))
	if len(rows) == 0 {
		return threads, nil
	}

	threadIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		threadIDs = append(threadIDs, row.ThreadID)
	}
	var participantRows []participantModel
	if err := r.db.WithContext(ctx).
		Where("thread_id IN ?", threadIDs).
		Where("archived_at IS NULL").
		Order("created_at ASC").
		Find(&participantRows).Error; err != nil {
		return nil, err
	}
	byThread := map[uuid.UUID][]domain.Participant{}
	for _, row := range participantRows {
		byThread[row.ThreadID] = append(byThread[row.ThreadID], toDomainParticipant(row))
	}

	for _, row := range rows {
		thread := toDomainThread(row)
		thread.Participants = byThread[row.ThreadID]
		threads = append(threads, thread)
	}
	return threads, nil
}
