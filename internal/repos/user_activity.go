package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/types"
)

type UserActivityRepo interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserActivity, error)
	Upsert(ctx context.Context, tx *gorm.DB, activity *types.UserActivity) (*types.UserActivity, error)
	DeleteByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
	// StaleInsightsUserIDs returns users whose activity has changed since their
	// insights were last computed, or who have activity but no insights row at
	// all, where the insights row is older than the cutoff.
	StaleInsightsUserIDs(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

type userActivityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserActivityRepo(db *gorm.DB, baseLog *logger.Logger) UserActivityRepo {
	return &userActivityRepo{
		db:  db,
		log: baseLog.With("repo", "UserActivityRepo"),
	}
}

func (r *userActivityRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserActivity, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var activity types.UserActivity
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&activity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *userActivityRepo) Upsert(ctx context.Context, tx *gorm.DB, activity *types.UserActivity) (*types.UserActivity, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if activity == nil || activity.UserID == uuid.Nil {
		return nil, gorm.ErrInvalidData
	}
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	activity.UpdatedAt = time.Now()
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"lesson_activities",
				"flashcard_sessions",
				"card_reviews",
				"course_activities",
				"daily_learning",
				"updated_at",
			}),
		}).
		Create(activity).Error
	if err != nil {
		return nil, err
	}
	return activity, nil
}

func (r *userActivityRepo) DeleteByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&types.UserActivity{}).Error
}

func (r *userActivityRepo) StaleInsightsUserIDs(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var ids []uuid.UUID
	err := transaction.WithContext(ctx).
		Table("user_activity ua").
		Select("ua.user_id").
		Joins("LEFT JOIN user_insights ui ON ui.user_id = ua.user_id").
		Where("ui.user_id IS NULL OR (ui.last_updated < ? AND ua.updated_at > ui.last_updated)", cutoff).
		Limit(limit).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
