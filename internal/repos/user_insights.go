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

type UserInsightsRepo interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserInsights, error)
	// UpsertComputed replaces the computed sections and metadata. It must never
	// touch the advice_* columns: an advice merge can land between a recompute's
	// read and write and has to survive it.
	UpsertComputed(ctx context.Context, tx *gorm.DB, insights *types.UserInsights) (*types.UserInsights, error)
	// UpdateAdvice is the targeted field-level merge used by the advice worker.
	UpdateAdvice(ctx context.Context, tx *gorm.DB, userID uuid.UUID, message, tone string, generatedAt time.Time) error
	DeleteByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type userInsightsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserInsightsRepo(db *gorm.DB, baseLog *logger.Logger) UserInsightsRepo {
	return &userInsightsRepo{
		db:  db,
		log: baseLog.With("repo", "UserInsightsRepo"),
	}
}

func (r *userInsightsRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserInsights, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var insights types.UserInsights
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&insights).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &insights, nil
}

func (r *userInsightsRepo) UpsertComputed(ctx context.Context, tx *gorm.DB, insights *types.UserInsights) (*types.UserInsights, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if insights == nil || insights.UserID == uuid.Nil {
		return nil, gorm.ErrInvalidData
	}
	if insights.ID == uuid.Nil {
		insights.ID = uuid.New()
	}
	insights.UpdatedAt = time.Now()
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"performance",
				"analysis",
				"study_patterns",
				"recommendations",
				"predictions",
				"confidence_pct",
				"data_point_count",
				"last_updated",
				"updated_at",
			}),
		}).
		Create(insights).Error
	if err != nil {
		return nil, err
	}
	return insights, nil
}

func (r *userInsightsRepo) UpdateAdvice(ctx context.Context, tx *gorm.DB, userID uuid.UUID, message, tone string, generatedAt time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return gorm.ErrInvalidData
	}
	res := transaction.WithContext(ctx).
		Model(&types.UserInsights{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"advice_message":      message,
			"advice_tone":         tone,
			"advice_generated_at": generatedAt,
			"last_synced_at":      generatedAt,
			"updated_at":          time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userInsightsRepo) DeleteByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&types.UserInsights{}).Error
}
