package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/repos"
	"github.com/veralingo/veralingo-backend/internal/types"
)

// ErrInsightsNotFound is returned before the first recompute has run for a
// user; presentation layers map it to a 404.
var ErrInsightsNotFound = errors.New("insights not found")

// InsightsService is the read side of the insights store, plus the explicit
// user data-clearing operation (the only way an insights record is deleted).
type InsightsService interface {
	GetInsights(ctx context.Context, userID uuid.UUID) (*types.UserInsights, error)
	ClearUserData(ctx context.Context, userID uuid.UUID) error
}

type insightsService struct {
	db           *gorm.DB
	log          *logger.Logger
	insightsRepo repos.UserInsightsRepo
	activityRepo repos.UserActivityRepo
}

func NewInsightsService(db *gorm.DB, baseLog *logger.Logger, insightsRepo repos.UserInsightsRepo, activityRepo repos.UserActivityRepo) InsightsService {
	return &insightsService{
		db:           db,
		log:          baseLog.With("service", "InsightsService"),
		insightsRepo: insightsRepo,
		activityRepo: activityRepo,
	}
}

func (s *insightsService) GetInsights(ctx context.Context, userID uuid.UUID) (*types.UserInsights, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	insights, err := s.insightsRepo.GetByUserID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if insights == nil {
		return nil, ErrInsightsNotFound
	}
	return insights, nil
}

func (s *insightsService) ClearUserData(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("missing user_id")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.insightsRepo.DeleteByUserID(ctx, tx, userID); err != nil {
			return fmt.Errorf("delete insights: %w", err)
		}
		if err := s.activityRepo.DeleteByUserID(ctx, tx, userID); err != nil {
			return fmt.Errorf("delete activity: %w", err)
		}
		s.log.Info("User learning data cleared", "user_id", userID)
		return nil
	})
}
