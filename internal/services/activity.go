package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/veralingo/veralingo-backend/internal/analytics"
	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/repos"
	"github.com/veralingo/veralingo-backend/internal/types"
)

// ActivityService persists activity-tracking writes into the per-user
// activity document. Every successful write schedules a recompute; a
// scheduling failure is logged and swallowed so it can never fail the write
// that triggered it.
type ActivityService interface {
	TrackLesson(ctx context.Context, input TrackLessonInput) error
	TrackFlashcardSession(ctx context.Context, input TrackFlashcardSessionInput) error
	TrackCardReview(ctx context.Context, input TrackCardReviewInput) error
	TrackCourse(ctx context.Context, input TrackCourseInput) error
}

type TrackLessonInput struct {
	UserID           uuid.UUID         `json:"user_id" binding:"required"`
	LessonID         uuid.UUID         `json:"lesson_id" binding:"required"`
	CourseID         *uuid.UUID        `json:"course_id"`
	Kind             types.LessonKind  `json:"kind" binding:"required"`
	TaskKind         types.TaskKind    `json:"task_kind"`
	TimeSpentSeconds int               `json:"time_spent_seconds"`
	IsCompleted      bool              `json:"is_completed"`
	Video            *types.VideoStats `json:"video"`
	Task             *types.TaskStats  `json:"task"`
}

type TrackFlashcardSessionInput struct {
	UserID          uuid.UUID `json:"user_id" binding:"required"`
	ContentID       uuid.UUID `json:"content_id" binding:"required"`
	CardsStudied    int       `json:"cards_studied"`
	CorrectAnswers  int       `json:"correct_answers"`
	DurationSeconds int       `json:"duration_seconds"`
}

type TrackCardReviewInput struct {
	UserID         uuid.UUID              `json:"user_id" binding:"required"`
	CardID         uuid.UUID              `json:"card_id" binding:"required"`
	FlashcardID    uuid.UUID              `json:"flashcard_id" binding:"required"`
	IsCorrect      bool                   `json:"is_correct"`
	ResponseTimeMs int                    `json:"response_time_ms"`
	MasteryLevel   types.CardMasteryLevel `json:"mastery_level"`
}

type TrackCourseInput struct {
	UserID           uuid.UUID `json:"user_id" binding:"required"`
	CourseID         uuid.UUID `json:"course_id" binding:"required"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	IsCompleted      bool      `json:"is_completed"`
}

type activityService struct {
	db        *gorm.DB
	log       *logger.Logger
	repo      repos.UserActivityRepo
	scheduler InsightScheduler
	loc       *time.Location
}

func NewActivityService(db *gorm.DB, baseLog *logger.Logger, repo repos.UserActivityRepo, scheduler InsightScheduler, loc *time.Location) ActivityService {
	if loc == nil {
		loc = time.UTC
	}
	return &activityService{
		db:        db,
		log:       baseLog.With("service", "ActivityService"),
		repo:      repo,
		scheduler: scheduler,
		loc:       loc,
	}
}

func (s *activityService) TrackLesson(ctx context.Context, input TrackLessonInput) error {
	if input.UserID == uuid.Nil || input.LessonID == uuid.Nil {
		return fmt.Errorf("missing user_id or lesson_id")
	}
	now := time.Now()
	err := s.mutate(ctx, input.UserID, func(doc *types.UserActivity) {
		lessons := doc.LessonActivities.Data()
		idx := -1
		for i := range lessons {
			if lessons[i].LessonID == input.LessonID {
				idx = i
				break
			}
		}
		var entry types.LessonActivity
		if idx >= 0 {
			entry = lessons[idx]
		} else {
			entry = types.LessonActivity{
				LessonID:  input.LessonID,
				StartedAt: now,
			}
		}
		entry.CourseID = input.CourseID
		entry.Kind = input.Kind
		entry.TaskKind = input.TaskKind
		entry.TimeSpentSeconds += input.TimeSpentSeconds
		entry.Attempts++
		entry.Video = input.Video
		entry.Task = input.Task
		completedNow := input.IsCompleted && !entry.IsCompleted
		if input.IsCompleted {
			entry.IsCompleted = true
			if entry.CompletedAt == nil {
				t := now
				entry.CompletedAt = &t
			}
		}
		if idx >= 0 {
			lessons[idx] = entry
		} else {
			lessons = append(lessons, entry)
		}
		doc.LessonActivities = datatypes.NewJSONType(lessons)

		if input.CourseID != nil {
			s.touchCourse(doc, *input.CourseID, input.TimeSpentSeconds, false, now)
		}
		s.rollupDaily(doc, now, func(d *types.DailyLearning) {
			d.TotalStudyTime += input.TimeSpentSeconds
			if completedNow {
				d.LessonsCompleted++
			}
		})
	})
	if err != nil {
		return err
	}
	s.scheduleRecompute(ctx, input.UserID)
	return nil
}

func (s *activityService) TrackFlashcardSession(ctx context.Context, input TrackFlashcardSessionInput) error {
	if input.UserID == uuid.Nil || input.ContentID == uuid.Nil {
		return fmt.Errorf("missing user_id or content_id")
	}
	now := time.Now()
	err := s.mutate(ctx, input.UserID, func(doc *types.UserActivity) {
		sessions := append(doc.FlashcardSessions.Data(), types.FlashcardSession{
			ContentID:       input.ContentID,
			CardsStudied:    input.CardsStudied,
			CorrectAnswers:  input.CorrectAnswers,
			DurationSeconds: input.DurationSeconds,
			StudiedAt:       now,
		})
		doc.FlashcardSessions = datatypes.NewJSONType(sessions)
		s.rollupDaily(doc, now, func(d *types.DailyLearning) {
			d.TotalStudyTime += input.DurationSeconds
			d.CardsReviewed += input.CardsStudied
			if input.CardsStudied > 0 {
				d.CorrectRate = float64(input.CorrectAnswers) / float64(input.CardsStudied) * 100
			}
		})
	})
	if err != nil {
		return err
	}
	s.scheduleRecompute(ctx, input.UserID)
	return nil
}

func (s *activityService) TrackCardReview(ctx context.Context, input TrackCardReviewInput) error {
	if input.UserID == uuid.Nil || input.CardID == uuid.Nil {
		return fmt.Errorf("missing user_id or card_id")
	}
	now := time.Now()
	err := s.mutate(ctx, input.UserID, func(doc *types.UserActivity) {
		reviews := append(doc.CardReviews.Data(), types.CardReview{
			CardID:         input.CardID,
			FlashcardID:    input.FlashcardID,
			IsCorrect:      input.IsCorrect,
			ResponseTimeMs: input.ResponseTimeMs,
			MasteryLevel:   input.MasteryLevel,
			ReviewedAt:     now,
		})
		doc.CardReviews = datatypes.NewJSONType(reviews)
		s.rollupDaily(doc, now, func(d *types.DailyLearning) {
			if input.MasteryLevel == types.CardMasteryLearning {
				d.CardsLearned++
			}
		})
	})
	if err != nil {
		return err
	}
	s.scheduleRecompute(ctx, input.UserID)
	return nil
}

func (s *activityService) TrackCourse(ctx context.Context, input TrackCourseInput) error {
	if input.UserID == uuid.Nil || input.CourseID == uuid.Nil {
		return fmt.Errorf("missing user_id or course_id")
	}
	now := time.Now()
	err := s.mutate(ctx, input.UserID, func(doc *types.UserActivity) {
		s.touchCourse(doc, input.CourseID, input.TimeSpentSeconds, input.IsCompleted, now)
	})
	if err != nil {
		return err
	}
	s.scheduleRecompute(ctx, input.UserID)
	return nil
}

// mutate loads (or initializes) the user's document, applies fn, and saves.
func (s *activityService) mutate(ctx context.Context, userID uuid.UUID, fn func(doc *types.UserActivity)) error {
	doc, err := s.repo.GetByUserID(ctx, s.db, userID)
	if err != nil {
		return fmt.Errorf("load activity: %w", err)
	}
	if doc == nil {
		doc = &types.UserActivity{
			ID:     uuid.New(),
			UserID: userID,
		}
	}
	fn(doc)
	if _, err := s.repo.Upsert(ctx, s.db, doc); err != nil {
		return fmt.Errorf("save activity: %w", err)
	}
	return nil
}

// touchCourse updates the per-course entry in place, creating it on first
// contact.
func (s *activityService) touchCourse(doc *types.UserActivity, courseID uuid.UUID, timeSpent int, completed bool, now time.Time) {
	courses := doc.CourseActivities.Data()
	idx := -1
	for i := range courses {
		if courses[i].CourseID == courseID {
			idx = i
			break
		}
	}
	if idx < 0 {
		courses = append(courses, types.CourseActivity{
			CourseID:  courseID,
			StartedAt: now,
		})
		idx = len(courses) - 1
	}
	courses[idx].TotalTimeSpent += timeSpent
	courses[idx].LastAccessedAt = now
	if completed && !courses[idx].IsCompleted {
		courses[idx].IsCompleted = true
		t := now
		courses[idx].CompletedAt = &t
	}
	doc.CourseActivities = datatypes.NewJSONType(courses)
}

// rollupDaily applies fn to today's daily record, creating it (and carrying
// the streak forward) on the first write of the day. At most one record per
// normalized date.
func (s *activityService) rollupDaily(doc *types.UserActivity, now time.Time, fn func(d *types.DailyLearning)) {
	daily := doc.DailyLearning.Data()
	today := analytics.NormalizeDay(now, s.loc)
	idx := -1
	for i := range daily {
		if analytics.NormalizeDay(daily[i].Date, s.loc) == today {
			idx = i
			break
		}
	}
	if idx < 0 {
		streak := 1
		yesterday := today.AddDays(-1, s.loc)
		for i := range daily {
			if analytics.NormalizeDay(daily[i].Date, s.loc) == yesterday {
				streak = daily[i].StreakDays + 1
				break
			}
		}
		daily = append(daily, types.DailyLearning{
			Date:       analytics.DayStart(now, s.loc),
			StreakDays: streak,
		})
		idx = len(daily) - 1
	}
	fn(&daily[idx])
	doc.DailyLearning = datatypes.NewJSONType(daily)
}

func (s *activityService) scheduleRecompute(ctx context.Context, userID uuid.UUID) {
	if _, err := s.scheduler.ScheduleRecompute(ctx, userID); err != nil {
		// Never fail the tracking write over scheduling.
		s.log.Warn("Failed to schedule recompute", "user_id", userID, "error", err)
	}
}
