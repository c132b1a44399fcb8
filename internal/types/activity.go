package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type LessonKind string

const (
	LessonKindVideo LessonKind = "video"
	LessonKindTask  LessonKind = "task"
)

type TaskKind string

const (
	TaskKindListening      TaskKind = "listening"
	TaskKindSpeaking       TaskKind = "speaking"
	TaskKindFillInBlank    TaskKind = "fill_in_blank"
	TaskKindMultipleChoice TaskKind = "multiple_choice"
	TaskKindMatching       TaskKind = "matching"
)

type CardMasteryLevel string

const (
	CardMasteryLearning  CardMasteryLevel = "learning"
	CardMasteryReviewing CardMasteryLevel = "reviewing"
	CardMasteryMastered  CardMasteryLevel = "mastered"
)

type VideoStats struct {
	WatchedSeconds int     `json:"watched_seconds"`
	TotalSeconds   int     `json:"total_seconds"`
	CompletionPct  float64 `json:"completion_pct"`
}

type TaskStats struct {
	Score          float64 `json:"score"`
	CorrectAnswers int     `json:"correct_answers"`
	TotalQuestions int     `json:"total_questions"`
}

// LessonActivity is keyed logically by LessonID: at most one entry per
// lesson, updates overwrite in place.
type LessonActivity struct {
	LessonID         uuid.UUID   `json:"lesson_id"`
	CourseID         *uuid.UUID  `json:"course_id,omitempty"`
	Kind             LessonKind  `json:"kind"`
	TaskKind         TaskKind    `json:"task_kind,omitempty"`
	StartedAt        time.Time   `json:"started_at"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
	TimeSpentSeconds int         `json:"time_spent_seconds"`
	IsCompleted      bool        `json:"is_completed"`
	Attempts         int         `json:"attempts"`
	Video            *VideoStats `json:"video,omitempty"`
	Task             *TaskStats  `json:"task,omitempty"`
}

type FlashcardSession struct {
	ContentID       uuid.UUID `json:"content_id"`
	CardsStudied    int       `json:"cards_studied"`
	CorrectAnswers  int       `json:"correct_answers"`
	DurationSeconds int       `json:"duration_seconds"`
	StudiedAt       time.Time `json:"studied_at"`
}

// CardReview entries are review history: multiple entries per card are
// expected and never deduplicated.
type CardReview struct {
	CardID         uuid.UUID        `json:"card_id"`
	FlashcardID    uuid.UUID        `json:"flashcard_id"`
	IsCorrect      bool             `json:"is_correct"`
	ResponseTimeMs int              `json:"response_time_ms"`
	MasteryLevel   CardMasteryLevel `json:"mastery_level"`
	ReviewedAt     time.Time        `json:"reviewed_at"`
}

type CourseActivity struct {
	CourseID       uuid.UUID  `json:"course_id"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	TotalTimeSpent int        `json:"total_time_spent"`
	IsCompleted    bool       `json:"is_completed"`
	LastAccessedAt time.Time  `json:"last_accessed_at"`
}

// DailyLearning holds at most one record per midnight-truncated date.
type DailyLearning struct {
	Date             time.Time `json:"date"`
	TotalStudyTime   int       `json:"total_study_time"`
	LessonsCompleted int       `json:"lessons_completed"`
	CardsReviewed    int       `json:"cards_reviewed"`
	CardsLearned     int       `json:"cards_learned"`
	CorrectRate      float64   `json:"correct_rate"`
	StreakDays       int       `json:"streak_days"`
}

// UserActivity is the per-user activity document. External tracking writes
// append into the jsonb logs; the analytics engine only ever reads it.
type UserActivity struct {
	ID                uuid.UUID                              `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            uuid.UUID                              `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	LessonActivities  datatypes.JSONType[[]LessonActivity]   `gorm:"type:jsonb;column:lesson_activities" json:"lesson_activities"`
	FlashcardSessions datatypes.JSONType[[]FlashcardSession] `gorm:"type:jsonb;column:flashcard_sessions" json:"flashcard_sessions"`
	CardReviews       datatypes.JSONType[[]CardReview]       `gorm:"type:jsonb;column:card_reviews" json:"card_reviews"`
	CourseActivities  datatypes.JSONType[[]CourseActivity]   `gorm:"type:jsonb;column:course_activities" json:"course_activities"`
	DailyLearning     datatypes.JSONType[[]DailyLearning]    `gorm:"type:jsonb;column:daily_learning" json:"daily_learning"`
	CreatedAt         time.Time                              `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time                              `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserActivity) TableName() string { return "user_activity" }
