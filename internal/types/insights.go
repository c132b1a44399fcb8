package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type OverallLevel string

const (
	LevelBeginner     OverallLevel = "beginner"
	LevelIntermediate OverallLevel = "intermediate"
	LevelAdvanced     OverallLevel = "advanced"
)

type Skill string

const (
	SkillListening Skill = "listening"
	SkillSpeaking  Skill = "speaking"
	SkillReading   Skill = "reading"
	SkillWriting   Skill = "writing"
)

// AllSkills is the fixed skill set; insights always carry all four.
var AllSkills = []Skill{SkillListening, SkillSpeaking, SkillReading, SkillWriting}

type Performance struct {
	OverallLevel      OverallLevel `json:"overall_level"`
	WeeklyProgressPct float64      `json:"weekly_progress_pct"`
	ConsistencyPct    float64      `json:"consistency_pct"`
	RetentionPct      float64      `json:"retention_pct"`
}

type SkillMastery struct {
	Level          int        `json:"level"`
	TasksCompleted int        `json:"tasks_completed"`
	AverageScore   float64    `json:"average_score"`
	LastPracticed  *time.Time `json:"last_practiced,omitempty"`
}

type CourseProgress struct {
	CourseID         uuid.UUID  `json:"course_id"`
	TrackedLessons   int        `json:"tracked_lessons"`
	CompletedLessons int        `json:"completed_lessons"`
	ProgressPct      float64    `json:"progress_pct"`
	IsCompleted      bool       `json:"is_completed"`
	Struggling       bool       `json:"struggling"`
	StuckLessonID    *uuid.UUID `json:"stuck_lesson_id,omitempty"`
}

type LessonMastery struct {
	Completed       int     `json:"completed"`
	InProgress      int     `json:"in_progress"`
	AverageScore    float64 `json:"average_score"`
	AverageAttempts float64 `json:"average_attempts"`
}

type FlashcardMastery struct {
	Learning  int `json:"learning"`
	Reviewing int `json:"reviewing"`
	Mastered  int `json:"mastered"`
	Difficult int `json:"difficult"`
}

type Analysis struct {
	CourseProgress   []CourseProgress       `json:"course_progress"`
	LessonMastery    LessonMastery          `json:"lesson_mastery"`
	FlashcardMastery FlashcardMastery       `json:"flashcard_mastery"`
	SkillMastery     map[Skill]SkillMastery `json:"skill_mastery"`
}

type StudyPatterns struct {
	BestTimeOfDay        string  `json:"best_time_of_day"`
	AvgSessionMinutes    float64 `json:"avg_session_minutes"`
	WeeklyFrequency      int     `json:"weekly_frequency"`
	CurrentStreak        int     `json:"current_streak"`
	LongestStreak        int     `json:"longest_streak"`
	PreferredContentKind string  `json:"preferred_content_kind"`
}

type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)

type RecommendedLesson struct {
	LessonID uuid.UUID              `json:"lesson_id"`
	CourseID *uuid.UUID             `json:"course_id,omitempty"`
	Reason   string                 `json:"reason"`
	Priority RecommendationPriority `json:"priority"`
}

type ReviewCard struct {
	CardID       uuid.UUID `json:"card_id"`
	FlashcardID  uuid.UUID `json:"flashcard_id"`
	FailureCount int       `json:"failure_count"`
	Urgency      int       `json:"urgency"`
}

type StudyPlan struct {
	DailyMinutes  int `json:"daily_minutes"`
	NewContentPct int `json:"new_content_pct"`
	ReviewPct     int `json:"review_pct"`
	PracticePct   int `json:"practice_pct"`
}

type Recommendations struct {
	NextLessons []RecommendedLesson `json:"next_lessons"`
	ReviewCards []ReviewCard        `json:"review_cards"`
	StudyPlan   StudyPlan           `json:"study_plan"`
}

type CourseCompletionEstimate struct {
	CourseID            uuid.UUID `json:"course_id"`
	RemainingLessons    int       `json:"remaining_lessons"`
	EstimatedCompletion time.Time `json:"estimated_completion"`
	ConfidencePct       float64   `json:"confidence_pct"`
}

type SkillProjection struct {
	CurrentLevel   int     `json:"current_level"`
	ProjectedLevel int     `json:"projected_level"`
	WeeklyRatePct  float64 `json:"weekly_rate_pct"`
	DaysToNextTier int     `json:"days_to_next_tier"`
}

type Predictions struct {
	CourseCompletion []CourseCompletionEstimate `json:"course_completion"`
	SkillProjection  map[Skill]SkillProjection  `json:"skill_projection"`
}

// Insights is the computed portion of the per-user summary, produced in one
// shot by the analytics engine. Metadata and AI advice live on UserInsights.
type Insights struct {
	Performance     Performance     `json:"performance"`
	Analysis        Analysis        `json:"analysis"`
	StudyPatterns   StudyPatterns   `json:"study_patterns"`
	Recommendations Recommendations `json:"recommendations"`
	Predictions     Predictions     `json:"predictions"`
}

// UserInsights is the per-user insights document. The recompute worker
// replaces the computed columns wholesale; the advice worker only ever
// touches the advice_* columns so the two writers cannot clobber each other.
type UserInsights struct {
	ID                uuid.UUID                           `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            uuid.UUID                           `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Performance       datatypes.JSONType[Performance]     `gorm:"type:jsonb;column:performance" json:"performance"`
	Analysis          datatypes.JSONType[Analysis]        `gorm:"type:jsonb;column:analysis" json:"analysis"`
	StudyPatterns     datatypes.JSONType[StudyPatterns]   `gorm:"type:jsonb;column:study_patterns" json:"study_patterns"`
	Recommendations   datatypes.JSONType[Recommendations] `gorm:"type:jsonb;column:recommendations" json:"recommendations"`
	Predictions       datatypes.JSONType[Predictions]     `gorm:"type:jsonb;column:predictions" json:"predictions"`
	AdviceMessage     *string                             `gorm:"column:advice_message" json:"advice_message,omitempty"`
	AdviceTone        *string                             `gorm:"column:advice_tone" json:"advice_tone,omitempty"`
	AdviceGeneratedAt *time.Time                          `gorm:"column:advice_generated_at" json:"advice_generated_at,omitempty"`
	ConfidencePct     int                                 `gorm:"column:confidence_pct;not null;default:0" json:"confidence_pct"`
	DataPointCount    int                                 `gorm:"column:data_point_count;not null;default:0" json:"data_point_count"`
	LastUpdated       time.Time                           `gorm:"column:last_updated;not null" json:"last_updated"`
	LastSyncedAt      *time.Time                          `gorm:"column:last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt         time.Time                           `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time                           `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserInsights) TableName() string { return "user_insights" }
