package analytics

import (
	"github.com/google/uuid"

	"github.com/veralingo/veralingo-backend/internal/types"
)

// difficultThreshold: a card with more than this many incorrect reviews
// across all history counts as difficult. Per-card failure tally, not
// per-session.
const difficultThreshold = 3

// cardFailTally tracks lifetime failures for one card.
type cardFailTally struct {
	flashcardID uuid.UUID
	count       int
}

// cardFailureCounts tallies incorrect reviews per card over all history.
func cardFailureCounts(reviews []types.CardReview) map[uuid.UUID]cardFailTally {
	out := map[uuid.UUID]cardFailTally{}
	for _, r := range reviews {
		t := out[r.CardID]
		t.flashcardID = r.FlashcardID
		if !r.IsCorrect {
			t.count++
		}
		out[r.CardID] = t
	}
	return out
}

// computeFlashcardMastery buckets each card by the mastery level of its most
// recent review. Review history is append-only, so "most recent" prefers the
// later timestamp and falls back to the later entry on ties.
func computeFlashcardMastery(reviews []types.CardReview, fails map[uuid.UUID]cardFailTally) types.FlashcardMastery {
	latest := map[uuid.UUID]types.CardReview{}
	for _, r := range reviews {
		prev, ok := latest[r.CardID]
		if !ok || !r.ReviewedAt.Before(prev.ReviewedAt) {
			latest[r.CardID] = r
		}
	}

	var mastery types.FlashcardMastery
	for _, r := range latest {
		switch r.MasteryLevel {
		case types.CardMasteryMastered:
			mastery.Mastered++
		case types.CardMasteryReviewing:
			mastery.Reviewing++
		default:
			mastery.Learning++
		}
	}
	for _, t := range fails {
		if t.count > difficultThreshold {
			mastery.Difficult++
		}
	}
	return mastery
}
