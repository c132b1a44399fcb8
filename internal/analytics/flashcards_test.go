package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/veralingo/veralingo-backend/internal/types"
)

func TestCardFailureCounts(t *testing.T) {
	cardA, cardB := uuid.New(), uuid.New()
	deck := uuid.New()
	now := time.Now()

	reviews := []types.CardReview{
		{CardID: cardA, FlashcardID: deck, IsCorrect: false, ReviewedAt: now},
		{CardID: cardA, FlashcardID: deck, IsCorrect: false, ReviewedAt: now.Add(time.Minute)},
		{CardID: cardA, FlashcardID: deck, IsCorrect: true, ReviewedAt: now.Add(2 * time.Minute)},
		{CardID: cardB, FlashcardID: deck, IsCorrect: true, ReviewedAt: now},
	}
	fails := cardFailureCounts(reviews)

	require.Equal(t, 2, fails[cardA].count)
	require.Equal(t, deck, fails[cardA].flashcardID)
	require.Zero(t, fails[cardB].count)
}

func TestComputeFlashcardMasteryUsesLatestReview(t *testing.T) {
	card := uuid.New()
	deck := uuid.New()
	now := time.Now()

	// Learning first, mastered later: only the latest state counts.
	reviews := []types.CardReview{
		{CardID: card, FlashcardID: deck, MasteryLevel: types.CardMasteryLearning, ReviewedAt: now},
		{CardID: card, FlashcardID: deck, MasteryLevel: types.CardMasteryMastered, ReviewedAt: now.Add(time.Hour), IsCorrect: true},
	}
	mastery := computeFlashcardMastery(reviews, cardFailureCounts(reviews))

	require.Equal(t, 1, mastery.Mastered)
	require.Zero(t, mastery.Learning)
	require.Zero(t, mastery.Reviewing)
}

func TestComputeFlashcardMasteryDifficultThreshold(t *testing.T) {
	deck := uuid.New()
	now := time.Now()

	mkReviews := func(card uuid.UUID, failures int) []types.CardReview {
		out := make([]types.CardReview, 0, failures)
		for i := 0; i < failures; i++ {
			out = append(out, types.CardReview{
				CardID:       card,
				FlashcardID:  deck,
				IsCorrect:    false,
				MasteryLevel: types.CardMasteryLearning,
				ReviewedAt:   now.Add(time.Duration(i) * time.Minute),
			})
		}
		return out
	}

	// Exactly three failures is not difficult; four is.
	borderline := mkReviews(uuid.New(), 3)
	difficult := mkReviews(uuid.New(), 4)
	all := append(borderline, difficult...)

	mastery := computeFlashcardMastery(all, cardFailureCounts(all))
	require.Equal(t, 1, mastery.Difficult)
	require.Equal(t, 2, mastery.Learning)
}
