package srs

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lexibot/pkg/models"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFirstReviewGood(t *testing.T) {
	s := New()
	rec := NewRecord(1, 10, testNow)

	out, err := s.ApplyReview(rec, models.QualityGood, testNow)
	require.NoError(t, err)

	assert.Equal(t, models.StatusLearning, out.Status)
	assert.Equal(t, 1, out.RepetitionCount)
	assert.Equal(t, 1, out.IntervalDays)
	assert.Equal(t, 1, out.TotalReviews)
	assert.Equal(t, 1, out.CorrectReviews)
	assert.Equal(t, 1, out.ConsecutiveCorrect)
	assert.True(t, out.EasinessFactor.Equal(StartingEasiness), "Good leaves easiness flat")
	require.NotNil(t, out.LastReviewedAt)
	assert.True(t, out.LastReviewedAt.Equal(testNow))
	assert.True(t, out.NextReviewDate.Equal(testNow.AddDate(0, 0, 1)))
}

func TestFirstReviewHardEntersLearning(t *testing.T) {
	s := New()
	rec := NewRecord(1, 10, testNow)

	out, err := s.ApplyReview(rec, models.QualityHard, testNow)
	require.NoError(t, err)

	// The first outcome of any quality moves a new word into learning
	assert.Equal(t, models.StatusLearning, out.Status)
	assert.Equal(t, 0, out.RepetitionCount)
	assert.Equal(t, 1, out.IntervalDays)
	assert.Equal(t, 1, out.TotalReviews)
	assert.Equal(t, 0, out.CorrectReviews)
	assert.True(t, out.EasinessFactor.Equal(dec("2.30")))
}

func TestSecondSuccessPromotesToReview(t *testing.T) {
	s := New()
	rec := NewRecord(1, 10, testNow)
	rec.RepetitionCount = 1
	rec.ConsecutiveCorrect = 1
	rec.TotalReviews = 1
	rec.CorrectReviews = 1
	rec.Status = models.StatusLearning

	out, err := s.ApplyReview(rec, models.QualityGood, testNow)
	require.NoError(t, err)

	assert.Equal(t, 2, out.RepetitionCount)
	assert.Equal(t, 6, out.IntervalDays)
	assert.Equal(t, models.StatusReview, out.Status)
}

func TestIntervalGrowthLaw(t *testing.T) {
	s := New()
	rec := NewRecord(1, 10, testNow)
	rec.RepetitionCount = 2
	rec.ConsecutiveCorrect = 2
	rec.TotalReviews = 2
	rec.CorrectReviews = 2
	rec.IntervalDays = 10
	rec.EasinessFactor = dec("2.50")
	rec.Status = models.StatusReview

	out, err := s.ApplyReview(rec, models.QualityGood, testNow)
	require.NoError(t, err)

	// round(10 * 2.50) with the Good delta applied first
	assert.Equal(t, 25, out.IntervalDays)
	assert.True(t, out.NextReviewDate.Equal(testNow.AddDate(0, 0, 25)))
}

func TestEasyGraduatesMatureItem(t *testing.T) {
	s := New()
	rec := NewRecord(1, 10, testNow)
	rec.RepetitionCount = 5
	rec.ConsecutiveCorrect = 5
	rec.TotalReviews = 5
	rec.CorrectReviews = 5
	rec.IntervalDays = 21
	rec.Status = models.StatusReview

	out, err := s.ApplyReview(rec, models.QualityEasy, testNow)
	require.NoError(t, err)

	assert.Equal(t, models.StatusGraduated, out.Status)
	assert.True(t, out.EasinessFactor.Equal(dec("2.65")), "Easy raises easiness")
	assert.GreaterOrEqual(t, out.IntervalDays, s.GraduationInterval)
}

func TestLapseResetsStreak(t *testing.T) {
	s := New()
	rec := NewRecord(1, 10, testNow)
	rec.RepetitionCount = 8
	rec.ConsecutiveCorrect = 8
	rec.TotalReviews = 12
	rec.CorrectReviews = 10
	rec.IntervalDays = 40
	rec.Status = models.StatusGraduated

	out, err := s.ApplyReview(rec, models.QualityHard, testNow)
	require.NoError(t, err)

	assert.Equal(t, 0, out.RepetitionCount)
	assert.Equal(t, 0, out.ConsecutiveCorrect)
	assert.Equal(t, 1, out.IntervalDays)
	assert.Equal(t, models.StatusLapsed, out.Status)
	assert.Equal(t, 13, out.TotalReviews)
	assert.Equal(t, 10, out.CorrectReviews, "a lapse never counts as correct")
	assert.True(t, out.NextReviewDate.Equal(testNow.AddDate(0, 0, 1)))
}

func TestLapsedReentersLearningOnSuccess(t *testing.T) {
	s := New()
	rec := NewRecord(1, 10, testNow)
	rec.TotalReviews = 10
	rec.CorrectReviews = 4
	rec.Status = models.StatusLapsed

	out, err := s.ApplyReview(rec, models.QualityGood, testNow)
	require.NoError(t, err)

	assert.Equal(t, models.StatusLearning, out.Status)
	// Historical counters survive the lapse path
	assert.Equal(t, 11, out.TotalReviews)
	assert.Equal(t, 5, out.CorrectReviews)
	assert.Equal(t, 1, out.RepetitionCount)
}

func TestGraduatedPersistsAcrossSuccesses(t *testing.T) {
	s := New()
	rec := NewRecord(1, 10, testNow)
	rec.RepetitionCount = 9
	rec.ConsecutiveCorrect = 9
	rec.TotalReviews = 9
	rec.CorrectReviews = 9
	rec.IntervalDays = 60
	rec.Status = models.StatusGraduated

	out, err := s.ApplyReview(rec, models.QualityGood, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.StatusGraduated, out.Status)
}

func TestEasinessFloor(t *testing.T) {
	s := New()
	rec := NewRecord(1, 10, testNow)

	// Fail repeatedly; easiness must never drop below the floor and the
	// interval must never drop below a day
	for i := 0; i < 10; i++ {
		out, err := s.ApplyReview(rec, models.QualityHard, testNow)
		require.NoError(t, err)
		assert.True(t, out.EasinessFactor.GreaterThanOrEqual(MinEasiness),
			"easiness %s below floor after %d lapses", out.EasinessFactor, i+1)
		assert.GreaterOrEqual(t, out.IntervalDays, 1)
		rec = out
	}
	assert.True(t, rec.EasinessFactor.Equal(MinEasiness))
}

func TestMaxIntervalCap(t *testing.T) {
	s := New()
	rec := NewRecord(1, 10, testNow)
	rec.RepetitionCount = 6
	rec.ConsecutiveCorrect = 6
	rec.TotalReviews = 6
	rec.CorrectReviews = 6
	rec.IntervalDays = 300
	rec.Status = models.StatusGraduated

	out, err := s.ApplyReview(rec, models.QualityEasy, testNow)
	require.NoError(t, err)
	assert.Equal(t, s.MaxInterval, out.IntervalDays)
}

func TestCountersAreMonotonic(t *testing.T) {
	s := New()
	rec := NewRecord(1, 10, testNow)

	qualities := []models.QualityScore{
		models.QualityGood, models.QualityEasy, models.QualityHard,
		models.QualityGood, models.QualityHard, models.QualityEasy,
	}
	for i, q := range qualities {
		out, err := s.ApplyReview(rec, q, testNow.AddDate(0, 0, i))
		require.NoError(t, err)
		assert.Equal(t, rec.TotalReviews+1, out.TotalReviews)
		assert.GreaterOrEqual(t, out.CorrectReviews, rec.CorrectReviews)
		assert.LessOrEqual(t, out.CorrectReviews, out.TotalReviews)
		rec = out
	}
	assert.Equal(t, len(qualities), rec.TotalReviews)
	assert.Equal(t, 4, rec.CorrectReviews)
}

func TestQualityHistoryIsBounded(t *testing.T) {
	s := New()
	rec := NewRecord(1, 10, testNow)

	for i := 0; i < s.HistoryLimit+5; i++ {
		out, err := s.ApplyReview(rec, models.QualityGood, testNow)
		require.NoError(t, err)
		rec = out
	}
	assert.Len(t, rec.QualityScores, s.HistoryLimit)

	out, err := s.ApplyReview(rec, models.QualityHard, testNow)
	require.NoError(t, err)
	assert.Len(t, out.QualityScores, s.HistoryLimit)
	assert.Equal(t, models.QualityHard, out.QualityScores[len(out.QualityScores)-1],
		"newest score is kept, oldest trimmed")
}

func TestApplyReviewDoesNotMutateInput(t *testing.T) {
	s := New()
	rec := NewRecord(1, 10, testNow)
	rec.QualityScores = models.QualityHistory{models.QualityGood}
	rec.TotalReviews = 1
	rec.CorrectReviews = 1
	rec.RepetitionCount = 1
	rec.Status = models.StatusLearning
	before := rec

	_, err := s.ApplyReview(rec, models.QualityEasy, testNow)
	require.NoError(t, err)

	assert.Equal(t, before.TotalReviews, rec.TotalReviews)
	assert.Equal(t, before.Status, rec.Status)
	assert.Len(t, rec.QualityScores, 1)
	assert.True(t, before.EasinessFactor.Equal(rec.EasinessFactor))
}

func TestInvalidQuality(t *testing.T) {
	s := New()
	rec := NewRecord(1, 10, testNow)

	for _, q := range []models.QualityScore{0, 4, -1, 100} {
		_, err := s.ApplyReview(rec, q, testNow)
		assert.ErrorIs(t, err, ErrInvalidQuality, "quality %d", q)
	}
}

func TestInvalidRecord(t *testing.T) {
	s := New()

	corrupt := NewRecord(1, 10, testNow)
	corrupt.TotalReviews = 2
	corrupt.CorrectReviews = 3
	_, err := s.ApplyReview(corrupt, models.QualityGood, testNow)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	lowEF := NewRecord(1, 10, testNow)
	lowEF.EasinessFactor = dec("1.10")
	_, err = s.ApplyReview(lowEF, models.QualityGood, testNow)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	badStatus := NewRecord(1, 10, testNow)
	badStatus.Status = "mastered"
	_, err = s.ApplyReview(badStatus, models.QualityGood, testNow)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	negative := NewRecord(1, 10, testNow)
	negative.RepetitionCount = -1
	_, err = s.ApplyReview(negative, models.QualityGood, testNow)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestReset(t *testing.T) {
	s := New()
	rec := NewRecord(7, 42, testNow)
	rec.RepetitionCount = 5
	rec.TotalReviews = 20
	rec.CorrectReviews = 15
	rec.IntervalDays = 30
	rec.EasinessFactor = dec("1.80")
	rec.Status = models.StatusGraduated
	rec.IsArchived = true
	rec.QualityScores = models.QualityHistory{models.QualityGood, models.QualityEasy}

	later := testNow.AddDate(0, 1, 0)
	fresh := s.Reset(rec, later)

	assert.Equal(t, rec.ID, fresh.ID)
	assert.Equal(t, rec.UserID, fresh.UserID)
	assert.Equal(t, rec.WordID, fresh.WordID)
	assert.True(t, fresh.CreatedAt.Equal(rec.CreatedAt))
	assert.Equal(t, models.StatusNew, fresh.Status)
	assert.True(t, fresh.EasinessFactor.Equal(StartingEasiness))
	assert.Equal(t, 0, fresh.TotalReviews)
	assert.Equal(t, 0, fresh.RepetitionCount)
	assert.False(t, fresh.IsArchived)
	assert.Empty(t, fresh.QualityScores)
	assert.True(t, fresh.NextReviewDate.Equal(later), "reset word is due immediately")
}
