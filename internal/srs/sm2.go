package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/lexibot/pkg/models"
)

var (
	// ErrInvalidQuality reports a quality value outside the Hard..Easy domain.
	// This is a caller bug and is never retried.
	ErrInvalidQuality = errors.New("quality outside the valid domain")
	// ErrInvalidRecord reports an input record that violates a scheduler
	// precondition. It indicates upstream data corruption and is surfaced
	// rather than repaired.
	ErrInvalidRecord = errors.New("progress record violates scheduler precondition")
)

var (
	// StartingEasiness is the easiness factor assigned at record creation
	StartingEasiness = decimal.RequireFromString("2.50")
	// MinEasiness is the floor the easiness factor is clamped to
	MinEasiness = decimal.RequireFromString("1.30")
)

// SM2 implements an SM-2 family spaced repetition algorithm over
// progress records. All fields are tunable; New returns the defaults.
// ApplyReview is pure: it reads its arguments and returns a new record,
// so a single instance is safe to share between goroutines.
type SM2 struct {
	// Easiness adjustment applied on a Good outcome
	GoodDelta decimal.Decimal
	// Easiness adjustment applied on an Easy outcome
	EasyDelta decimal.Decimal
	// Easiness reduction applied on a lapse
	LapsePenalty decimal.Decimal
	// Interval after the first successful repetition, in days
	FirstInterval int
	// Interval after the second consecutive success, in days
	SecondInterval int
	// Interval at which a review item counts as graduated, in days
	GraduationInterval int
	// Maximum repetition interval in days
	MaxInterval int
	// How many raw quality scores are retained per record
	HistoryLimit int
}

// New creates an SM2 instance with default settings
func New() *SM2 {
	return &SM2{
		GoodDelta:          decimal.Zero,
		EasyDelta:          decimal.RequireFromString("0.15"),
		LapsePenalty:       decimal.RequireFromString("0.20"),
		FirstInterval:      1,
		SecondInterval:     6,
		GraduationInterval: 21,
		MaxInterval:        365,
		HistoryLimit:       20,
	}
}

// NewRecord returns the initial progress record for a (user, word) pair.
// Records are created lazily on the first review, so the record starts
// due immediately.
func NewRecord(userID, wordID int64, now time.Time) models.ProgressRecord {
	return models.ProgressRecord{
		ID:             uuid.New(),
		UserID:         userID,
		WordID:         wordID,
		EasinessFactor: StartingEasiness,
		IntervalDays:   1,
		NextReviewDate: now,
		Status:         models.StatusNew,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ApplyReview computes the record that results from reviewing rec with the
// given quality at the given time. The input record is not mutated.
func (s *SM2) ApplyReview(rec models.ProgressRecord, quality models.QualityScore, now time.Time) (models.ProgressRecord, error) {
	if !quality.Valid() {
		return models.ProgressRecord{}, fmt.Errorf("%w: %d", ErrInvalidQuality, quality)
	}
	if err := validate(rec); err != nil {
		return models.ProgressRecord{}, err
	}

	out := rec
	out.TotalReviews++
	if quality.Correct() {
		out.CorrectReviews++
	}
	out.QualityScores = appendBounded(rec.QualityScores, quality, s.HistoryLimit)

	if quality == models.QualityHard {
		// Lapse: reset the streak and bring the word back tomorrow
		out.RepetitionCount = 0
		out.ConsecutiveCorrect = 0
		out.IntervalDays = 1
		out.EasinessFactor = clampEasiness(rec.EasinessFactor.Sub(s.LapsePenalty))
	} else {
		out.RepetitionCount++
		out.ConsecutiveCorrect++

		delta := s.GoodDelta
		if quality == models.QualityEasy {
			delta = s.EasyDelta
		}
		out.EasinessFactor = clampEasiness(rec.EasinessFactor.Add(delta))
		out.IntervalDays = s.nextInterval(rec.IntervalDays, out.RepetitionCount, out.EasinessFactor)
	}

	out.NextReviewDate = now.AddDate(0, 0, out.IntervalDays)
	reviewedAt := now
	out.LastReviewedAt = &reviewedAt
	out.UpdatedAt = now
	out.Status = s.nextStatus(rec.Status, &out, quality)

	return out, nil
}

// Reset returns rec restored to its initial state, preserving identity
// and creation time. Used by the "reset progress" workflow.
func (s *SM2) Reset(rec models.ProgressRecord, now time.Time) models.ProgressRecord {
	fresh := NewRecord(rec.UserID, rec.WordID, now)
	fresh.ID = rec.ID
	fresh.CreatedAt = rec.CreatedAt
	return fresh
}

// nextInterval applies the classic SM-2 growth rule: fixed steps for the
// first two repetitions, then multiplicative growth by the easiness factor.
func (s *SM2) nextInterval(prevInterval, repetitions int, easiness decimal.Decimal) int {
	var next int
	switch {
	case repetitions <= 1:
		next = s.FirstInterval
	case repetitions == 2:
		next = s.SecondInterval
	default:
		next = int(decimal.NewFromInt(int64(prevInterval)).Mul(easiness).Round(0).IntPart())
	}
	if next < 1 {
		next = 1
	}
	if next > s.MaxInterval {
		next = s.MaxInterval
	}
	return next
}

// nextStatus evaluates the status machine using the already-updated
// counters of out.
func (s *SM2) nextStatus(prev models.Status, out *models.ProgressRecord, quality models.QualityScore) models.Status {
	// The very first outcome moves a new word into learning regardless
	// of quality
	if prev == models.StatusNew {
		if out.RepetitionCount >= 2 {
			return models.StatusReview
		}
		return models.StatusLearning
	}
	if quality == models.QualityHard {
		return models.StatusLapsed
	}

	st := prev
	if st == models.StatusLapsed {
		st = models.StatusLearning
	}
	if st == models.StatusLearning && out.RepetitionCount >= 2 {
		st = models.StatusReview
	}
	if st == models.StatusReview && out.IntervalDays >= s.GraduationInterval {
		st = models.StatusGraduated
	}
	return st
}

// validate checks the preconditions ApplyReview relies on
func validate(rec models.ProgressRecord) error {
	switch {
	case rec.CorrectReviews > rec.TotalReviews:
		return fmt.Errorf("%w: correct reviews %d exceed total %d", ErrInvalidRecord, rec.CorrectReviews, rec.TotalReviews)
	case rec.TotalReviews < 0 || rec.CorrectReviews < 0:
		return fmt.Errorf("%w: negative review counters", ErrInvalidRecord)
	case rec.RepetitionCount < 0 || rec.ConsecutiveCorrect < 0:
		return fmt.Errorf("%w: negative repetition counters", ErrInvalidRecord)
	case rec.IntervalDays < 0:
		return fmt.Errorf("%w: negative interval", ErrInvalidRecord)
	case rec.EasinessFactor.LessThan(MinEasiness):
		return fmt.Errorf("%w: easiness factor %s below floor", ErrInvalidRecord, rec.EasinessFactor)
	case !rec.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, rec.Status)
	}
	return nil
}

func clampEasiness(ef decimal.Decimal) decimal.Decimal {
	ef = ef.Round(2)
	if ef.LessThan(MinEasiness) {
		return MinEasiness
	}
	return ef
}

func appendBounded(history models.QualityHistory, quality models.QualityScore, limit int) models.QualityHistory {
	out := make(models.QualityHistory, 0, len(history)+1)
	out = append(out, history...)
	out = append(out, quality)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
