package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status describes where a word sits in the learning pipeline
type Status string

const (
	// StatusNew means the word has never been reviewed
	StatusNew Status = "new"
	// StatusLearning means the word is in its first repetitions
	StatusLearning Status = "learning"
	// StatusReview means the word survived two consecutive repetitions
	StatusReview Status = "review"
	// StatusGraduated means the interval has grown past the maturity threshold
	StatusGraduated Status = "graduated"
	// StatusLapsed means the last outcome was a failed recall
	StatusLapsed Status = "lapsed"
)

// Valid reports whether s is one of the five known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusLearning, StatusReview, StatusGraduated, StatusLapsed:
		return true
	}
	return false
}

// QualityScore is the discrete outcome of a single review as exposed
// by the review keyboard
type QualityScore int

const (
	// QualityHard means the word was not recalled
	QualityHard QualityScore = 1
	// QualityGood means the word was recalled with some effort
	QualityGood QualityScore = 2
	// QualityEasy means the word was recalled instantly
	QualityEasy QualityScore = 3
)

// Valid reports whether q is inside the closed quality domain
func (q QualityScore) Valid() bool {
	return q >= QualityHard && q <= QualityEasy
}

// Correct reports whether q counts as a successful recall
func (q QualityScore) Correct() bool {
	return q >= QualityGood
}

// QualityHistory is the bounded append-only history of raw review outcomes,
// stored as a JSON array
type QualityHistory []QualityScore

// Value implements driver.Valuer
func (h QualityHistory) Value() (driver.Value, error) {
	if h == nil {
		h = QualityHistory{}
	}
	return json.Marshal(h)
}

// Scan implements sql.Scanner
func (h *QualityHistory) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*h = nil
		return nil
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	}
	return fmt.Errorf("unsupported quality history type %T", src)
}

// ProgressRecord tracks a user's progress with a specific word.
// One record exists per (user_id, word_id) pair; it is created lazily on
// the first review and mutated only by the scheduler.
type ProgressRecord struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	UserID             int64           `json:"user_id" db:"user_id"`
	WordID             int64           `json:"word_id" db:"word_id"`
	EasinessFactor     decimal.Decimal `json:"easiness_factor" db:"easiness_factor"`     // SM-2 EF parameter, never below 1.30
	IntervalDays       int             `json:"interval_days" db:"interval_days"`         // Days until the next scheduled review
	RepetitionCount    int             `json:"repetition_count" db:"repetition_count"`   // Consecutive non-lapsing repetitions
	NextReviewDate     time.Time       `json:"next_review_date" db:"next_review_date"`
	LastReviewedAt     *time.Time      `json:"last_reviewed_at" db:"last_reviewed_at"` // Nil before the first review
	TotalReviews       int             `json:"total_reviews" db:"total_reviews"`
	CorrectReviews     int             `json:"correct_reviews" db:"correct_reviews"`
	ConsecutiveCorrect int             `json:"consecutive_correct" db:"consecutive_correct"`
	QualityScores      QualityHistory  `json:"quality_scores" db:"quality_scores"`
	Status             Status          `json:"status" db:"status"`
	IsArchived         bool            `json:"is_archived" db:"is_archived"` // Archived records are never due
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// DueSummary is the payload behind the due-count widget
type DueSummary struct {
	DueCount   int `json:"due_count"`
	TotalWords int `json:"total_words"`
}
