package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/lexibot/internal/database"
	"github.com/example/lexibot/pkg/models"
)

// Mode selects how a review session batch is assembled
type Mode string

const (
	// ModeDueReview picks words whose next review date has passed,
	// oldest-overdue first
	ModeDueReview Mode = "due-review"
	// ModeLatest picks the most recently added words, newest first
	ModeLatest Mode = "latest"
	// ModeRandom picks a uniformly sampled subset in shuffled order
	ModeRandom Mode = "random"
)

// ErrUnknownMode reports a selection mode outside the known set
var ErrUnknownMode = errors.New("unknown session mode")

// Planner builds ordered word batches for review sessions. Every call
// re-queries current state; a batch is a snapshot, not a cursor.
type Planner struct {
	progress *database.ProgressRepository
	words    *database.WordRepository
}

// NewPlanner creates a new session planner
func NewPlanner(progress *database.ProgressRepository, words *database.WordRepository) *Planner {
	return &Planner{progress: progress, words: words}
}

// SelectWords returns at most limit words for a session in the order the
// mode prescribes. Fewer (or zero) qualifying words is not an error.
func (p *Planner) SelectWords(ctx context.Context, userID int64, mode Mode, limit int, now time.Time) ([]models.Word, error) {
	if limit <= 0 {
		return nil, nil
	}
	switch mode {
	case ModeDueReview:
		return p.selectDue(ctx, userID, limit, now)
	case ModeLatest:
		return p.words.GetLatestForUser(ctx, userID, limit)
	case ModeRandom:
		return p.words.GetRandomForUser(ctx, userID, limit)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// selectDue resolves due progress records to catalog words, preserving
// the oldest-overdue-first order of the due query
func (p *Planner) selectDue(ctx context.Context, userID int64, limit int, now time.Time) ([]models.Word, error) {
	due, err := p.progress.GetDueForUser(ctx, userID, now, limit)
	if err != nil {
		return nil, err
	}
	if len(due) == 0 {
		return []models.Word{}, nil
	}

	ids := make([]int64, len(due))
	for i, rec := range due {
		ids[i] = rec.WordID
	}
	words, err := p.words.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]models.Word, len(words))
	for _, w := range words {
		byID[w.ID] = w
	}
	ordered := make([]models.Word, 0, len(due))
	for _, rec := range due {
		if w, ok := byID[rec.WordID]; ok {
			ordered = append(ordered, w)
		}
	}
	return ordered, nil
}
