package progress

import (
	"context"
	"errors"
	"time"

	"github.com/example/lexibot/internal/database"
	"github.com/example/lexibot/internal/srs"
	"github.com/example/lexibot/pkg/models"
)

// ErrPersistenceConflict is returned when a review could not be committed
// within the retry budget because of concurrent updates to the same record
var ErrPersistenceConflict = errors.New("persistence conflict after retries")

// conflictRetries bounds the re-read-and-reapply loop on concurrent writes
const conflictRetries = 3

// Service wires the scheduler and the progress store together. It owns
// the fetch-or-create, apply, persist cycle for review outcomes.
type Service struct {
	store *database.ProgressRepository
	words *database.WordRepository
	sm2   *srs.SM2
}

// NewService creates a new progress service
func NewService(store *database.ProgressRepository, words *database.WordRepository, sm2 *srs.SM2) *Service {
	return &Service{store: store, words: words, sm2: sm2}
}

// RecordReview applies a review outcome for one word and persists the
// result. A missing record is created lazily; duplicate-key races on that
// first review, and stale-base races on later ones, are recovered by
// re-reading and reapplying rather than surfaced to the caller.
func (s *Service) RecordReview(ctx context.Context, userID, wordID int64, quality models.QualityScore, now time.Time) (*models.ProgressRecord, error) {
	for attempt := 0; attempt < conflictRetries; attempt++ {
		rec, err := s.store.GetByUserAndWord(ctx, userID, wordID)
		fresh := false
		if errors.Is(err, database.ErrNotFound) {
			initial := srs.NewRecord(userID, wordID, now)
			rec = &initial
			fresh = true
		} else if err != nil {
			return nil, err
		}

		next, err := s.sm2.ApplyReview(*rec, quality, now)
		if err != nil {
			return nil, err
		}

		if fresh {
			err = s.store.Create(ctx, &next)
		} else {
			err = s.store.Update(ctx, &next, rec.UpdatedAt)
		}
		if errors.Is(err, database.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &next, nil
	}
	return nil, ErrPersistenceConflict
}

// GetDueSummary returns the due count and the total of non-archived words
// for the user. Read-only; always reflects the latest committed state.
func (s *Service) GetDueSummary(ctx context.Context, userID int64, now time.Time) (*models.DueSummary, error) {
	dueCount, err := s.store.CountDue(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	totalWords, err := s.words.CountForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.DueSummary{DueCount: dueCount, TotalWords: totalWords}, nil
}

// ResetProgress restores a record to its initial new state, keeping its
// identity and creation time. The record becomes due immediately and is
// unarchived.
func (s *Service) ResetProgress(ctx context.Context, userID, wordID int64, now time.Time) (*models.ProgressRecord, error) {
	for attempt := 0; attempt < conflictRetries; attempt++ {
		rec, err := s.store.GetByUserAndWord(ctx, userID, wordID)
		if err != nil {
			return nil, err
		}
		fresh := s.sm2.Reset(*rec, now)
		err = s.store.Update(ctx, &fresh, rec.UpdatedAt)
		if errors.Is(err, database.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &fresh, nil
	}
	return nil, ErrPersistenceConflict
}

// Archive excludes a word from due queries until it is unarchived
func (s *Service) Archive(ctx context.Context, userID, wordID int64, now time.Time) error {
	return s.store.SetArchived(ctx, userID, wordID, true, now)
}

// Unarchive makes a word eligible for due queries again
func (s *Service) Unarchive(ctx context.Context, userID, wordID int64, now time.Time) error {
	return s.store.SetArchived(ctx, userID, wordID, false, now)
}
