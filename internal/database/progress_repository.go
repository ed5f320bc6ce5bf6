package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/example/lexibot/pkg/models"
)

// ProgressRepository handles database operations for progress records
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new repository instance
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

const progressColumns = `id, user_id, word_id, easiness_factor, interval_days,
	repetition_count, next_review_date, last_reviewed_at, total_reviews,
	correct_reviews, consecutive_correct, quality_scores, status,
	is_archived, created_at, updated_at`

// GetByUserAndWord returns progress for a specific user and word
func (r *ProgressRepository) GetByUserAndWord(ctx context.Context, userID, wordID int64) (*models.ProgressRecord, error) {
	query := r.db.Rebind(`SELECT ` + progressColumns + `
		FROM user_progress WHERE user_id = ? AND word_id = ?`)
	var rec models.ProgressRecord
	err := r.db.GetContext(ctx, &rec, query, userID, wordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}
	return &rec, nil
}

// Create inserts a new progress record. A concurrent first review of the
// same (user, word) surfaces as ErrConflict.
func (r *ProgressRepository) Create(ctx context.Context, rec *models.ProgressRecord) error {
	query := r.db.Rebind(`INSERT INTO user_progress (` + progressColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.WordID,
		rec.EasinessFactor,
		rec.IntervalDays,
		rec.RepetitionCount,
		rec.NextReviewDate,
		rec.LastReviewedAt,
		rec.TotalReviews,
		rec.CorrectReviews,
		rec.ConsecutiveCorrect,
		rec.QualityScores,
		rec.Status,
		rec.IsArchived,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create user progress: %w", err)
	}
	return nil
}

// Update persists rec, but only if the stored row still carries
// prevUpdatedAt. A stale base record surfaces as ErrConflict so the
// caller can re-read and retry instead of losing a concurrent update.
func (r *ProgressRepository) Update(ctx context.Context, rec *models.ProgressRecord, prevUpdatedAt time.Time) error {
	query := r.db.Rebind(`UPDATE user_progress SET
			easiness_factor = ?,
			interval_days = ?,
			repetition_count = ?,
			next_review_date = ?,
			last_reviewed_at = ?,
			total_reviews = ?,
			correct_reviews = ?,
			consecutive_correct = ?,
			quality_scores = ?,
			status = ?,
			is_archived = ?,
			updated_at = ?
		WHERE id = ? AND updated_at = ?`)
	result, err := r.db.ExecContext(ctx, query,
		rec.EasinessFactor,
		rec.IntervalDays,
		rec.RepetitionCount,
		rec.NextReviewDate,
		rec.LastReviewedAt,
		rec.TotalReviews,
		rec.CorrectReviews,
		rec.ConsecutiveCorrect,
		rec.QualityScores,
		rec.Status,
		rec.IsArchived,
		rec.UpdatedAt,
		rec.ID,
		prevUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user progress: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

// GetDueForUser returns non-archived records due at the given time,
// oldest-overdue first, capped at limit
func (r *ProgressRepository) GetDueForUser(ctx context.Context, userID int64, now time.Time, limit int) ([]models.ProgressRecord, error) {
	query := r.db.Rebind(`SELECT ` + progressColumns + `
		FROM user_progress
		WHERE user_id = ? AND next_review_date <= ? AND is_archived = false
		ORDER BY next_review_date ASC, word_id ASC
		LIMIT ?`)
	var records []models.ProgressRecord
	err := r.db.SelectContext(ctx, &records, query, userID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get due records: %w", err)
	}
	return records, nil
}

// CountDue returns how many non-archived records are due at the given time
func (r *ProgressRepository) CountDue(ctx context.Context, userID int64, now time.Time) (int, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM user_progress
		WHERE user_id = ? AND next_review_date <= ? AND is_archived = false`)
	var count int
	err := r.db.GetContext(ctx, &count, query, userID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to count due records: %w", err)
	}
	return count, nil
}

// GetAllForUser returns every progress record of a user, most recently
// reviewed first. Used by the report exporter.
func (r *ProgressRepository) GetAllForUser(ctx context.Context, userID int64) ([]models.ProgressRecord, error) {
	query := r.db.Rebind(`SELECT ` + progressColumns + `
		FROM user_progress WHERE user_id = ?
		ORDER BY next_review_date ASC`)
	var records []models.ProgressRecord
	err := r.db.SelectContext(ctx, &records, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress records: %w", err)
	}
	return records, nil
}

// SetArchived flips the archival flag for a (user, word) pair
func (r *ProgressRepository) SetArchived(ctx context.Context, userID, wordID int64, archived bool, now time.Time) error {
	query := r.db.Rebind(`UPDATE user_progress
		SET is_archived = ?, updated_at = ?
		WHERE user_id = ? AND word_id = ?`)
	result, err := r.db.ExecContext(ctx, query, archived, now, userID, wordID)
	if err != nil {
		return fmt.Errorf("failed to set archived flag: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a unique-key violation from
// either supported driver
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
