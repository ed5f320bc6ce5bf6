package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/lexibot/pkg/models"
)

// WordRepository handles read access to the vocabulary catalog
type WordRepository struct {
	db *sqlx.DB
}

// NewWordRepository creates a new repository instance
func NewWordRepository(db *sqlx.DB) *WordRepository {
	return &WordRepository{db: db}
}

// GetByID returns a word by ID
func (r *WordRepository) GetByID(ctx context.Context, id int64) (*models.Word, error) {
	query := r.db.Rebind("SELECT * FROM words WHERE id = ?")
	var word models.Word
	err := r.db.GetContext(ctx, &word, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word by ID: %w", err)
	}
	return &word, nil
}

// GetByIDs returns the words with the given IDs, in no particular order
func (r *WordRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Word, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT * FROM words WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build word query: %w", err)
	}
	var words []models.Word
	err = r.db.SelectContext(ctx, &words, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get words by IDs: %w", err)
	}
	return words, nil
}

// GetLatestForUser returns the most recently added words that the user has
// not archived, newest first
func (r *WordRepository) GetLatestForUser(ctx context.Context, userID int64, limit int) ([]models.Word, error) {
	query := r.db.Rebind(`
		SELECT w.* FROM words w
		LEFT JOIN user_progress up ON up.word_id = w.id AND up.user_id = ?
		WHERE COALESCE(up.is_archived, false) = false
		ORDER BY w.created_at DESC, w.id DESC
		LIMIT ?`)
	var words []models.Word
	err := r.db.SelectContext(ctx, &words, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest words: %w", err)
	}
	return words, nil
}

// GetRandomForUser returns a uniformly sampled subset of the words the user
// has not archived. Order is shuffled per call.
func (r *WordRepository) GetRandomForUser(ctx context.Context, userID int64, limit int) ([]models.Word, error) {
	query := r.db.Rebind(`
		SELECT w.* FROM words w
		LEFT JOIN user_progress up ON up.word_id = w.id AND up.user_id = ?
		WHERE COALESCE(up.is_archived, false) = false
		ORDER BY RANDOM()
		LIMIT ?`)
	var words []models.Word
	err := r.db.SelectContext(ctx, &words, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get random words: %w", err)
	}
	return words, nil
}

// CountForUser returns how many catalog words the user has not archived
func (r *WordRepository) CountForUser(ctx context.Context, userID int64) (int, error) {
	query := r.db.Rebind(`
		SELECT COUNT(*) FROM words w
		LEFT JOIN user_progress up ON up.word_id = w.id AND up.user_id = ?
		WHERE COALESCE(up.is_archived, false) = false`)
	var count int
	err := r.db.GetContext(ctx, &count, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count words: %w", err)
	}
	return count, nil
}

// GetByText returns a word by its exact text
func (r *WordRepository) GetByText(ctx context.Context, text string) (*models.Word, error) {
	query := r.db.Rebind("SELECT * FROM words WHERE word = ?")
	var word models.Word
	err := r.db.GetContext(ctx, &word, query, text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word by text: %w", err)
	}
	return &word, nil
}

// Create inserts a new word. The catalog is normally populated by an
// external workflow; this is used for seeding and tests.
func (r *WordRepository) Create(ctx context.Context, word *models.Word) error {
	if r.db.DriverName() == "postgres" {
		query := `INSERT INTO words (word, translation, context)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at`
		return r.db.QueryRowxContext(ctx, query, word.Word, word.Translation, word.Context).
			Scan(&word.ID, &word.CreatedAt, &word.UpdatedAt)
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO words (word, translation, context) VALUES (?, ?, ?)",
		word.Word, word.Translation, word.Context)
	if err != nil {
		return fmt.Errorf("failed to create word: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	word.ID = id
	return r.db.QueryRowxContext(ctx,
		"SELECT created_at, updated_at FROM words WHERE id = ?", word.ID).
		Scan(&word.CreatedAt, &word.UpdatedAt)
}
