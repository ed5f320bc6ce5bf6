package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lexibot/internal/database"
	"github.com/example/lexibot/internal/srs"
	"github.com/example/lexibot/pkg/models"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	planner  *Planner
	progress *database.ProgressRepository
	words    *database.WordRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Connect("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	progress := database.NewProgressRepository(db)
	words := database.NewWordRepository(db)
	return &testEnv{
		planner:  NewPlanner(progress, words),
		progress: progress,
		words:    words,
	}
}

func (e *testEnv) addWord(t *testing.T, text string) models.Word {
	t.Helper()
	word := &models.Word{Word: text, Translation: text + "-translation"}
	require.NoError(t, e.words.Create(context.Background(), word))
	return *word
}

func (e *testEnv) addProgress(t *testing.T, userID, wordID int64, due time.Time, archived bool) {
	t.Helper()
	rec := srs.NewRecord(userID, wordID, testNow.Add(-48*time.Hour))
	rec.NextReviewDate = due
	rec.IsArchived = archived
	require.NoError(t, e.progress.Create(context.Background(), &rec))
}

func wordTexts(words []models.Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Word
	}
	return out
}

func TestDueReviewOrderAndFiltering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	oldest := env.addWord(t, "oldest")
	middle := env.addWord(t, "middle")
	newest := env.addWord(t, "newest")
	future := env.addWord(t, "future")
	archived := env.addWord(t, "archived")

	env.addProgress(t, 1, oldest.ID, testNow.Add(-3*time.Hour), false)
	env.addProgress(t, 1, middle.ID, testNow.Add(-2*time.Hour), false)
	env.addProgress(t, 1, newest.ID, testNow.Add(-1*time.Hour), false)
	env.addProgress(t, 1, future.ID, testNow.Add(time.Hour), false)
	env.addProgress(t, 1, archived.ID, testNow.Add(-5*time.Hour), true)

	words, err := env.planner.SelectWords(ctx, 1, ModeDueReview, 10, testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"oldest", "middle", "newest"}, wordTexts(words))

	// No intervening writes: the same sequence comes back
	again, err := env.planner.SelectWords(ctx, 1, ModeDueReview, 10, testNow)
	require.NoError(t, err)
	assert.Equal(t, wordTexts(words), wordTexts(again))

	capped, err := env.planner.SelectWords(ctx, 1, ModeDueReview, 2, testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"oldest", "middle"}, wordTexts(capped))
}

func TestDueReviewEmpty(t *testing.T) {
	env := newTestEnv(t)

	words, err := env.planner.SelectWords(context.Background(), 1, ModeDueReview, 10, testNow)
	require.NoError(t, err)
	assert.Empty(t, words)
}

func TestLatestMode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addWord(t, "first")
	env.addWord(t, "second")
	third := env.addWord(t, "third")

	words, err := env.planner.SelectWords(ctx, 1, ModeLatest, 2, testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second"}, wordTexts(words))

	// Archiving hides a word from every mode
	env.addProgress(t, 1, third.ID, testNow, true)
	words, err = env.planner.SelectWords(ctx, 1, ModeLatest, 2, testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, wordTexts(words))
}

func TestRandomMode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	all := map[string]bool{}
	for _, text := range []string{"one", "two", "three", "four"} {
		env.addWord(t, text)
		all[text] = true
	}

	words, err := env.planner.SelectWords(ctx, 1, ModeRandom, 3, testNow)
	require.NoError(t, err)
	require.Len(t, words, 3)
	seen := map[string]bool{}
	for _, w := range words {
		assert.True(t, all[w.Word], "unexpected word %q", w.Word)
		assert.False(t, seen[w.Word], "duplicate word %q", w.Word)
		seen[w.Word] = true
	}

	// Asking for more than exists returns everything
	words, err = env.planner.SelectWords(ctx, 1, ModeRandom, 100, testNow)
	require.NoError(t, err)
	assert.Len(t, words, len(all))
}

func TestUnknownMode(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.planner.SelectWords(context.Background(), 1, Mode("cramming"), 10, testNow)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestNonPositiveLimit(t *testing.T) {
	env := newTestEnv(t)
	env.addWord(t, "word")

	words, err := env.planner.SelectWords(context.Background(), 1, ModeDueReview, 0, testNow)
	require.NoError(t, err)
	assert.Empty(t, words)
}
