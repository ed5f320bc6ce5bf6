package report

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

func TestExport(t *testing.T) {
	db, err := database.Connect("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	progressRepo := database.NewProgressRepository(db)
	wordRepo := database.NewWordRepository(db)

	cat := &models.Word{Word: "cat", Translation: "die Katze"}
	require.NoError(t, wordRepo.Create(ctx, cat))
	dog := &models.Word{Word: "dog", Translation: "der Hund"}
	require.NoError(t, wordRepo.Create(ctx, dog))

	catRec := srs.NewRecord(1, cat.ID, testNow.Add(-48*time.Hour))
	catRec.NextReviewDate = testNow.Add(-time.Hour) // due
	catRec.TotalReviews = 4
	catRec.CorrectReviews = 3
	catRec.Status = models.StatusLearning
	require.NoError(t, progressRepo.Create(ctx, &catRec))

	dogRec := srs.NewRecord(1, dog.ID, testNow.Add(-48*time.Hour))
	dogRec.NextReviewDate = testNow.Add(24 * time.Hour)
	dogRec.Status = models.StatusReview
	require.NoError(t, progressRepo.Create(ctx, &dogRec))

	exporter := NewExporter(progressRepo, wordRepo)
	f, err := exporter.Export(ctx, 1, testNow)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	// Header plus the due word on the first data row
	got, err := f.GetCellValue("Progress", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Word", got)
	got, err = f.GetCellValue("Progress", "A2")
	require.NoError(t, err)
	assert.Equal(t, "cat", got)
	got, err = f.GetCellValue("Progress", "B2")
	require.NoError(t, err)
	assert.Equal(t, "die Katze", got)
	got, err = f.GetCellValue("Progress", "C2")
	require.NoError(t, err)
	assert.Equal(t, "learning", got)

	// Summary counts one due word out of two tracked
	got, err = f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
	got, err = f.GetCellValue("Summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}
