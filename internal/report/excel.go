package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/example/lexibot/internal/database"
	"github.com/example/lexibot/pkg/models"
)

// Exporter writes a user's learning progress to an Excel workbook with a
// per-word sheet and an aggregate summary sheet
type Exporter struct {
	progress *database.ProgressRepository
	words    *database.WordRepository
}

// NewExporter creates a new exporter instance
func NewExporter(progress *database.ProgressRepository, words *database.WordRepository) *Exporter {
	return &Exporter{progress: progress, words: words}
}

var progressHeader = []string{
	"Word", "Translation", "Status", "Easiness", "Interval (days)",
	"Next review", "Total reviews", "Correct reviews", "Accuracy %", "Archived",
}

// Export builds the workbook for one user. The caller owns the returned
// file and should Close it.
func (e *Exporter) Export(ctx context.Context, userID int64, now time.Time) (*excelize.File, error) {
	records, err := e.progress.GetAllForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(records))
	for i, rec := range records {
		ids[i] = rec.WordID
	}
	words, err := e.words.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	wordsByID := make(map[int64]models.Word, len(words))
	for _, w := range words {
		wordsByID[w.ID] = w
	}

	f := excelize.NewFile()
	const sheet = "Progress"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	for col, title := range progressHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, err
		}
	}

	for row, rec := range records {
		word := wordsByID[rec.WordID]
		accuracy := 0.0
		if rec.TotalReviews > 0 {
			accuracy = float64(rec.CorrectReviews) / float64(rec.TotalReviews) * 100
		}
		values := []interface{}{
			word.Word,
			word.Translation,
			string(rec.Status),
			rec.EasinessFactor.InexactFloat64(),
			rec.IntervalDays,
			rec.NextReviewDate.Format("2006-01-02"),
			rec.TotalReviews,
			rec.CorrectReviews,
			accuracy,
			rec.IsArchived,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	if err := e.writeSummary(f, records, now); err != nil {
		return nil, err
	}
	return f, nil
}

// writeSummary adds the aggregate sheet: due count, status breakdown and
// average easiness factor
func (e *Exporter) writeSummary(f *excelize.File, records []models.ProgressRecord, now time.Time) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}

	due := 0
	byStatus := map[models.Status]int{}
	efSum := decimal.Zero
	for _, rec := range records {
		if !rec.IsArchived && !rec.NextReviewDate.After(now) {
			due++
		}
		byStatus[rec.Status]++
		efSum = efSum.Add(rec.EasinessFactor)
	}
	avgEF := 0.0
	if len(records) > 0 {
		avgEF = efSum.Div(decimal.NewFromInt(int64(len(records)))).Round(2).InexactFloat64()
	}

	rows := [][]interface{}{
		{"Generated", now.Format("2006-01-02 15:04")},
		{"Words in progress", len(records)},
		{"Due now", due},
		{"Average easiness", avgEF},
	}
	for _, status := range []models.Status{
		models.StatusNew, models.StatusLearning, models.StatusReview,
		models.StatusGraduated, models.StatusLapsed,
	} {
		rows = append(rows, []interface{}{fmt.Sprintf("Status %s", status), byStatus[status]})
	}

	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
