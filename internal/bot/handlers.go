package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/lexibot/internal/config"
	"github.com/example/lexibot/internal/database"
	"github.com/example/lexibot/internal/session"
	"github.com/example/lexibot/pkg/models"
)

const helpText = `Commands:
/review [n] - review words that are due
/latest [n] - go through the newest words
/random [n] - practice a random selection
/due - how many words are waiting
/report - download your progress as Excel
/reset <word> - start a word over from scratch
/remindat <hour> - set your daily reminder hour`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.registerUser(ctx, msg)
		b.send(chatID, "Welcome! I will help you remember vocabulary using spaced repetition.\n\n"+helpText)
	case "help":
		b.send(chatID, helpText)
	case "due":
		b.handleDue(ctx, userID, chatID)
	case "review":
		b.startSession(ctx, userID, chatID, session.ModeDueReview, msg.CommandArguments())
	case "latest":
		b.startSession(ctx, userID, chatID, session.ModeLatest, msg.CommandArguments())
	case "random":
		b.startSession(ctx, userID, chatID, session.ModeRandom, msg.CommandArguments())
	case "report":
		b.handleReport(ctx, userID, chatID)
	case "reset":
		b.handleReset(ctx, userID, chatID, msg.CommandArguments())
	case "remindat":
		b.handleRemindAt(ctx, userID, chatID, msg.CommandArguments())
	default:
		b.send(chatID, "Unknown command. Send /help for the list of commands.")
	}
}

func (b *Bot) registerUser(ctx context.Context, msg *tgbotapi.Message) {
	user := &models.User{
		ID:                  msg.From.ID,
		Username:            msg.From.UserName,
		FirstName:           msg.From.FirstName,
		NotificationEnabled: true,
		NotificationHour:    9,
		WordsPerDay:         config.DefaultWordsPerSession,
	}
	if err := b.users.Upsert(ctx, user); err != nil {
		b.log.Errorw("failed to upsert user", "user_id", user.ID, "error", err)
	}
}

func (b *Bot) handleDue(ctx context.Context, userID, chatID int64) {
	summary, err := b.progress.GetDueSummary(ctx, userID, time.Now())
	if err != nil {
		b.log.Errorw("failed to get due summary", "user_id", userID, "error", err)
		b.send(chatID, "Something went wrong, please try again.")
		return
	}
	if summary.DueCount == 0 {
		b.send(chatID, fmt.Sprintf("Nothing due right now. You are tracking %d words.", summary.TotalWords))
		return
	}
	b.send(chatID, fmt.Sprintf("%d of %d words are due. Send /review to start.",
		summary.DueCount, summary.TotalWords))
}

func (b *Bot) startSession(ctx context.Context, userID, chatID int64, mode session.Mode, args string) {
	limit := b.cfg.WordsPerSession
	if n, err := strconv.Atoi(strings.TrimSpace(args)); err == nil && n > 0 {
		limit = n
	}

	words, err := b.planner.SelectWords(ctx, userID, mode, limit, time.Now())
	if err != nil {
		b.log.Errorw("failed to plan session", "user_id", userID, "mode", mode, "error", err)
		b.send(chatID, "Something went wrong, please try again.")
		return
	}
	if len(words) == 0 {
		if mode == session.ModeDueReview {
			b.send(chatID, "Nothing due right now. Try /latest or /random.")
		} else {
			b.send(chatID, "No words available yet.")
		}
		return
	}

	s := &reviewSession{Words: words, Total: len(words)}
	b.setSession(userID, s)
	b.sendNextCard(chatID, s)
}

func (b *Bot) handleReport(ctx context.Context, userID, chatID int64) {
	f, err := b.exporter.Export(ctx, userID, time.Now())
	if err != nil {
		b.log.Errorw("failed to export report", "user_id", userID, "error", err)
		b.send(chatID, "Could not build the report, please try again.")
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		b.log.Errorw("failed to serialize report", "user_id", userID, "error", err)
		b.send(chatID, "Could not build the report, please try again.")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("progress-%s.xlsx", time.Now().Format("2006-01-02")),
		Bytes: buf.Bytes(),
	})
	if _, err := b.api.Send(doc); err != nil {
		b.log.Errorw("failed to send report", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleReset(ctx context.Context, userID, chatID int64, args string) {
	text := strings.TrimSpace(args)
	if text == "" {
		b.send(chatID, "Usage: /reset <word>")
		return
	}

	word, err := b.words.GetByText(ctx, text)
	if errors.Is(err, database.ErrNotFound) {
		b.send(chatID, fmt.Sprintf("I don't know the word %q.", text))
		return
	}
	if err != nil {
		b.log.Errorw("failed to look up word", "word", text, "error", err)
		b.send(chatID, "Something went wrong, please try again.")
		return
	}

	if _, err := b.progress.ResetProgress(ctx, userID, word.ID, time.Now()); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			b.send(chatID, fmt.Sprintf("You haven't reviewed %q yet.", word.Word))
			return
		}
		b.log.Errorw("failed to reset progress", "user_id", userID, "word_id", word.ID, "error", err)
		b.send(chatID, "Something went wrong, please try again.")
		return
	}
	b.send(chatID, fmt.Sprintf("Progress for %q starts over. It is due for review now.", word.Word))
}

func (b *Bot) handleRemindAt(ctx context.Context, userID, chatID int64, args string) {
	hour, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || hour < 0 || hour > 23 {
		b.send(chatID, "Usage: /remindat <hour 0-23>")
		return
	}
	if err := b.users.SetNotificationHour(ctx, userID, hour); err != nil {
		b.log.Errorw("failed to set notification hour", "user_id", userID, "error", err)
		b.send(chatID, "Something went wrong, please try again.")
		return
	}
	b.send(chatID, fmt.Sprintf("Reminders will arrive around %02d:00.", hour))
}

// handleCallback processes the review keyboard: quality grades, archive
// and the stop button
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	userID := cb.From.ID
	chatID := cb.Message.Chat.ID

	// Acknowledge immediately so the button stops spinning
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Errorw("failed to answer callback", "error", err)
	}

	if cb.Data == "stop" {
		s := b.getSession(userID)
		b.setSession(userID, nil)
		if s != nil {
			b.send(chatID, fmt.Sprintf("Session stopped: %d of %d correct so far.", s.Correct, s.Total))
		}
		return
	}

	action, wordID, quality, err := parseCallbackData(cb.Data)
	if err != nil {
		b.log.Warnw("unexpected callback data", "data", cb.Data)
		return
	}

	switch action {
	case "q":
		b.handleQuality(ctx, userID, chatID, cb, wordID, models.QualityScore(quality))
	case "a":
		b.handleArchive(ctx, userID, chatID, wordID)
	}
}

func (b *Bot) handleQuality(ctx context.Context, userID, chatID int64, cb *tgbotapi.CallbackQuery, wordID int64, quality models.QualityScore) {
	rec, err := b.progress.RecordReview(ctx, userID, wordID, quality, time.Now())
	if err != nil {
		b.log.Errorw("failed to record review", "user_id", userID, "word_id", wordID, "error", err)
		b.send(chatID, "Could not save that review, please try again.")
		return
	}

	// Replace the keyboard with the outcome so the card can't be graded twice
	edit := tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID,
		cb.Message.Text+fmt.Sprintf("\n\nNext review %s.", formatNextReview(rec)))
	if _, err := b.api.Send(edit); err != nil {
		b.log.Errorw("failed to edit card", "chat_id", chatID, "error", err)
	}

	s := b.getSession(userID)
	if s == nil {
		return
	}
	if quality.Correct() {
		s.Correct++
	}
	s.Current++
	b.sendNextCard(chatID, s)
}

func (b *Bot) handleArchive(ctx context.Context, userID, chatID int64, wordID int64) {
	if err := b.progress.Archive(ctx, userID, wordID, time.Now()); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Never-reviewed words have no record to archive; create one
			// implicitly by grading would be surprising, so just skip
			b.send(chatID, "This word has no progress to archive yet.")
		} else {
			b.log.Errorw("failed to archive word", "user_id", userID, "word_id", wordID, "error", err)
			b.send(chatID, "Something went wrong, please try again.")
		}
	} else {
		b.send(chatID, "Archived. It won't show up in reviews until you /reset it.")
	}

	if s := b.getSession(userID); s != nil {
		s.Current++
		b.sendNextCard(chatID, s)
	}
}

func parseCallbackData(data string) (action string, wordID int64, quality int, err error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("malformed callback data %q", data)
	}
	wordID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, 0, err
	}
	quality, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, err
	}
	return parts[0], wordID, quality, nil
}
