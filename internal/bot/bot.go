package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/lexibot/internal/config"
	"github.com/example/lexibot/internal/database"
	"github.com/example/lexibot/internal/logger"
	"github.com/example/lexibot/internal/progress"
	"github.com/example/lexibot/internal/report"
	"github.com/example/lexibot/internal/session"
	"github.com/example/lexibot/pkg/models"
)

// reviewSession is a user's ongoing batch of review cards
type reviewSession struct {
	Words   []models.Word
	Current int
	Correct int
	Total   int
}

// Bot is the Telegram surface over the scheduling core. It owns no
// scheduling logic itself; every outcome goes through the progress
// service and every batch through the session planner.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	users    *database.UserRepository
	words    *database.WordRepository
	progress *progress.Service
	planner  *session.Planner
	exporter *report.Exporter
	log      *logger.Logger

	mu       sync.Mutex
	sessions map[int64]*reviewSession
}

// New creates a new bot instance
func New(cfg *config.Config, users *database.UserRepository, words *database.WordRepository,
	svc *progress.Service, planner *session.Planner, exporter *report.Exporter, log *logger.Logger) (*Bot, error) {
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	return &Bot{
		api:      api,
		cfg:      cfg,
		users:    users,
		words:    words,
		progress: svc,
		planner:  planner,
		exporter: exporter,
		log:      log,
		sessions: make(map[int64]*reviewSession),
	}, nil
}

// Start processes incoming updates until the context is cancelled
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	b.log.Infow("bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// SendDueReminder implements reminder.Notifier
func (b *Bot) SendDueReminder(userID int64, summary models.DueSummary) error {
	text := fmt.Sprintf("You have %d of %d words waiting for review. Send /review to start.",
		summary.DueCount, summary.TotalWords)
	_, err := b.api.Send(tgbotapi.NewMessage(userID, text))
	return err
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("panic while handling update", "panic", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

// session helpers

func (b *Bot) setSession(userID int64, s *reviewSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s == nil {
		delete(b.sessions, userID)
		return
	}
	b.sessions[userID] = s
}

func (b *Bot) getSession(userID int64) *reviewSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[userID]
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Errorw("failed to send message", "chat_id", chatID, "error", err)
	}
}

// qualityKeyboard is the Hard/Good/Easy review keyboard for one card
func qualityKeyboard(wordID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Hard", callbackData("q", wordID, int(models.QualityHard))),
			tgbotapi.NewInlineKeyboardButtonData("Good", callbackData("q", wordID, int(models.QualityGood))),
			tgbotapi.NewInlineKeyboardButtonData("Easy", callbackData("q", wordID, int(models.QualityEasy))),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Archive", callbackData("a", wordID, 0)),
			tgbotapi.NewInlineKeyboardButtonData("Stop session", "stop"),
		),
	)
}

func callbackData(action string, wordID int64, quality int) string {
	return fmt.Sprintf("%s:%d:%d", action, wordID, quality)
}

// sendNextCard shows the current card of the session, or the session
// summary once the batch is exhausted
func (b *Bot) sendNextCard(chatID int64, s *reviewSession) {
	if s.Current >= len(s.Words) {
		b.setSession(chatID, nil)
		b.send(chatID, fmt.Sprintf("Session finished: %d of %d correct.", s.Correct, s.Total))
		return
	}

	word := s.Words[s.Current]
	text := fmt.Sprintf("%s — %s", word.Word, word.Translation)
	if word.Context != "" {
		text += "\n\n" + word.Context
	}
	text += "\n\nHow well did you recall it?"

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = qualityKeyboard(word.ID)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Errorw("failed to send card", "chat_id", chatID, "error", err)
	}
}

func formatNextReview(rec *models.ProgressRecord) string {
	days := rec.IntervalDays
	if days == 1 {
		return "tomorrow"
	}
	return fmt.Sprintf("in %d days (%s)", days, rec.NextReviewDate.Format("Jan 2"))
}
