package reminder

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/lexibot/internal/database"
	"github.com/example/lexibot/internal/logger"
	"github.com/example/lexibot/internal/progress"
	"github.com/example/lexibot/pkg/models"
)

// Notifier delivers due-review reminders to users
type Notifier interface {
	SendDueReminder(userID int64, summary models.DueSummary) error
}

// Reminder runs the hourly job that tells users how many words are
// waiting for review
type Reminder struct {
	scheduler *gocron.Scheduler
	users     *database.UserRepository
	progress  *progress.Service
	notifier  Notifier
	log       *logger.Logger

	// Reminders are only sent inside this window of local hours
	startHour int
	endHour   int
}

// New creates a reminder scheduler
func New(users *database.UserRepository, svc *progress.Service, notifier Notifier, log *logger.Logger, startHour, endHour int) *Reminder {
	return &Reminder{
		scheduler: gocron.NewScheduler(time.UTC),
		users:     users,
		progress:  svc,
		notifier:  notifier,
		log:       log,
		startHour: startHour,
		endHour:   endHour,
	}
}

// Start begins the hourly reminder check in the background
func (r *Reminder) Start() {
	r.scheduler.Every(1).Hour().Do(r.checkAndSendReminders)
	r.scheduler.StartAsync()
}

// Stop terminates the scheduled job
func (r *Reminder) Stop() {
	r.scheduler.Stop()
}

// checkAndSendReminders sends a due summary to every user whose preferred
// notification hour matches the current hour
func (r *Reminder) checkAndSendReminders() {
	now := time.Now()
	hour := now.Hour()
	if hour < r.startHour || hour > r.endHour {
		return
	}

	ctx := context.Background()
	users, err := r.users.GetUsersForNotification(ctx, hour)
	if err != nil {
		r.log.Errorw("failed to get users for notification", "error", err)
		return
	}

	for _, user := range users {
		summary, err := r.progress.GetDueSummary(ctx, user.ID, now)
		if err != nil {
			r.log.Errorw("failed to get due summary", "user_id", user.ID, "error", err)
			continue
		}
		if summary.DueCount == 0 {
			continue
		}
		if err := r.notifier.SendDueReminder(user.ID, *summary); err != nil {
			r.log.Errorw("failed to send reminder", "user_id", user.ID, "error", err)
		}
	}
}

// RunManualCheck forces a reminder check for a specific user
func (r *Reminder) RunManualCheck(ctx context.Context, userID int64) error {
	summary, err := r.progress.GetDueSummary(ctx, userID, time.Now())
	if err != nil {
		return err
	}
	if summary.DueCount == 0 {
		return nil
	}
	return r.notifier.SendDueReminder(userID, *summary)
}
