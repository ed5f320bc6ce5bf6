package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Default values for tunable settings
const (
	DefaultWordsPerSession   = 10
	DefaultReminderStartHour = 8
	DefaultReminderEndHour   = 22
)

// Config carries all runtime settings, loaded from the environment
type Config struct {
	// DatabaseDriver is "sqlite3" or "postgres"
	DatabaseDriver string
	// DatabaseDSN is the driver-specific connection string
	DatabaseDSN string
	// TelegramToken authenticates the bot against the Telegram API
	TelegramToken string
	// LogMode selects the logger preset ("dev" or "prod")
	LogMode string
	// WordsPerSession caps the batch size of a review session
	WordsPerSession int
	// ReminderStartHour and ReminderEndHour bound the daily window in
	// which reminders may be sent (local hours, inclusive)
	ReminderStartHour int
	ReminderEndHour   int
	// RemindersEnabled toggles the hourly reminder job
	RemindersEnabled bool
}

// Load reads configuration from the environment. A .env file is applied
// first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DatabaseDriver:    getEnv("DB_DRIVER", "sqlite3"),
		DatabaseDSN:       getEnv("DB_DSN", "data/lexibot.db"),
		TelegramToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		LogMode:           getEnv("LOG_MODE", "dev"),
		WordsPerSession:   getEnvInt("WORDS_PER_SESSION", DefaultWordsPerSession),
		ReminderStartHour: getEnvInt("REMINDER_START_HOUR", DefaultReminderStartHour),
		ReminderEndHour:   getEnvInt("REMINDER_END_HOUR", DefaultReminderEndHour),
		RemindersEnabled:  getEnv("ENABLE_REMINDERS", "true") != "false",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
