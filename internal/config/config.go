package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Telegram TelegramConfig
	Sheets   SheetsConfig
	MongoDB  MongoDBConfig
	Lunch    LunchConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// TelegramConfig contains credentials for the Telegram Bot API used to
// deliver survey prompts and notices.
type TelegramConfig struct {
	BotToken string
	BaseURL  string
}

// SheetsConfig contains configuration required to interact with the
// Google Sheets ledger of record.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	RosterSheet     string
	AttendanceSheet string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// LunchConfig holds attendance workflow settings. Timezone governs all
// cutoff comparisons and scheduled jobs.
type LunchConfig struct {
	Timezone              string
	DefaultInitialBalance float64
	DefaultDailyPrice     float64
}

// Load reads environment variables (optionally from the provided file)
// and materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	initialBalance, err := getenvFloat("DEFAULT_INITIAL_BALANCE", 0)
	if err != nil {
		return nil, err
	}
	dailyPrice, err := getenvFloat("DEFAULT_DAILY_PRICE", 25000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Telegram: TelegramConfig{
			BotToken: os.Getenv("BOT_TOKEN"),
			BaseURL:  getenvWithDefault("TELEGRAM_BASE_URL", "https://api.telegram.org"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			RosterSheet:     getenvWithDefault("SHEET_ROSTER_NAME", "Sheet1"),
			AttendanceSheet: getenvWithDefault("SHEET_ATTENDANCE_NAME", "Attendance"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "lunch_bot"),
		},
		Lunch: LunchConfig{
			Timezone:              getenvWithDefault("TIMEZONE", "Asia/Tashkent"),
			DefaultInitialBalance: initialBalance,
			DefaultDailyPrice:     dailyPrice,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Telegram.BotToken == "" {
		return errors.New("BOT_TOKEN must be provided")
	}
	if c.Telegram.BaseURL == "" {
		return errors.New("TELEGRAM_BASE_URL must not be empty")
	}

	if c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
	}
	if c.Sheets.SpreadsheetID == "" {
		return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}

	if c.Lunch.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if c.Lunch.DefaultDailyPrice <= 0 {
		return errors.New("DEFAULT_DAILY_PRICE must be positive")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be numeric: %w", key, err)
	}
	return value, nil
}
