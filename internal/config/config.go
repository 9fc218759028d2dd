package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	ModeWebhook = "webhook"
	ModePoll    = "poll"

	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	// Telegram
	TelegramToken string
	TelegramMode  string
	WebhookURL    string
	WebhookSecret string
	PollTimeout   time.Duration

	// HTTP Server
	Port              string
	RequestsPerMinute int
	TrustedProxies    []string

	// Storage
	DataBackend  string
	SQLiteDBPath string
	DataDir      string

	// Contributors compared by the proportion snapshot
	MinorUserID int64
	MajorUserID int64

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export (optional, worker only)
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Azure Blob report archive (optional)
	ArchiveBlobURL   string
	ArchiveContainer string

	LogLevel string
}

func Load() *Config {
	return &Config{
		TelegramToken: getEnv("TELEGRAM_TOKEN", ""),
		TelegramMode:  getEnv("TELEGRAM_MODE", ModePoll),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
		PollTimeout:   getEnvDuration("POLL_TIMEOUT", 30*time.Second),

		Port:              getEnv("PORT", "8081"),
		RequestsPerMinute: int(getEnvInt64("RATE_LIMIT_PER_MINUTE", 600)),
		TrustedProxies:    getEnvList("TRUSTED_PROXIES"),

		DataBackend:  getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cardfill.db"),
		DataDir:      getEnv("DATA_DIR", "data"),

		MinorUserID: getEnvInt64("MINOR_USER_ID", 0),
		MajorUserID: getEnvInt64("MAJOR_USER_ID", 0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cardfill"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "fill_export"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Fills"),

		ArchiveBlobURL:   getEnv("ARCHIVE_BLOB_URL", ""),
		ArchiveContainer: getEnv("ARCHIVE_CONTAINER", "reports"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the configuration the bot needs to serve chats and
// returns every problem found at once.
func (c *Config) Validate() error {
	var errors []string

	if c.TelegramToken == "" {
		errors = append(errors, "TELEGRAM_TOKEN is required")
	}

	switch c.TelegramMode {
	case ModePoll:
		if c.PollTimeout < time.Second || c.PollTimeout > 5*time.Minute {
			errors = append(errors, fmt.Sprintf("invalid poll timeout %v: must be between 1s and 5m", c.PollTimeout))
		}
	case ModeWebhook:
		if u, err := url.Parse(c.WebhookURL); err != nil || u.Scheme != "https" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid webhook URL '%s': must be an absolute https URL", c.WebhookURL))
		}
		if c.WebhookSecret != "" && !validSecretToken(c.WebhookSecret) {
			errors = append(errors, "WEBHOOK_SECRET must be 1-256 characters of A-Z, a-z, 0-9, _ and -")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid telegram mode '%s': must be one of [%s %s]", c.TelegramMode, ModeWebhook, ModePoll))
	}

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RequestsPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be positive", c.RequestsPerMinute))
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if err := c.ValidateStorage(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.MinorUserID == 0 || c.MajorUserID == 0 {
		errors = append(errors, "MINOR_USER_ID and MAJOR_USER_ID are required")
	} else if c.MinorUserID == c.MajorUserID {
		errors = append(errors, "MINOR_USER_ID and MAJOR_USER_ID must differ")
	}

	if err := c.validateAMQP(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.ArchiveBlobURL != "" {
		if _, err := url.Parse(c.ArchiveBlobURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid archive blob URL '%s': %v", c.ArchiveBlobURL, err))
		}
		if c.ArchiveContainer == "" {
			errors = append(errors, "ARCHIVE_CONTAINER cannot be empty when ARCHIVE_BLOB_URL is set")
		}
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker checks the configuration of the sheet export worker.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the worker")
	} else if err := c.validateAMQP(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.ValidateStorage(); err != nil {
		errors = append(errors, err.Error())
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "GOOGLE_SHEET_NAME cannot be empty")
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateStorage checks only the data backend settings.
func (c *Config) ValidateStorage() error {
	switch c.DataBackend {
	case BackendMemory:
		return nil
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path cannot be empty when using sqlite backend")
		}
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("cannot create SQLite database directory '%s': %v", dir, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendMemory, BackendSQLite)
	}
}

func (c *Config) validateAMQP() error {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "\n- "))
	}
	return nil
}

// validSecretToken mirrors the character set Telegram accepts for
// setWebhook's secret_token.
func validSecretToken(s string) bool {
	if len(s) == 0 || len(s) > 256 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
