package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"shareledger/internal/reconcile"
)

// Data backends selectable with DATA_BACKEND.
const (
	BackendCSV    = "csv"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
)

var validBackends = []string{BackendCSV, BackendMemory, BackendSQLite, BackendSheets}

type Config struct {
	// HTTP Server
	Port string

	// Records
	DataBackend  string
	DataDir      string
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleExpensesSheet      string
	GoogleContributionsSheet string

	// AMQP; an empty URL disables publishing and the worker consumer.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Reports
	ReportsDir        string
	SplitStrategy     string
	ReportConcurrency int
	ReportInterval    time.Duration
	SkipMissing       bool
	CacheTTL          time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  strings.ToLower(getEnv("DATA_BACKEND", BackendCSV)),
		DataDir:      getEnv("DATA_DIR", "./data"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/shareledger.db"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleExpensesSheet:      getEnv("GOOGLE_EXPENSES_SHEET", "Expenses"),
		GoogleContributionsSheet: getEnv("GOOGLE_CONTRIBUTIONS_SHEET", "Contributions"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "shareledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "period_changed"),

		ReportsDir:        getEnv("REPORTS_DIR", "./reports"),
		SplitStrategy:     getEnv("SPLIT_STRATEGY", reconcile.SplitHalf),
		ReportConcurrency: getEnvInt("REPORT_CONCURRENCY", 4),
		ReportInterval:    getEnvDuration("REPORT_INTERVAL", time.Hour),
		SkipMissing:       getEnvBool("REPORT_SKIP_MISSING", true),
		CacheTTL:          getEnvDuration("CACHE_TTL", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendCSV:
		if strings.TrimSpace(c.DataDir) == "" {
			errors = append(errors, "data directory cannot be empty when using csv backend")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLiteDBPath) == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleExpensesSheet == "" || c.GoogleContributionsSheet == "" {
			errors = append(errors, "Google sheet names cannot be empty when using sheets backend")
		}
	}

	if c.AMQPURL != "" {
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
	}

	if strings.TrimSpace(c.ReportsDir) == "" {
		errors = append(errors, "reports directory cannot be empty")
	}
	if _, err := reconcile.GetSplitStrategy(c.SplitStrategy); err != nil {
		errors = append(errors, fmt.Sprintf("invalid split strategy '%s': must be one of %v", c.SplitStrategy, reconcile.SplitStrategyNames()))
	}
	if c.ReportConcurrency < 1 || c.ReportConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid report concurrency %d: must be between 1 and 64", c.ReportConcurrency))
	}
	if c.ReportInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid report interval %v: must not be negative", c.ReportInterval))
	} else if c.ReportInterval > 0 && c.ReportInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid report interval %v: must be at least 1 second or 0 to disable", c.ReportInterval))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
