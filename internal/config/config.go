package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ledger backends.
const (
	BackendYNAB   = "ynab"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
)

var validBackends = []string{BackendYNAB, BackendMemory, BackendSQLite, BackendSheets}

// Budget aliases accepted in place of a budget UUID.
var budgetAliases = []string{"last-used", "default"}

type Config struct {
	// HTTP Server
	Port                string
	CacheClearPerMinute int

	// Ledger backend selection
	LedgerBackend string

	// YNAB
	YNABAPIToken        string
	YNABBudgetID        string
	YNABAPIURL          string
	YNABRequestsPerHour int
	UpstreamTimeout     time.Duration

	// Metric inputs. Validated when the metric runs, not at startup.
	MonthlyCategories string
	MonthlyIncome     string
	SavingsAccounts   string

	// Cache
	CacheTTL time.Duration

	// Memory backend
	LedgerDataFile string

	// SQLite mirror
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP, empty URL disables
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:                getEnv("PORT", "5001"),
		CacheClearPerMinute: getEnvInt("CACHE_CLEAR_PER_MINUTE", 6),

		LedgerBackend: strings.ToLower(getEnv("LEDGER_BACKEND", BackendYNAB)),

		YNABAPIToken:        getEnv("YNAB_API_TOKEN", ""),
		YNABBudgetID:        getEnv("YNAB_BUDGET_ID", ""),
		YNABAPIURL:          getEnv("YNAB_API_URL", "https://api.ynab.com/v1"),
		YNABRequestsPerHour: getEnvInt("YNAB_REQUESTS_PER_HOUR", 200),
		UpstreamTimeout:     getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),

		MonthlyCategories: getEnv("YNAB_MONTHLY_CATEGORIES", ""),
		MonthlyIncome:     getEnv("YNAB_MONTHLY_INCOME", ""),
		SavingsAccounts:   getEnv("YNAB_SAVINGS_ACCOUNTS", ""),

		CacheTTL: getEnvDuration("CACHE_TTL", 15*time.Minute),

		LedgerDataFile: getEnv("LEDGER_DATA_FILE", "./data/ledger.json"),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ynabmetrics"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changed"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// AMQPEnabled reports whether cache invalidation over AMQP is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.LedgerBackend) {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, validBackends))
	}

	if c.YNABBudgetID != "" && !slices.Contains(budgetAliases, c.YNABBudgetID) {
		if _, err := uuid.Parse(c.YNABBudgetID); err != nil {
			errors = append(errors, fmt.Sprintf("invalid YNAB budget id '%s': must be a UUID, 'last-used' or 'default'", c.YNABBudgetID))
		}
	}

	if c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be positive", c.CacheTTL))
	}
	if c.UpstreamTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid upstream timeout %v: must be positive", c.UpstreamTimeout))
	}
	if c.CacheClearPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache clear rate %d: must be at least 1 per minute", c.CacheClearPerMinute))
	}

	switch c.LedgerBackend {
	case BackendYNAB:
		if c.YNABRequestsPerHour < 1 {
			errors = append(errors, fmt.Sprintf("invalid YNAB request budget %d: must be at least 1 per hour", c.YNABRequestsPerHour))
		}
		if u, err := url.Parse(c.YNABAPIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid YNAB API URL '%s': must be an absolute http(s) URL", c.YNABAPIURL))
		}

	case BackendMemory:
		if c.LedgerDataFile == "" {
			errors = append(errors, "ledger data file cannot be empty when using memory backend")
		} else if _, err := os.Stat(c.LedgerDataFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("ledger data file does not exist: %s", c.LedgerDataFile))
		}

	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}

	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate AMQP URL if provided
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

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Bare numbers are seconds.
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
