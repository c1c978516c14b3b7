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

	"screentime/internal/core"
)

var (
	validBackends       = []string{"csv", "memory", "sqlite", "sheets"}
	validMirrorBackends = []string{"sqlite", "sheets"}
	validLogLevels      = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Flat-file store
	StorePath            string
	StoreWriteMode       string
	StoreAllowHeaderless bool

	// Activity document
	DocumentPath         string
	DocumentMeasureField string

	// Database
	SQLiteDBPath string

	// AMQP (optional, enables record events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Worker
	MirrorBackend      string
	MirrorSyncInterval time.Duration

	// Presentation
	CacheTTL time.Duration
	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "csv"),

		StorePath:            getEnv("STORE_PATH", "data.csv"),
		StoreWriteMode:       getEnv("STORE_WRITE_MODE", string(core.WriteAppend)),
		StoreAllowHeaderless: getEnvBool("STORE_ALLOW_HEADERLESS", false),

		DocumentPath:         getEnv("DOCUMENT_PATH", "data.json"),
		DocumentMeasureField: getEnv("DOCUMENT_MEASURE_FIELD", core.MeasureHours),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/screentime.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "screentime"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "record_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Records"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		MirrorBackend:      getEnv("MIRROR_BACKEND", "sqlite"),
		MirrorSyncInterval: getEnvDuration("MIRROR_SYNC_INTERVAL", 5*time.Minute),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	return cfg
}

// Schema returns the data-set revision choices carried by the configuration.
func (c *Config) Schema() core.Schema {
	return core.Schema{
		MeasureField: c.DocumentMeasureField,
		WriteMode:    core.WriteMode(c.StoreWriteMode),
	}
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

	// Validate data backend
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate schema choices
	if !core.IsValidMeasureField(c.DocumentMeasureField) {
		errors = append(errors, fmt.Sprintf("invalid document measure field '%s': must be 'value' or 'hours'", c.DocumentMeasureField))
	}
	if !core.WriteMode(c.StoreWriteMode).IsValid() {
		errors = append(errors, fmt.Sprintf("invalid store write mode '%s': must be 'append' or 'overwrite'", c.StoreWriteMode))
	}
	if strings.TrimSpace(c.DocumentPath) == "" {
		errors = append(errors, "document path cannot be empty")
	}

	if c.DataBackend == "csv" && strings.TrimSpace(c.StorePath) == "" {
		errors = append(errors, "store path cannot be empty when using csv backend")
	}

	if c.DataBackend == "sqlite" {
		errors = append(errors, c.validateSQLite()...)
	}

	errors = append(errors, c.validateAMQP()...)

	if c.DataBackend == "sheets" {
		errors = append(errors, c.validateSheets()...)
	}

	if c.CacheTTL < 0 || c.CacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be between 0 and 24 hours", c.CacheTTL))
	}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks the settings the mirror worker needs on top of Validate.
func (c *Config) ValidateWorker() error {
	var errors []string

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the worker")
	}
	if !slices.Contains(validMirrorBackends, c.MirrorBackend) {
		errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be one of %v", c.MirrorBackend, validMirrorBackends))
	} else if c.MirrorBackend == c.DataBackend {
		errors = append(errors, fmt.Sprintf("mirror backend '%s' must differ from the data backend", c.MirrorBackend))
	}
	switch c.MirrorBackend {
	case "sqlite":
		errors = append(errors, c.validateSQLite()...)
	case "sheets":
		errors = append(errors, c.validateSheets()...)
	}
	if c.MirrorSyncInterval != 0 && c.MirrorSyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid mirror sync interval %v: must be 0 (disabled) or at least 1 second", c.MirrorSyncInterval))
	} else if c.MirrorSyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid mirror sync interval %v: must be at most 24 hours", c.MirrorSyncInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("worker configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSQLite() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	// Check if directory exists or can be created
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func (c *Config) validateAMQP() []string {
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
	return errors
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when using sheets backend")
	}

	hasFile := c.GoogleServiceAccountFile != ""
	hasJSON := c.GoogleServiceAccountJSON != ""
	if !hasFile && !hasJSON {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets backend")
	}
	if hasFile && !hasJSON {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errors
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
