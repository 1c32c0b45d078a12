package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken    string `envconfig:"GITHUB_TOKEN" validate:"required"`
	GitHubUsername string `envconfig:"GITHUB_USERNAME" validate:"required"`
	GitHubAPIURL   string `envconfig:"GITHUB_API_URL" default:"https://api.github.com/" validate:"required,url"`

	// WakaTime
	WakaTimeAPIKey  string `envconfig:"WAKATIME_API_KEY" validate:"required"`
	WakaTimeBaseURL string `envconfig:"WAKATIME_BASE_URL" default:"https://wakatime.com/api/v1" validate:"required,url"`

	// Telegram
	TelegramToken       string        `envconfig:"TELEGRAM_TOKEN" validate:"required"`
	TelegramChatID      int64         `envconfig:"TELEGRAM_CHAT_ID" validate:"required"`
	TelegramAPIEndpoint string        `envconfig:"TELEGRAM_API_ENDPOINT" default:"https://api.telegram.org/bot%s/%s"`
	PollInterval        time.Duration `envconfig:"POLL_INTERVAL" default:"1500ms" validate:"gt=0"`
	PollTimeoutSeconds  int           `envconfig:"POLL_TIMEOUT_SECONDS" default:"25" validate:"gte=0,lte=50"`

	// Schedule
	Timezone string `envconfig:"BOT_TIMEZONE" default:"Local" validate:"tzname"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`

	// Storage
	StorageType string `envconfig:"STORAGE_TYPE" default:"none" validate:"oneof=none sqlite postgres"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./gitwaka.db"`
	PostgresURL string `envconfig:"POSTGRES_URL" validate:"required_if=StorageType postgres"`

	// API Server
	APIEnabled bool   `envconfig:"API_ENABLED" default:"false"`
	APIPort    string `envconfig:"API_PORT" default:"8080"`
	APIHost    string `envconfig:"API_HOST" default:"localhost"`

	// CLI
	APIEndpoint string `envconfig:"API_ENDPOINT" default:"http://localhost:8080"`
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{Field: "env", Message: err.Error()}
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their environment variable name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("envconfig"); name != "" {
			return name
		}
		return f.Name
	})
	_ = v.RegisterValidation("tzname", func(fl validator.FieldLevel) bool {
		_, err := time.LoadLocation(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate validates the configuration. With no arguments every field is
// checked; otherwise only the named struct fields are, which lets commands
// that need a subset (e.g. storage only) run without chat credentials.
func (c *Config) Validate(fields ...string) error {
	var err error
	if len(fields) == 0 {
		err = validate.Struct(c)
	} else {
		err = validate.StructPartial(c, fields...)
	}
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &ConfigError{Field: "config", Message: err.Error()}
	}
	fe := verrs[0]
	return &ConfigError{Field: fe.Field(), Message: describe(fe)}
}

// ValidateStorage checks only the storage settings
func (c *Config) ValidateStorage() error {
	return c.Validate("StorageType", "PostgresURL")
}

// Location returns the time zone the schedule and "today" are evaluated in
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// StorageEnabled reports whether report history is recorded
func (c *Config) StorageEnabled() bool {
	return c.StorageType != "none"
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url":
		return "must be a valid URL"
	case "tzname":
		return fmt.Sprintf("unknown time zone %q", fe.Value())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
