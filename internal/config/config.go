// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
)

// JournalOff disables the evidence journal when used as PANELKEEPER_JOURNAL.
const JournalOff = "off"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Mode     model.AuthMode
	Cookies  string
	Accounts string

	Profile        string
	BaseURL        string
	StaticResource string

	OutputDir   string
	JournalPath string
	MetricsFile string
	Pushgateway string

	NavTimeout  time.Duration
	Headless    bool
	BrowserBin  string
	LogLevel    slog.Level
	LogFormat   string
	TelegramBot string
	TelegramTo  string
	RepoToken   string
	Repository  string
	SecretName  string
}

// HasTelegram reports whether both the bot token and the chat id are set.
func (c *Config) HasTelegram() bool {
	return c.TelegramBot != "" && c.TelegramTo != ""
}

// HasSecretStore reports whether both the repository token and the target
// repository are set.
func (c *Config) HasSecretStore() bool {
	return c.RepoToken != "" && c.Repository != ""
}

// JournalEnabled reports whether the evidence journal should be written.
func (c *Config) JournalEnabled() bool {
	return c.JournalPath != "" && c.JournalPath != JournalOff
}

// RequireCredentials returns an error naming the missing credential input
// for the configured mode. It is separate from Load so the caller can still
// send a failure notification when credentials are absent.
func (c *Config) RequireCredentials() error {
	switch c.Mode {
	case model.AuthModeCookie:
		if strings.TrimSpace(c.Cookies) == "" {
			return fmt.Errorf("PANELKEEPER_COOKIES is required in %s mode", c.Mode)
		}
	case model.AuthModeLogin:
		if strings.TrimSpace(c.Accounts) == "" {
			return fmt.Errorf("PANELKEEPER_ACCOUNTS is required in %s mode", c.Mode)
		}
	}
	return nil
}

// LoadTelegram reads the notification credentials on their own, so a
// failure in Load can still be reported. Both values must be non-empty for
// notifications to be sent.
func LoadTelegram() (bot, chat string) {
	return strings.TrimSpace(os.Getenv("TG_BOT_TOKEN")), strings.TrimSpace(os.Getenv("TG_CHAT_ID"))
}

// Load reads configuration from environment variables and returns a validated Config.
// Credentials are read but not required here; see RequireCredentials.
// Optional variables with defaults: PANELKEEPER_MODE (cookie),
// PANELKEEPER_PROFILE (bytte), PANELKEEPER_OUTPUT_DIR (output/screenshots),
// PANELKEEPER_JOURNAL (<output>/journal.db), PANELKEEPER_METRICS_FILE
// (<output>/metrics.prom), PANELKEEPER_NAV_TIMEOUT (60s),
// PANELKEEPER_HEADLESS (true), PANELKEEPER_SECRET_NAME (PANEL_BYTTE_COOKIES),
// PANELKEEPER_LOG_LEVEL (info), PANELKEEPER_LOG_FORMAT (text).
func Load() (*Config, error) {
	mode := model.AuthModeCookie
	if v, ok := os.LookupEnv("PANELKEEPER_MODE"); ok && v != "" {
		mode = model.AuthMode(strings.ToLower(strings.TrimSpace(v)))
		if mode != model.AuthModeCookie && mode != model.AuthModeLogin {
			return nil, fmt.Errorf("PANELKEEPER_MODE must be %q or %q, got %q", model.AuthModeCookie, model.AuthModeLogin, v)
		}
	}

	outputDir := envOr("PANELKEEPER_OUTPUT_DIR", filepath.Join("output", "screenshots"))

	navTimeout := 60 * time.Second
	if v, ok := os.LookupEnv("PANELKEEPER_NAV_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PANELKEEPER_NAV_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("PANELKEEPER_NAV_TIMEOUT must be positive, got %s", parsed)
		}
		navTimeout = parsed
	}

	headless := true
	if v, ok := os.LookupEnv("PANELKEEPER_HEADLESS"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("PANELKEEPER_HEADLESS has invalid boolean %q: %w", v, err)
		}
		headless = parsed
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("PANELKEEPER_LOG_LEVEL"); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("PANELKEEPER_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	logFormat := strings.ToLower(envOr("PANELKEEPER_LOG_FORMAT", "text"))
	if logFormat != "text" && logFormat != "json" {
		return nil, fmt.Errorf("PANELKEEPER_LOG_FORMAT must be text or json, got %q", logFormat)
	}

	telegramBot, telegramTo := LoadTelegram()

	return &Config{
		Mode:           mode,
		Cookies:        os.Getenv("PANELKEEPER_COOKIES"),
		Accounts:       os.Getenv("PANELKEEPER_ACCOUNTS"),
		Profile:        envOr("PANELKEEPER_PROFILE", DefaultProfile),
		BaseURL:        os.Getenv("PANELKEEPER_BASE_URL"),
		StaticResource: strings.TrimSpace(os.Getenv("PANELKEEPER_STATIC_RESOURCE")),
		OutputDir:      outputDir,
		JournalPath:    envOr("PANELKEEPER_JOURNAL", filepath.Join(outputDir, "journal.db")),
		MetricsFile:    envOr("PANELKEEPER_METRICS_FILE", filepath.Join(outputDir, "metrics.prom")),
		Pushgateway:    os.Getenv("PANELKEEPER_PUSHGATEWAY_URL"),
		NavTimeout:     navTimeout,
		Headless:       headless,
		BrowserBin:     os.Getenv("PANELKEEPER_BROWSER_BIN"),
		LogLevel:       logLevel,
		LogFormat:      logFormat,
		TelegramBot:    telegramBot,
		TelegramTo:     telegramTo,
		RepoToken:      os.Getenv("REPO_TOKEN"),
		Repository:     os.Getenv("GITHUB_REPOSITORY"),
		SecretName:     envOr("PANELKEEPER_SECRET_NAME", "PANEL_BYTTE_COOKIES"),
	}, nil
}

// envOr returns the value of key, or fallback when it is unset or empty.
func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
