package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
)

// allConfigKeys lists every env var that Load() reads.
var allConfigKeys = []string{
	"PANELKEEPER_MODE",
	"PANELKEEPER_COOKIES",
	"PANELKEEPER_ACCOUNTS",
	"PANELKEEPER_PROFILE",
	"PANELKEEPER_BASE_URL",
	"PANELKEEPER_STATIC_RESOURCE",
	"PANELKEEPER_OUTPUT_DIR",
	"PANELKEEPER_JOURNAL",
	"PANELKEEPER_METRICS_FILE",
	"PANELKEEPER_PUSHGATEWAY_URL",
	"PANELKEEPER_NAV_TIMEOUT",
	"PANELKEEPER_HEADLESS",
	"PANELKEEPER_BROWSER_BIN",
	"PANELKEEPER_LOG_LEVEL",
	"PANELKEEPER_LOG_FORMAT",
	"PANELKEEPER_SECRET_NAME",
	"TG_BOT_TOKEN",
	"TG_CHAT_ID",
	"REPO_TOKEN",
	"GITHUB_REPOSITORY",
}

// isolateConfigEnv saves and unsets all config env vars so tests don't
// inherit values from the host environment (e.g. a CI runner with secrets).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PANELKEEPER_MODE", "LOGIN")
	t.Setenv("PANELKEEPER_ACCOUNTS", "a----b----c")
	t.Setenv("PANELKEEPER_OUTPUT_DIR", "/tmp/out")
	t.Setenv("PANELKEEPER_NAV_TIMEOUT", "90s")
	t.Setenv("PANELKEEPER_HEADLESS", "false")
	t.Setenv("PANELKEEPER_LOG_LEVEL", "debug")
	t.Setenv("PANELKEEPER_LOG_FORMAT", "json")
	t.Setenv("PANELKEEPER_JOURNAL", "off")
	t.Setenv("TG_BOT_TOKEN", "123:abc")
	t.Setenv("TG_CHAT_ID", "42")
	t.Setenv("REPO_TOKEN", "ghp_test123")
	t.Setenv("GITHUB_REPOSITORY", "octo/keeper")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, model.AuthModeLogin, cfg.Mode)
	assert.Equal(t, "a----b----c", cfg.Accounts)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, filepath.Join("/tmp/out", "metrics.prom"), cfg.MetricsFile)
	assert.Equal(t, 90*time.Second, cfg.NavTimeout)
	assert.False(t, cfg.Headless)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.JournalEnabled())
	assert.True(t, cfg.HasTelegram())
	assert.True(t, cfg.HasSecretStore())
	assert.NoError(t, cfg.RequireCredentials())
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, model.AuthModeCookie, cfg.Mode)
	assert.Equal(t, DefaultProfile, cfg.Profile)
	assert.Equal(t, filepath.Join("output", "screenshots"), cfg.OutputDir)
	assert.Equal(t, filepath.Join("output", "screenshots", "journal.db"), cfg.JournalPath)
	assert.True(t, cfg.JournalEnabled())
	assert.Equal(t, 60*time.Second, cfg.NavTimeout)
	assert.True(t, cfg.Headless)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "PANEL_BYTTE_COOKIES", cfg.SecretName)
	assert.False(t, cfg.HasTelegram())
	assert.False(t, cfg.HasSecretStore())
}

// TestLoad_MissingCredentials verifies that absent credentials do not fail
// Load, so the caller can still report the problem.
func TestLoad_MissingCredentials(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	err = cfg.RequireCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PANELKEEPER_COOKIES")

	cfg.Mode = model.AuthModeLogin
	err = cfg.RequireCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PANELKEEPER_ACCOUNTS")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: "PANELKEEPER_MODE", value: "sso"},
		{key: "PANELKEEPER_NAV_TIMEOUT", value: "soon"},
		{key: "PANELKEEPER_NAV_TIMEOUT", value: "-1s"},
		{key: "PANELKEEPER_HEADLESS", value: "maybe"},
		{key: "PANELKEEPER_LOG_LEVEL", value: "loud"},
		{key: "PANELKEEPER_LOG_FORMAT", value: "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoadTelegram_SurvivesInvalidConfig(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PANELKEEPER_MODE", "bogus")
	t.Setenv("TG_BOT_TOKEN", " 123:abc ")
	t.Setenv("TG_CHAT_ID", "42")

	_, err := Load()
	require.Error(t, err)

	bot, chat := LoadTelegram()
	assert.Equal(t, "123:abc", bot)
	assert.Equal(t, "42", chat)
}
