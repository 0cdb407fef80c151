package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Report.Limit != 1000 {
		t.Errorf("Expected default limit to be 1000, got %d", config.Report.Limit)
	}

	if config.Report.Output != "" {
		t.Errorf("Expected default output to be stdout, got %s", config.Report.Output)
	}

	if config.Reddit.UserAgent != DefaultUserAgent {
		t.Errorf("Expected default user agent %q, got %q", DefaultUserAgent, config.Reddit.UserAgent)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SNOOPER_USERNAME", "env-user")
	t.Setenv("SNOOPER_PASSWORD", "env-pass")
	t.Setenv("SNOOPER_CLIENT_ID", "env-id")
	t.Setenv("SNOOPER_CLIENT_SECRET", "env-secret")
	t.Setenv("SNOOPER_LIMIT", "250")
	t.Setenv("SNOOPER_OUTPUT", "/tmp/report.json")
	t.Setenv("SNOOPER_TIMEZONE", "UTC")
	t.Setenv("SNOOPER_REQUESTS_PER_MINUTE", "30")
	t.Setenv("SNOOPER_LOG_LEVEL", "debug")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Reddit.Username != "env-user" || config.Reddit.Password != "env-pass" {
		t.Errorf("Expected env credentials, got %s/%s", config.Reddit.Username, config.Reddit.Password)
	}
	if config.Reddit.ClientID != "env-id" || config.Reddit.ClientSecret != "env-secret" {
		t.Errorf("Expected env client credentials, got %s/%s", config.Reddit.ClientID, config.Reddit.ClientSecret)
	}
	if config.Report.Limit != 250 {
		t.Errorf("Expected limit to be 250, got %d", config.Report.Limit)
	}
	if config.Report.Output != "/tmp/report.json" {
		t.Errorf("Expected output to be /tmp/report.json, got %s", config.Report.Output)
	}
	if config.Report.Timezone != "UTC" {
		t.Errorf("Expected timezone UTC, got %s", config.Report.Timezone)
	}
	if config.RateLimit.RequestsPerMinute != 30 {
		t.Errorf("Expected requests per minute to be 30, got %d", config.RateLimit.RequestsPerMinute)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level to be debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("SNOOPER_LIMIT", "lots")

	if err := DefaultConfig().LoadFromEnv(); err == nil {
		t.Error("Expected error for non-numeric SNOOPER_LIMIT")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{name: "defaults", mutate: func(c *Config) {}, wantError: false},
		{name: "zero limit", mutate: func(c *Config) { c.Report.Limit = 0 }, wantError: true},
		{name: "negative limit", mutate: func(c *Config) { c.Report.Limit = -5 }, wantError: true},
		{name: "unknown timezone", mutate: func(c *Config) { c.Report.Timezone = "Mars/Olympus" }, wantError: true},
		{name: "named timezone", mutate: func(c *Config) { c.Report.Timezone = "UTC" }, wantError: false},
		{name: "rate too high", mutate: func(c *Config) { c.RateLimit.RequestsPerMinute = 1000 }, wantError: true},
		{name: "too many retries", mutate: func(c *Config) { c.Retry.MaxAttempts = 11 }, wantError: true},
		{name: "invalid log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantError: true},
		{name: "invalid log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantError: true},
		{name: "empty user agent", mutate: func(c *Config) { c.Reddit.UserAgent = "" }, wantError: true},
		{name: "sample out of range", mutate: func(c *Config) { c.Report.LanguageSample = 0 }, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	config := DefaultConfig()
	config.Reddit.Username = "someone"

	err := config.ValidateCredentials()
	if err == nil {
		t.Fatal("Expected missing credentials error")
	}
	for _, want := range []string{"password", "client id", "client secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %q, got %v", want, err)
		}
	}

	config.Reddit.Password = "p"
	config.Reddit.ClientID = "id"
	config.Reddit.ClientSecret = "s"
	if err := config.ValidateCredentials(); err != nil {
		t.Errorf("Expected complete credentials to validate, got %v", err)
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	flags := map[string]interface{}{
		"username":        "flag-user",
		"password":        "flag-pass",
		"client-id":       "flag-id",
		"secret":          "flag-secret",
		"limit":           42,
		"output":          "/flag/out.json",
		"timezone":        "Asia/Tokyo",
		"language-sample": 3,
		"summary":         true,
		"log-level":       "error",
	}

	config.MergeCommandLineFlags(flags)

	if config.Reddit.Username != "flag-user" || config.Reddit.Password != "flag-pass" {
		t.Errorf("Expected flag credentials, got %s/%s", config.Reddit.Username, config.Reddit.Password)
	}
	if config.Reddit.ClientID != "flag-id" || config.Reddit.ClientSecret != "flag-secret" {
		t.Errorf("Expected flag client credentials, got %s/%s", config.Reddit.ClientID, config.Reddit.ClientSecret)
	}
	if config.Report.Limit != 42 {
		t.Errorf("Expected limit 42, got %d", config.Report.Limit)
	}
	if config.Report.Output != "/flag/out.json" {
		t.Errorf("Expected output /flag/out.json, got %s", config.Report.Output)
	}
	if config.Report.Timezone != "Asia/Tokyo" {
		t.Errorf("Expected timezone Asia/Tokyo, got %s", config.Report.Timezone)
	}
	if config.Report.LanguageSample != 3 || !config.Report.Summary {
		t.Errorf("Expected sample 3 and summary on, got %d/%v", config.Report.LanguageSample, config.Report.Summary)
	}
	if config.Logging.Level != "error" {
		t.Errorf("Expected log level to be error, got %s", config.Logging.Level)
	}
}

func TestSaveAndLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "snooper.yaml")

	config := DefaultConfig()
	config.Reddit.Username = "save-user"
	config.Report.Limit = 300
	config.Retry.MaxBackoff = 45 * time.Second

	if err := config.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Expected config file to exist: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected config file mode 0600, got %v", info.Mode().Perm())
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Reddit.Username != "save-user" {
		t.Errorf("Expected username save-user, got %s", loaded.Reddit.Username)
	}
	if loaded.Report.Limit != 300 {
		t.Errorf("Expected limit 300, got %d", loaded.Report.Limit)
	}
	if loaded.Retry.MaxBackoff != 45*time.Second {
		t.Errorf("Expected max backoff 45s, got %v", loaded.Retry.MaxBackoff)
	}
}

func TestLoadPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "snooper.yaml")
	content := "report:\n  limit: 10\n  timezone: UTC\nlogging:\n  level: warn\n"
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("SNOOPER_LIMIT", "20")

	config, err := Load(configPath, map[string]interface{}{"limit": 30})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.Report.Limit != 30 {
		t.Errorf("Expected flag to win with limit 30, got %d", config.Report.Limit)
	}
	if config.Report.Timezone != "UTC" {
		t.Errorf("Expected timezone from file, got %s", config.Report.Timezone)
	}
	if config.Logging.Level != "warn" {
		t.Errorf("Expected log level from file, got %s", config.Logging.Level)
	}
}

func TestMasked(t *testing.T) {
	config := DefaultConfig()
	config.Reddit.Password = "hunter2"
	config.Reddit.ClientSecret = "abcdefghijklmnop"

	masked := config.Masked()

	if masked.Reddit.Password != "***" {
		t.Errorf("Expected short password to be fully masked, got %s", masked.Reddit.Password)
	}
	if masked.Reddit.ClientSecret != "ab...op" {
		t.Errorf("Expected secret to be partially masked, got %s", masked.Reddit.ClientSecret)
	}
	if config.Reddit.Password != "hunter2" {
		t.Error("Masked must not modify the original config")
	}
}
