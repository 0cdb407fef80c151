package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent identifies the tool to Reddit. Reddit rejects generic agents.
const DefaultUserAgent = "snooper json output v1.0"

// Config holds all configuration options for snooper
type Config struct {
	// Reddit credentials and endpoints
	Reddit RedditConfig `yaml:"reddit" json:"reddit"`

	// Report generation settings
	Report ReportConfig `yaml:"report" json:"report"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry configuration
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// RedditConfig holds Reddit-specific configuration
type RedditConfig struct {
	Username     string        `yaml:"username" json:"username"`
	Password     string        `yaml:"password" json:"password"`
	ClientID     string        `yaml:"client_id" json:"client_id"`
	ClientSecret string        `yaml:"client_secret" json:"client_secret"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	AuthURL      string        `yaml:"auth_url" json:"auth_url"`
	APIURL       string        `yaml:"api_url" json:"api_url"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// ReportConfig holds report generation settings
type ReportConfig struct {
	// Limit bounds the number of items fetched per content type
	Limit int `yaml:"limit" json:"limit"`
	// Output is the report path; empty means stdout
	Output string `yaml:"output" json:"output"`
	// Timezone used for hour/day bucketing; "Local" or an IANA name
	Timezone string `yaml:"timezone" json:"timezone"`
	// LanguageSample is how many top comments feed language detection
	LanguageSample int  `yaml:"language_sample" json:"language_sample"`
	Summary        bool `yaml:"summary" json:"summary"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int  `yaml:"requests_per_minute" json:"requests_per_minute"`
	RespectHeaders    bool `yaml:"respect_headers" json:"respect_headers"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	Enabled        bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" json:"multiplier"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Reddit: RedditConfig{
			UserAgent: DefaultUserAgent,
			AuthURL:   "https://www.reddit.com",
			APIURL:    "https://oauth.reddit.com",
			Timeout:   30 * time.Second,
		},
		Report: ReportConfig{
			Limit:          1000,
			Timezone:       "Local",
			LanguageSample: 5,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			RespectHeaders:    true,
		},
		Retry: RetryConfig{
			Enabled:        true,
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Reddit credentials
	if v := os.Getenv("SNOOPER_USERNAME"); v != "" {
		c.Reddit.Username = v
	}
	if v := os.Getenv("SNOOPER_PASSWORD"); v != "" {
		c.Reddit.Password = v
	}
	if v := os.Getenv("SNOOPER_CLIENT_ID"); v != "" {
		c.Reddit.ClientID = v
	}
	if v := os.Getenv("SNOOPER_CLIENT_SECRET"); v != "" {
		c.Reddit.ClientSecret = v
	}
	if v := os.Getenv("SNOOPER_USER_AGENT"); v != "" {
		c.Reddit.UserAgent = v
	}

	// Report
	if v := os.Getenv("SNOOPER_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SNOOPER_LIMIT: %w", err)
		}
		c.Report.Limit = n
	}
	if v := os.Getenv("SNOOPER_OUTPUT"); v != "" {
		c.Report.Output = v
	}
	if v := os.Getenv("SNOOPER_TIMEZONE"); v != "" {
		c.Report.Timezone = v
	}

	// Rate limiting
	if v := os.Getenv("SNOOPER_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SNOOPER_REQUESTS_PER_MINUTE: %w", err)
		}
		c.RateLimit.RequestsPerMinute = n
	}

	// Logging
	if v := os.Getenv("SNOOPER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SNOOPER_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in the standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".snooper.yaml",
		".snooper.yml",
		filepath.Join(home, ".config", "snooper", "config.yaml"),
		filepath.Join(home, ".config", "snooper", "config.yml"),
		filepath.Join(home, ".snooper.yaml"),
		filepath.Join(home, ".snooper.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks ranges and enumerations. Credentials are checked by
// ValidateCredentials.
func (c *Config) Validate() error {
	var errs []error

	if c.Report.Limit < 1 {
		errs = append(errs, errors.New("limit must be at least 1"))
	}
	if c.Report.LanguageSample < 1 || c.Report.LanguageSample > 100 {
		errs = append(errs, errors.New("language sample must be between 1 and 100"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Report.Timezone, err))
	}

	if c.RateLimit.RequestsPerMinute < 1 || c.RateLimit.RequestsPerMinute > 600 {
		errs = append(errs, errors.New("requests per minute must be between 1 and 600"))
	}

	if c.Retry.MaxAttempts < 0 || c.Retry.MaxAttempts > 10 {
		errs = append(errs, errors.New("retry max attempts must be between 0 and 10"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	if c.Reddit.Timeout <= 0 {
		errs = append(errs, errors.New("reddit timeout must be positive"))
	}
	if c.Reddit.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ValidateCredentials checks that all four Reddit credentials are present
func (c *Config) ValidateCredentials() error {
	var missing []string
	if c.Reddit.Username == "" {
		missing = append(missing, "username")
	}
	if c.Reddit.Password == "" {
		missing = append(missing, "password")
	}
	if c.Reddit.ClientID == "" {
		missing = append(missing, "client id")
	}
	if c.Reddit.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing Reddit credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Location resolves the configured timezone
func (c *Config) Location() (*time.Location, error) {
	switch c.Report.Timezone {
	case "", "Local", "local":
		return time.Local, nil
	}
	return time.LoadLocation(c.Report.Timezone)
}

// Masked returns a copy with password and client secret hidden
func (c *Config) Masked() *Config {
	out := *c
	out.Reddit.Password = mask(c.Reddit.Password)
	out.Reddit.ClientSecret = mask(c.Reddit.ClientSecret)
	return &out
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) > 8:
		return s[:2] + "..." + s[len(s)-2:]
	default:
		return "***"
	}
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map override; zero values are ignored.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["username"].(string); ok && v != "" {
		c.Reddit.Username = v
	}
	if v, ok := flags["password"].(string); ok && v != "" {
		c.Reddit.Password = v
	}
	if v, ok := flags["client-id"].(string); ok && v != "" {
		c.Reddit.ClientID = v
	}
	if v, ok := flags["secret"].(string); ok && v != "" {
		c.Reddit.ClientSecret = v
	}
	if v, ok := flags["limit"].(int); ok {
		c.Report.Limit = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Report.Output = v
	}
	if v, ok := flags["timezone"].(string); ok && v != "" {
		c.Report.Timezone = v
	}
	if v, ok := flags["language-sample"].(int); ok {
		c.Report.LanguageSample = v
	}
	if v, ok := flags["summary"].(bool); ok {
		c.Report.Summary = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are not an error
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".snooper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
