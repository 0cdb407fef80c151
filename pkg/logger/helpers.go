package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs a completed Reddit API request at a level matching its status
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogRateLimit logs a rate limit back-off
func LogRateLimit(l Logger, endpoint string, wait time.Duration) {
	l.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"wait":     wait,
		"action":   "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogFetchProgress logs listing pagination progress
func LogFetchProgress(l Logger, target, listing string, fetched, limit int) {
	percentage := 0.0
	if limit > 0 {
		percentage = float64(fetched) / float64(limit) * 100
	}

	l.WithFields(map[string]interface{}{
		"target":     target,
		"listing":    listing,
		"fetched":    fetched,
		"limit":      limit,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Debug("Fetch progress")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	l = l.WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Debug("Component started")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (n nopLogger) Debug(string)                                      {}
func (n nopLogger) Info(string)                                       {}
func (n nopLogger) Warn(string)                                       {}
func (n nopLogger) Error(string)                                      {}
func (n nopLogger) WithField(string, interface{}) Logger              { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger          { return n }
func (n nopLogger) WithError(error) Logger                            { return n }
func (n nopLogger) WithContext(context.Context) Logger                { return n }
func (n nopLogger) DebugWithFields(string, map[string]interface{})    {}
func (n nopLogger) InfoWithFields(string, map[string]interface{})     {}
func (n nopLogger) WarnWithFields(string, map[string]interface{})     {}
func (n nopLogger) ErrorWithFields(string, map[string]interface{})    {}
func (n nopLogger) Zerolog() *zerolog.Logger                          { return nil }
