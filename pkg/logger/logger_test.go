package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"snooper/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name:    "valid config with info level",
			cfg:     &config.LoggingConfig{Level: "info"},
			wantErr: false,
		},
		{
			name:    "valid config with debug level",
			cfg:     &config.LoggingConfig{Level: "debug"},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			cfg:     &config.LoggingConfig{Level: "invalid"},
			wantErr: true,
		},
		{
			name: "config with file output",
			cfg: &config.LoggingConfig{
				Level: "info",
				File:  filepath.Join(t.TempDir(), "logs", "snooper.log"),
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"off", zerolog.Disabled, false},
		{"fatal", zerolog.InfoLevel, true},
		{"invalid", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLogLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func newJSONLogger(t *testing.T, level string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: level, Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter() error = %v", err)
	}
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		entries = append(entries, m)
	}
	return entries
}

func TestJSONOutput(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")

	l.WithFields(map[string]interface{}{
		"target":  "spez",
		"fetched": 42,
		"elapsed": 1500 * time.Millisecond,
	}).Info("listing fetched")

	entries := decodeLines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e["message"] != "listing fetched" {
		t.Errorf("message = %v", e["message"])
	}
	if e["level"] != "info" {
		t.Errorf("level = %v", e["level"])
	}
	if e["app"] != "snooper" {
		t.Errorf("app = %v", e["app"])
	}
	if e["target"] != "spez" {
		t.Errorf("target = %v", e["target"])
	}
	if e["fetched"] != float64(42) {
		t.Errorf("fetched = %v", e["fetched"])
	}
	if _, ok := e["time"]; !ok {
		t.Error("missing time field")
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newJSONLogger(t, "warn")

	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	entries := decodeLines(t, buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %s", len(entries), buf.String())
	}
	if entries[0]["level"] != "warn" || entries[1]["level"] != "error" {
		t.Errorf("unexpected levels: %v, %v", entries[0]["level"], entries[1]["level"])
	}
}

func TestWithErrorAndDerivedLoggers(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	base := l.WithField("component", "reddit")
	base.WithError(errors.New("connection reset")).Error("request failed")
	base.Info("still here")

	if got := l.WithError(nil); got != l {
		t.Error("WithError(nil) should return the receiver")
	}

	entries := decodeLines(t, buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0]["error"] != "connection reset" {
		t.Errorf("error = %v", entries[0]["error"])
	}
	if _, ok := entries[1]["error"]; ok {
		t.Error("error field leaked into sibling logger")
	}
	for _, e := range entries {
		if e["component"] != "reddit" {
			t.Errorf("component = %v", e["component"])
		}
	}
}

func TestConsoleFormatHidesAppField(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "info", Format: "console"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter() error = %v", err)
	}

	l.WithField("target", "spez").Info("report written")

	out := buf.String()
	if !strings.Contains(out, "report written") {
		t.Errorf("console output missing message: %q", out)
	}
	if strings.Contains(out, "snooper") {
		t.Errorf("console output should not show the app field: %q", out)
	}
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snooper.log")
	var console bytes.Buffer

	l, err := NewWithWriter(&config.LoggingConfig{Level: "info", Format: "json", File: path}, &console)
	if err != nil {
		t.Fatalf("NewWithWriter() error = %v", err)
	}
	l.Info("to both")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"message":"to both"`) {
		t.Errorf("log file missing entry: %s", data)
	}
	if !strings.Contains(console.String(), "to both") {
		t.Errorf("console missing entry: %s", console.String())
	}
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "GET", "/user/spez/about", 200, 10*time.Millisecond)
	LogRequest(tl, "GET", "/user/nobody/about", 404, 10*time.Millisecond)
	LogRequest(tl, "GET", "/user/spez/comments", 503, 10*time.Millisecond)
	LogRateLimit(tl, "/user/spez/comments", 2*time.Second)
	LogFetchProgress(tl, "spez", "comments", 50, 200)

	if n := len(tl.GetMessagesByLevel("DEBUG")); n != 2 {
		t.Errorf("expected 2 debug messages, got %d", n)
	}
	if n := len(tl.GetMessagesByLevel("WARN")); n != 2 {
		t.Errorf("expected 2 warn messages, got %d", n)
	}
	if !tl.HasError() {
		t.Error("server error should be logged at error level")
	}

	progress := tl.GetMessages()[4]
	if progress.Fields["percentage"] != "25.0%" {
		t.Errorf("percentage = %v", progress.Fields["percentage"])
	}
}

func TestTestLoggerSharesRecorder(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("target", "spez").WithError(errors.New("boom"))
	child.Warn("derived")

	msgs := tl.GetMessages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Fields["target"] != "spez" || msgs[0].Error == nil {
		t.Errorf("unexpected message %+v", msgs[0])
	}
	if !tl.HasMessage("derived") {
		t.Error("HasMessage() = false")
	}

	tl.Clear()
	if len(tl.GetMessages()) != 0 {
		t.Error("Clear() left messages behind")
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.WithField("a", 1).WithError(errors.New("x")).Error("ignored")
	if l.Zerolog() != nil {
		t.Error("nop logger should not expose a zerolog logger")
	}
}

func TestGlobalLogger(t *testing.T) {
	tl := NewTestLogger()
	SetLogger(tl)
	defer SetLogger(nil)

	Info("global info")
	WithField("k", "v").Warn("global warn")

	if !tl.HasMessage("global info") || !tl.HasMessage("global warn") {
		t.Errorf("global helpers did not reach the test logger: %+v", tl.GetMessages())
	}
}
