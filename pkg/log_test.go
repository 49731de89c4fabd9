package pkg

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// captureLogs redirects DefaultLogger into a buffer at debug level for the
// duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := DefaultLogger
	level := GetLogLevel()
	t.Cleanup(func() {
		SetLogger(original)
		SetLogLevel(level)
	})
	SetLogLevel(slog.LevelDebug)
	SetLogger(NewLogger(&buf, nil))
	return &buf
}

func TestSetLogLevel(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	tests := []struct {
		name  string
		level slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLogLevel(tt.level)
			if got := GetLogLevel(); got != tt.level {
				t.Errorf("GetLogLevel() = %v, want %v", got, tt.level)
			}
		})
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger.Info("test message")
	if !strings.Contains(buf.String(), `"msg":"test message"`) {
		t.Errorf("JSON log output missing message: %s", buf.String())
	}
}

func TestLogComponents(t *testing.T) {
	tests := []struct {
		name      string
		log       func(Component, string, ...any)
		component Component
		level     string
	}{
		{"debug", LogDebug, ComponentClass, "DEBUG"},
		{"info", LogInfo, ComponentHost, "INFO"},
		{"warn", LogWarn, ComponentStack, "WARN"},
		{"error", LogError, ComponentHAL, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)
			tt.log(tt.component, tt.name+" message", "key", "value")

			output := buf.String()
			if !strings.Contains(output, tt.name+" message") {
				t.Errorf("log missing message: %s", output)
			}
			if !strings.Contains(output, "component="+string(tt.component)) {
				t.Errorf("log missing component: %s", output)
			}
			if !strings.Contains(output, "level="+tt.level) {
				t.Errorf("log missing level %s: %s", tt.level, output)
			}
			if !strings.Contains(output, "key=value") {
				t.Errorf("log missing attributes: %s", output)
			}
		})
	}
}

func TestLogLevelFilters(t *testing.T) {
	buf := captureLogs(t)
	SetLogLevel(slog.LevelWarn)

	LogDebug(ComponentDevice, "hidden")
	LogWarn(ComponentDevice, "shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("debug message logged at warn level: %s", output)
	}
	if !strings.Contains(output, "shown") {
		t.Errorf("warn message missing: %s", output)
	}
}
