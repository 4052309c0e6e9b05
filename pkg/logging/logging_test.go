package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  LogLevel
	}{
		{"debug", "debug", LevelDebug},
		{"warn", "warn", LevelWarn},
		{"warning alias", "Warning", LevelWarn},
		{"error", "ERROR", LevelError},
		{"info", "info", LevelInfo},
		{"unknown defaults to info", "verbose", LevelInfo},
		{"empty defaults to info", "", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelWarn, &buf)

	Debug("Test", "debug message")
	Info("Test", "info message")
	Warn("Test", "warn message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
}

func TestErrorIncludesErrAttribute(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelInfo, &buf)

	Error("Test", errors.New("boom"), "operation failed for %s", "contact-7")

	output := buf.String()
	assert.Contains(t, output, "operation failed for contact-7")
	assert.Contains(t, output, "boom")
	assert.Contains(t, output, "subsystem=Test")
}

func TestFormattingOnlyWhenArgsGiven(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelInfo, &buf)

	msg := "literal %d percent"
	Info("Test", msg)

	// Without args the format string is logged verbatim.
	assert.True(t, strings.Contains(buf.String(), "literal %d percent"))
}
