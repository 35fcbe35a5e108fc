package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{name: "debug", input: "debug", want: slog.LevelDebug},
		{name: "大文字と空白を許容", input: " WARN ", want: slog.LevelWarn},
		{name: "warning 表記", input: "warning", want: slog.LevelWarn},
		{name: "error", input: "error", want: slog.LevelError},
		{name: "未知の値は info", input: "verbose", want: slog.LevelInfo},
		{name: "空文字は info", input: "", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestConfigFrom(t *testing.T) {
	assert.Equal(t, Config{Level: slog.LevelDebug, Format: "text"}, ConfigFrom("debug", "TEXT"))
	assert.Equal(t, Config{Level: slog.LevelInfo, Format: "json"}, ConfigFrom("", "yaml"))
}
