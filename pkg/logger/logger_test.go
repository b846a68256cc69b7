package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/andresuchdata/velorize/backend-go/internal/config"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := out
	out = &buf
	t.Cleanup(func() {
		out = prev
		install(newLogger(config.LogConfig{Level: "info"}, ""))
	})
	return &buf
}

func TestConfigureJSON(t *testing.T) {
	buf := captureOutput(t)
	Configure(config.LogConfig{Level: "debug", Format: "json"}, "velorize-api")

	Log.Debug().Str("pipeline", "forecast").Msg("prepared batch")

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("output is not one JSON line: %v (%q)", err, buf.String())
	}
	if entry["level"] != "debug" || entry["service"] != "velorize-api" || entry["pipeline"] != "forecast" {
		t.Errorf("entry = %v", entry)
	}
}

func TestConfigureLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{"warn", "warn", zerolog.WarnLevel},
		{"upper case", "ERROR", zerolog.ErrorLevel},
		{"empty", "", zerolog.InfoLevel},
		{"unknown", "loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureOutput(t)
			Configure(config.LogConfig{Level: tt.level, Format: "json"}, "")
			if got := Log.GetLevel(); got != tt.want {
				t.Errorf("level = %s, want %s", got, tt.want)
			}
			if zerolog.GlobalLevel() != tt.want {
				t.Errorf("global level = %s, want %s", zerolog.GlobalLevel(), tt.want)
			}
		})
	}
}

func TestConfigureConsoleSkipsDebug(t *testing.T) {
	buf := captureOutput(t)
	Configure(config.LogConfig{Level: "info", Format: "console"}, "")

	Log.Debug().Msg("hidden")
	Log.Info().Msg("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q", buf.String())
	}
}
