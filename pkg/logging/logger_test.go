package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}

	if cfg.Pretty != false {
		t.Error("Expected default pretty to be false")
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	messages := map[LogLevel]string{
		LevelDebug: "fetching page",
		LevelInfo:  "download complete",
		LevelWarn:  "rate limit throttled",
		LevelError: "page fetch failed",
	}
	order := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}

	for i, level := range order {
		t.Run(string(level), func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: level, Output: buf})

			logger.Debug().Int("page", 2).Msg(messages[LevelDebug])
			logger.Info().Int("records", 10).Msg(messages[LevelInfo])
			logger.Warn().Str("scope", "api.example.com").Msg(messages[LevelWarn])
			logger.Error().Str("kind", "network_error").Msg(messages[LevelError])

			output := buf.String()
			for j, other := range order {
				shown := strings.Contains(output, messages[other])
				if j >= i && !shown {
					t.Errorf("%s message should be written at %s level", other, level)
				}
				if j < i && shown {
					t.Errorf("%s message should be filtered at %s level", other, level)
				}
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"warning", zerolog.WarnLevel},
		{"invalid", zerolog.InfoLevel}, // Should default to Info
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("paginator").With().Str("run_id", "run-1").Logger()
	logger.Info().Int("total_pages", 4).Msg("Starting page fetch")

	output := buf.String()
	for _, want := range []string{`"component":"paginator"`, `"run_id":"run-1"`, `"total_pages":4`, "Starting page fetch"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %s, got %q", want, output)
		}
	}
}

func TestParseLevelName(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"Warn", LevelWarn, false},
		{" error ", LevelError, false},
		{"critical", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseLevel(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLevel(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSetup_PrettyAndNilOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})
	logger.Info().Str("page", "3").Msg("page merged")

	if !strings.Contains(buf.String(), "page merged") {
		t.Errorf("Expected console output to contain message, got %q", buf.String())
	}

	// nil output falls back to stderr instead of panicking
	Setup(Config{Level: LevelError})
}
