package config

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLog(t *testing.T) {
	// Just verify it doesn't panic
	Log(validSettings())
}

func TestLogWithLogger_StdioTransport(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.Transport = TransportStdio
	LogWithLogger(s, logger)

	output := buf.String()
	if !strings.Contains(output, "transport") {
		t.Error("Expected 'transport' in log output")
	}
	if strings.Contains(output, "Config: host") {
		t.Error("Expected no host in log output for stdio transport")
	}
}

func TestLogWithLogger_HTTPTransport(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogWithLogger(validSettings(), logger)

	output := buf.String()
	for _, want := range []string{"Config: host", "Config: port", "Config: index.path", "Config: crawl.seeds"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in log output", want)
		}
	}
}

func TestLogWithLogger_BasicAuth(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.Auth = AuthSettings{
		Type:  AuthTypeBasic,
		Basic: BasicAuthSettings{Username: "admin", Password: "secret"},
	}
	LogWithLogger(s, logger)

	output := buf.String()
	if !strings.Contains(output, "admin") {
		t.Error("Expected username in log output")
	}
	if !strings.Contains(output, "****") {
		t.Error("Expected masked password in log output")
	}
	if strings.Contains(output, "secret") {
		t.Error("Password should be masked, not shown in plain text")
	}
}

func TestLogWithLogger_APIKeyAuth(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.Auth = AuthSettings{Type: AuthTypeAPIKey, APIKeys: []string{"key1", "key2", "key3"}}
	LogWithLogger(s, logger)

	if output := buf.String(); !strings.Contains(output, "count=3") {
		t.Errorf("Expected 'count=3' in log output, got: %s", output)
	}
}

func TestLogWithLogger_NewsKeyMasked(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.News.APIKey = "super-secret-key"
	LogWithLogger(s, logger)

	output := buf.String()
	if strings.Contains(output, "super-secret-key") {
		t.Error("News API key should be masked")
	}
	if !strings.Contains(output, "news.endpoint") {
		t.Error("Expected news endpoint in log output")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogHandler(t *testing.T) {
	var buf bytes.Buffer

	jsonHandler := NewLogHandler(LogSettings{Level: "warn", Format: LogFormatJSON}, &buf)
	logger := slog.New(jsonHandler)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Error("Info record should be filtered at warn level")
	}
	if !strings.Contains(output, `"msg":"shown"`) {
		t.Errorf("Expected JSON output, got: %s", output)
	}

	textHandler := NewLogHandler(LogSettings{Level: "debug", Format: LogFormatText}, &buf)
	if !textHandler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug enabled for text handler")
	}
}

func TestSettingsLogValue_MasksSecrets(t *testing.T) {
	s := validSettings()
	s.Auth = AuthSettings{
		Type:    AuthTypeAPIKey,
		APIKeys: []string{"key-one", "key-two"},
		Basic:   BasicAuthSettings{Username: "admin", Password: "hunter2"},
	}
	s.News.APIKey = "news-secret"

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name  string
		value any
	}{
		{"settings", s},
		{"settings value", *s},
		{"auth", s.Auth},
		{"basic", s.Auth.Basic},
		{"news", s.News},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			logger.Info("settings", "value", tt.value)

			out := buf.String()
			for _, secret := range []string{"key-one", "key-two", "hunter2", "news-secret"} {
				if strings.Contains(out, secret) {
					t.Errorf("Expected %q to be masked, got %s", secret, out)
				}
			}
			if !strings.Contains(out, "****") {
				t.Errorf("Expected masked placeholder, got %s", out)
			}
		})
	}
}

func TestLogWithLogger_ResolvedSettingsAtDebug(t *testing.T) {
	s := validSettings()
	s.News.APIKey = "news-secret"

	var buf bytes.Buffer
	LogWithLogger(s, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	out := buf.String()
	if !strings.Contains(out, "Config: resolved") {
		t.Errorf("Expected resolved settings entry, got %s", out)
	}
	if strings.Contains(out, "news-secret") {
		t.Errorf("Expected news key to be masked, got %s", out)
	}
}
