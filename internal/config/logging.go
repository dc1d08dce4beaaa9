package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Log format constants
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// ParseLogLevel maps a level name to a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

// NewLogHandler builds the process log handler writing to w.
// Unknown levels fall back to info.
func NewLogHandler(s LogSettings, w io.Writer) slog.Handler {
	level, _ := ParseLogLevel(s.Level)
	opts := &slog.HandlerOptions{Level: level}
	if s.Format == LogFormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == TransportHTTP {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
	}

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Auth.Type)
	switch s.Auth.Type {
	case AuthTypeBasic:
		logger.InfoContext(ctx, "Config: auth.basic.username", "value", s.Auth.Basic.Username)
		logger.InfoContext(ctx, "Config: auth.basic.password", "value", "****")
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
	}

	logger.InfoContext(ctx, "Config: index.path", "value", s.Index.Path)

	logger.InfoContext(ctx, "Config: crawl.enabled", "value", s.Crawl.Enabled)
	if s.Crawl.Enabled {
		logger.InfoContext(ctx, "Config: crawl.seeds", "value", s.Crawl.Seeds)
		logger.InfoContext(ctx, "Config: crawl.interval", "value", s.Crawl.Interval)
		logger.InfoContext(ctx, "Config: crawl.parallelism", "value", s.Crawl.Parallelism)
		logger.InfoContext(ctx, "Config: crawl.user_agent", "value", s.Crawl.UserAgent)
	}

	if s.News.APIKey != "" {
		logger.InfoContext(ctx, "Config: news.endpoint", "value", s.News.Endpoint)
		logger.InfoContext(ctx, "Config: news.api_key", "value", "****")
	} else {
		logger.InfoContext(ctx, "Config: news provider disabled", "reason", "no api key")
	}

	if len(s.Feeds.URLs) > 0 {
		logger.InfoContext(ctx, "Config: feeds.urls", "count", len(s.Feeds.URLs))
	}
	logger.InfoContext(ctx, "Config: cache.ttl", "value", s.Cache.TTL)
	logger.InfoContext(ctx, "Config: log.level", "value", s.Log.Level)
	logger.DebugContext(ctx, "Config: resolved", "settings", s)
}

// LogValue implements slog.LogValuer, masking credentials
func (s AuthSettings) LogValue() slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = "****"
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.Any("basic", s.Basic),
		slog.Any("api_keys", keys),
	)
}

// LogValue implements slog.LogValuer, masking the password
func (s BasicAuthSettings) LogValue() slog.Value {
	password := ""
	if s.Password != "" {
		password = "****"
	}
	return slog.GroupValue(
		slog.String("username", s.Username),
		slog.String("password", password),
	)
}

// LogValue implements slog.LogValuer, masking the provider key
func (s NewsSettings) LogValue() slog.Value {
	key := ""
	if s.APIKey != "" {
		key = "****"
	}
	return slog.GroupValue(
		slog.String("endpoint", s.Endpoint),
		slog.String("api_key", key),
		slog.String("language", s.Language),
		slog.Int("page_size", s.PageSize),
	)
}

// LogValue implements slog.LogValuer so a whole Settings value can be logged safely
func (s Settings) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.Any("auth", s.Auth),
		slog.String("index_path", s.Index.Path),
		slog.Any("news", s.News),
	)
}
