package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "NEWSDEX"

// Transport type constants
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// IndexSettings configuration for the on-disk index
type IndexSettings struct {
	Path string `mapstructure:"path"`
}

// CrawlSettings configuration for the seed crawler and its schedule
type CrawlSettings struct {
	Enabled       bool          `mapstructure:"enabled"`
	Seeds         []string      `mapstructure:"seeds"`
	Interval      time.Duration `mapstructure:"interval"`
	HostInterval  time.Duration `mapstructure:"host_interval"`
	Parallelism   int           `mapstructure:"parallelism"`
	UserAgent     string        `mapstructure:"user_agent"`
	RobotsTimeout time.Duration `mapstructure:"robots_timeout"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
}

// NewsSettings configuration for the external news provider
type NewsSettings struct {
	APIKey   string        `mapstructure:"api_key"`
	Endpoint string        `mapstructure:"endpoint"`
	Language string        `mapstructure:"language"`
	PageSize int           `mapstructure:"page_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// FeedSettings configuration for syndication feeds
type FeedSettings struct {
	URLs []string `mapstructure:"urls"`
}

// CacheSettings configuration for the provider result cache
type CacheSettings struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// SearchSettings configuration for result paging
type SearchSettings struct {
	DefaultSize int `mapstructure:"default_size"`
	MaxSize     int `mapstructure:"max_size"`
}

// LogSettings configuration for the process logger
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Settings application settings
type Settings struct {
	Transport string         `mapstructure:"transport"`
	Host      string         `mapstructure:"host"`
	Port      int            `mapstructure:"port"`
	Auth      AuthSettings   `mapstructure:"auth"`
	Index     IndexSettings  `mapstructure:"index"`
	Crawl     CrawlSettings  `mapstructure:"crawl"`
	News      NewsSettings   `mapstructure:"news"`
	Feeds     FeedSettings   `mapstructure:"feeds"`
	Cache     CacheSettings  `mapstructure:"cache"`
	Search    SearchSettings `mapstructure:"search"`
	Log       LogSettings    `mapstructure:"log"`
}

// flagBindings maps config keys to CLI flag names.
var flagBindings = map[string]string{
	"transport":           "transport",
	"host":                "host",
	"port":                "port",
	"auth.type":           "auth-type",
	"auth.basic.username": "auth-basic-username",
	"auth.basic.password": "auth-basic-password",
	"auth.api_keys":       "auth-api-keys",
	"index.path":          "index-path",
	"crawl.enabled":       "crawl-enabled",
	"crawl.seeds":         "crawl-seeds",
	"crawl.interval":      "crawl-interval",
	"crawl.parallelism":   "crawl-parallelism",
	"news.api_key":        "news-api-key",
	"news.endpoint":       "news-endpoint",
	"feeds.urls":          "feed-urls",
	"cache.ttl":           "cache-ttl",
	"log.level":           "log-level",
	"log.format":          "log-format",
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	v.SetDefault("transport", TransportHTTP)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("auth.type", AuthTypeNone)

	v.SetDefault("index.path", defaultIndexPath())

	v.SetDefault("crawl.enabled", true)
	v.SetDefault("crawl.seeds", []string{"https://spring.io", "https://www.oracle.com/java/"})
	v.SetDefault("crawl.interval", time.Minute)
	v.SetDefault("crawl.host_interval", time.Second)
	v.SetDefault("crawl.parallelism", 4)
	v.SetDefault("crawl.user_agent", "NewsdexBot/1.0")
	v.SetDefault("crawl.robots_timeout", 5*time.Second)
	v.SetDefault("crawl.fetch_timeout", 10*time.Second)

	v.SetDefault("news.endpoint", "https://newsapi.org/v2/everything")
	v.SetDefault("news.language", "en")
	v.SetDefault("news.page_size", 10)
	v.SetDefault("news.timeout", 10*time.Second)

	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.max_entries", 1024)

	v.SetDefault("search.default_size", 5)
	v.SetDefault("search.max_size", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Environment variables: NEWSDEX_CRAWL_HOST_INTERVAL -> crawl.host_interval
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without a default are invisible to AutomaticEnv during Unmarshal
	for _, key := range []string{"auth.basic.username", "auth.basic.password", "auth.api_keys", "news.api_key", "feeds.urls"} {
		_ = v.BindEnv(key, envName(key))
	}

	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	settings.Auth.APIKeys = splitList(settings.Auth.APIKeys, "auth.api_keys")
	settings.Crawl.Seeds = splitList(settings.Crawl.Seeds, "crawl.seeds")
	settings.Feeds.URLs = splitList(settings.Feeds.URLs, "feeds.urls")

	settings.Index.Path = expandHomeDir(settings.Index.Path)
	settings.Log.Level = strings.ToLower(strings.TrimSpace(settings.Log.Level))
	settings.Log.Format = strings.ToLower(strings.TrimSpace(settings.Log.Format))

	return &settings, nil
}

// envName returns the environment variable bound to a config key.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// splitList re-splits a list that arrived from the environment as a single
// comma-separated string, then trims and drops empty items.
func splitList(values []string, key string) []string {
	if raw := os.Getenv(envName(key)); raw != "" {
		if len(values) == 0 || (len(values) == 1 && strings.Contains(values[0], ",")) {
			values = strings.Split(raw, ",")
		}
	}

	var result []string
	for _, s := range values {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}
	return result
}

// defaultIndexPath returns the default location of the index directory
func defaultIndexPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".newsdex", "index.bleve")
	}
	return filepath.Join(home, ".newsdex", "index.bleve")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete config.
func ValidateSettings(s *Settings) error {
	switch s.Transport {
	case TransportHTTP, TransportStdio:
		// valid
	default:
		return errors.New("transport must be 'http' or 'stdio', got: " + s.Transport)
	}

	if err := validateAuthSettings(&s.Auth); err != nil {
		return err
	}

	if s.Index.Path == "" {
		return errors.New("index-path cannot be empty")
	}

	if err := validateCrawlSettings(&s.Crawl); err != nil {
		return err
	}

	if s.News.APIKey != "" && !isHTTPURL(s.News.Endpoint) {
		return errors.New("news-endpoint must be absolute http(s): " + s.News.Endpoint)
	}
	if s.News.PageSize <= 0 {
		return errors.New("news.page_size must be positive")
	}
	if s.News.Timeout <= 0 {
		return errors.New("news.timeout must be positive")
	}

	for _, u := range s.Feeds.URLs {
		if !isHTTPURL(u) {
			return errors.New("feed URL must be absolute http(s): " + u)
		}
	}

	if s.Cache.TTL <= 0 {
		return errors.New("cache-ttl must be positive")
	}
	if s.Cache.MaxEntries <= 0 {
		return errors.New("cache.max_entries must be positive")
	}

	if s.Search.DefaultSize <= 0 || s.Search.MaxSize <= 0 {
		return errors.New("search sizes must be positive")
	}
	if s.Search.DefaultSize > s.Search.MaxSize {
		return errors.New("search.default_size cannot exceed search.max_size")
	}

	if _, err := ParseLogLevel(s.Log.Level); err != nil {
		return err
	}
	switch s.Log.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return errors.New("log-format must be 'text' or 'json', got: " + s.Log.Format)
	}

	return nil
}

func validateAuthSettings(a *AuthSettings) error {
	hasBasicCreds := a.Basic.Username != "" || a.Basic.Password != ""
	hasAPIKeys := len(a.APIKeys) > 0

	switch a.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if a.Basic.Username == "" || a.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + a.Type)
	}
	return nil
}

// validateCrawlSettings validates the crawl configuration
func validateCrawlSettings(c *CrawlSettings) error {
	if !c.Enabled {
		return nil
	}

	for _, seed := range c.Seeds {
		if !isHTTPURL(seed) {
			return errors.New("crawl seed must be absolute http(s): " + seed)
		}
	}
	if c.Interval <= 0 {
		return errors.New("crawl-interval must be positive")
	}
	if c.HostInterval < 0 {
		return errors.New("crawl.host_interval cannot be negative")
	}
	if c.Parallelism <= 0 {
		return errors.New("crawl-parallelism must be positive")
	}
	if c.RobotsTimeout <= 0 || c.FetchTimeout <= 0 {
		return errors.New("crawl timeouts must be positive")
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return errors.New("crawl.user_agent cannot be empty")
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
