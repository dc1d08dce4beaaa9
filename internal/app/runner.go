package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/newsdex/internal/cache"
	"github.com/sha1n/newsdex/internal/config"
	"github.com/sha1n/newsdex/internal/crawler"
	"github.com/sha1n/newsdex/internal/dedup"
	"github.com/sha1n/newsdex/internal/index"
	mcputil "github.com/sha1n/newsdex/internal/mcp"
	"github.com/sha1n/newsdex/internal/news"
	"github.com/sha1n/newsdex/internal/search"
	"github.com/sha1n/newsdex/internal/service"
	"github.com/spf13/pflag"
)

// Components are the long-lived objects built from settings.
type Components struct {
	MCP     *mcp.Server
	Service *service.Service
}

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	BuildComponents   func(*config.Settings, string) (*Components, func(), error)
	StartHTTPServer   func(context.Context, *Components, *config.Settings) error
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
	LogOutput         io.Writer     // Optional: defaults to stderr
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:    config.LoadSettingsWithFlags,
		ValidSettings:   config.ValidateSettings,
		BuildComponents: BuildComponents,
		StartHTTPServer: StartHTTPServer,
	}
}

// RunWithDeps executes the server with the provided dependencies until ctx is cancelled
// or the transport fails.
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Always log to stderr; stdout carries the stdio transport
	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	slog.SetDefault(slog.New(config.NewLogHandler(settings.Log, out)))

	slog.Info("Starting newsdex", "version", version)
	config.Log(settings)

	components, cleanup, err := params.BuildComponents(settings, version)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if settings.Crawl.Enabled && components.Service != nil {
		done := make(chan struct{})
		go func() {
			defer close(done)
			components.Service.RunScheduler(ctx)
		}()
		// The scheduler must stop before cleanup closes the index
		defer func() {
			cancel()
			<-done
		}()
	}

	if settings.Transport == config.TransportStdio {
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return components.MCP.Run(ctx, transport)
	}

	slog.Info("Starting HTTP server", "host", settings.Host, "port", settings.Port)
	return params.StartHTTPServer(ctx, components, settings)
}

// BuildComponents opens the index and wires the crawl, ingest and search pipeline.
// The returned cleanup closes the index.
func BuildComponents(settings *config.Settings, version string) (*Components, func(), error) {
	store, err := index.Open(settings.Index.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close index", "error", err)
		}
	}

	queryCache, err := cache.NewQueryCache(settings.Cache.TTL, settings.Cache.MaxEntries)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	deps := service.Deps{
		Cache:  queryCache,
		Guard:  dedup.NewURLSet(),
		Writer: store,
		Engine: search.NewEngine(store, search.Options{
			DefaultSize: settings.Search.DefaultSize,
			MaxSize:     settings.Search.MaxSize,
		}),
	}

	if settings.News.APIKey != "" {
		deps.Source = news.NewNewsAPIClient(news.ClientConfig{
			Endpoint: settings.News.Endpoint,
			APIKey:   settings.News.APIKey,
			Language: settings.News.Language,
			PageSize: settings.News.PageSize,
			Timeout:  settings.News.Timeout,
		})
	}

	if settings.Crawl.Enabled {
		if len(settings.Feeds.URLs) > 0 {
			deps.Feeds = news.NewFeedSource(news.FeedConfig{
				UserAgent: settings.Crawl.UserAgent,
				Timeout:   settings.News.Timeout,
			})
		}
		deps.Crawler = crawler.NewCrawler(
			dedup.NewURLSet(),
			crawler.NewRobotsChecker(settings.Crawl.UserAgent, settings.Crawl.RobotsTimeout),
			crawler.Options{
				UserAgent:    settings.Crawl.UserAgent,
				FetchTimeout: settings.Crawl.FetchTimeout,
				HostInterval: settings.Crawl.HostInterval,
			},
		)
	}

	svc, err := service.New(service.Config{
		Seeds:       settings.Crawl.Seeds,
		Feeds:       settings.Feeds.URLs,
		Parallelism: settings.Crawl.Parallelism,
		Interval:    settings.Crawl.Interval,
	}, deps)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:    "newsdex",
		Version: version,
		Search:  svc,
	})

	return &Components{MCP: server, Service: svc}, cleanup, nil
}
