package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sha1n/newsdex/internal/dedup"
	"github.com/sha1n/newsdex/internal/domain"
	"github.com/sha1n/newsdex/internal/metrics"
	"github.com/sha1n/newsdex/internal/search"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultParallelism bounds concurrent seed crawls and feed fetches.
	DefaultParallelism = 4

	// DefaultInterval is the delay between the end of one crawl run and the start of the next.
	DefaultInterval = time.Minute

	sourceCrawl = "crawl"
	sourceFeed  = "feed"
)

// ContentSource returns candidate documents for a query.
type ContentSource interface {
	Name() string
	FetchByQuery(ctx context.Context, query string) []domain.Document
}

// FeedFetcher returns the items of a syndication feed.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, feedURL string) []domain.Document
}

// PageCrawler fetches a single page, reporting false when it was skipped or failed.
type PageCrawler interface {
	Crawl(ctx context.Context, rawURL string) (domain.Document, bool)
}

// DocumentWriter persists documents keyed by URL.
type DocumentWriter interface {
	Upsert(doc domain.Document) error
}

// ResultCache holds provider results per raw query.
type ResultCache interface {
	Get(query string) ([]domain.Document, bool)
	Put(query string, docs []domain.Document)
}

// QueryEngine ranks indexed documents.
type QueryEngine interface {
	Search(ctx context.Context, req search.Request) (*domain.SearchResponse, error)
}

// Config holds the crawl schedule and its inputs.
type Config struct {
	Seeds       []string
	Feeds       []string
	Parallelism int
	Interval    time.Duration
}

// Deps are the collaborators a Service wires together. Source, Feeds and
// Crawler may be nil to disable that input.
type Deps struct {
	Cache   ResultCache
	Guard   *dedup.URLSet
	Source  ContentSource
	Feeds   FeedFetcher
	Crawler PageCrawler
	Writer  DocumentWriter
	Engine  QueryEngine
}

// RunReport summarizes one crawl-and-ingest run.
type RunReport struct {
	Crawled int
	Skipped int
	Indexed int
	Failed  int
}

func (r *RunReport) add(o RunReport) {
	r.Crawled += o.Crawled
	r.Skipped += o.Skipped
	r.Indexed += o.Indexed
	r.Failed += o.Failed
}

// Service routes searches through the cache, ingestion and ranking stages,
// and drives scheduled crawling.
type Service struct {
	cfg    Config
	deps   Deps
	flight singleflight.Group
}

// New creates a service.
func New(cfg Config, deps Deps) (*Service, error) {
	if deps.Cache == nil || deps.Guard == nil || deps.Writer == nil || deps.Engine == nil {
		return nil, errors.New("cache, guard, writer and engine are required")
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Service{cfg: cfg, deps: deps}, nil
}

// Search ingests fresh provider results for the query, then ranks the index.
// Ingestion is best effort; only the ranking error reaches the caller.
func (s *Service) Search(ctx context.Context, req search.Request) (*domain.SearchResponse, error) {
	if s.deps.Source != nil && strings.TrimSpace(req.Query) != "" {
		docs := s.candidates(ctx, req.Query)
		s.ingest(docs, s.deps.Source.Name())
	}
	return s.deps.Engine.Search(ctx, req)
}

// candidates returns cached provider results or fetches them once per concurrent miss.
func (s *Service) candidates(ctx context.Context, query string) []domain.Document {
	if docs, ok := s.deps.Cache.Get(query); ok {
		return docs
	}

	v, _, _ := s.flight.Do(query, func() (any, error) {
		// A fetch that finished between the miss above and this call already filled the cache
		if docs, ok := s.deps.Cache.Get(query); ok {
			return docs, nil
		}
		docs := s.deps.Source.FetchByQuery(context.WithoutCancel(ctx), query)
		s.deps.Cache.Put(query, docs)
		return docs, nil
	})
	return v.([]domain.Document)
}

// ingest writes documents the guard has not seen, marking each one after a successful write.
func (s *Service) ingest(docs []domain.Document, source string) RunReport {
	var report RunReport
	for _, doc := range docs {
		if s.deps.Guard.Contains(doc.URL) {
			report.Skipped++
			metrics.RecordIngest(source, metrics.OutcomeSkipped)
			continue
		}

		if err := s.deps.Writer.Upsert(doc); err != nil {
			slog.Warn("Failed to index document", "source", source, "url", doc.URL, "error", err)
			report.Failed++
			metrics.RecordIngest(source, metrics.OutcomeFailed)
			continue
		}

		s.deps.Guard.Add(doc.URL)
		report.Indexed++
		metrics.RecordIngest(source, metrics.OutcomeOK)
	}
	return report
}

// CrawlAndIngest crawls every seed and ingests every configured feed.
func (s *Service) CrawlAndIngest(ctx context.Context) RunReport {
	var (
		mu     sync.Mutex
		report RunReport
	)
	merge := func(r RunReport) {
		mu.Lock()
		report.add(r)
		mu.Unlock()
	}

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Parallelism)

	if s.deps.Crawler != nil {
		for _, seed := range s.cfg.Seeds {
			g.Go(func() error {
				defer recoverTask("crawl", seed, merge)
				merge(s.crawlOne(ctx, seed))
				return nil
			})
		}
	}

	if s.deps.Feeds != nil {
		for _, feedURL := range s.cfg.Feeds {
			g.Go(func() error {
				defer recoverTask("feed", feedURL, merge)
				docs := s.deps.Feeds.FetchFeed(ctx, feedURL)
				merge(s.ingest(docs, sourceFeed))
				return nil
			})
		}
	}

	_ = g.Wait()
	return report
}

// recoverTask turns a panicking crawl or feed task into a failed item.
func recoverTask(kind, target string, merge func(RunReport)) {
	if r := recover(); r != nil {
		slog.Error("Ingest task panicked", "kind", kind, "target", target, "panic", r)
		merge(RunReport{Failed: 1})
	}
}

func (s *Service) crawlOne(ctx context.Context, seed string) RunReport {
	doc, ok := s.deps.Crawler.Crawl(ctx, seed)
	if !ok {
		return RunReport{Skipped: 1}
	}

	if err := s.deps.Writer.Upsert(doc); err != nil {
		slog.Warn("Failed to index crawled page", "url", seed, "error", err)
		metrics.RecordIngest(sourceCrawl, metrics.OutcomeFailed)
		return RunReport{Crawled: 1, Failed: 1}
	}

	metrics.RecordIngest(sourceCrawl, metrics.OutcomeOK)
	return RunReport{Crawled: 1, Indexed: 1}
}

// RunScheduler runs CrawlAndIngest immediately and then again Interval after
// each run finishes, until ctx is cancelled.
func (s *Service) RunScheduler(ctx context.Context) {
	slog.Info("Crawl scheduler started", "interval", s.cfg.Interval, "seeds", len(s.cfg.Seeds), "feeds", len(s.cfg.Feeds))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Crawl scheduler stopped")
			return
		case <-timer.C:
		}

		if err := s.runOnce(ctx); err != nil {
			slog.Error("Crawl run failed", "error", err)
		}
		timer.Reset(s.cfg.Interval)
	}
}

func (s *Service) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("crawl run panicked: %v", r)
		}
	}()

	started := time.Now()
	report := s.CrawlAndIngest(ctx)
	slog.Info("Crawl run complete",
		"crawled", report.Crawled,
		"skipped", report.Skipped,
		"indexed", report.Indexed,
		"failed", report.Failed,
		"duration", time.Since(started))
	return nil
}
