package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/sha1n/newsdex/internal/domain"
	"github.com/sha1n/newsdex/internal/index"
	"github.com/sha1n/newsdex/internal/metrics"
)

const (
	// DefaultSize is the page size used when a request does not set one.
	DefaultSize = 5

	// MaxSize caps the page size.
	MaxSize = 100

	// MaxResultWindow caps how many top hits a single search may ask the index for.
	MaxResultWindow = 10000

	millisPerDay = 24 * millisPerHour
)

var (
	// ErrInvalidQuery indicates the query text could not be parsed.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrIndexUnavailable indicates the index failed to execute the query.
	ErrIndexUnavailable = errors.New("search temporarily unavailable")
)

// Request describes one query against the index.
type Request struct {
	Query  string
	Domain string
	// Days restricts results to the last N days when positive.
	Days int
	// Page is zero-based.
	Page int
	Size int
}

// Searcher is the index surface the engine needs.
type Searcher interface {
	SearchInContext(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error)
}

var _ Searcher = (*index.Store)(nil)

// Options configures an Engine.
type Options struct {
	DefaultSize int
	MaxSize     int
	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// Engine composes, executes and ranks queries.
type Engine struct {
	index       Searcher
	defaultSize int
	maxSize     int
	now         func() time.Time
}

// NewEngine creates an engine over idx.
func NewEngine(idx Searcher, opts Options) *Engine {
	if opts.DefaultSize <= 0 {
		opts.DefaultSize = DefaultSize
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = MaxSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		index:       idx,
		defaultSize: opts.DefaultSize,
		maxSize:     opts.MaxSize,
		now:         opts.Now,
	}
}

// Search runs req and returns one page of results ordered by freshness-boosted score.
// The page window is cut on the index's native ranking; only the order within
// the page reflects the boost.
func (e *Engine) Search(ctx context.Context, req Request) (*domain.SearchResponse, error) {
	started := time.Now()
	resp, err := e.search(ctx, req)

	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, ErrInvalidQuery):
		outcome = metrics.OutcomeBadQuery
	case err != nil:
		outcome = metrics.OutcomeFailed
	}
	metrics.RecordSearch(outcome, time.Since(started).Seconds())

	return resp, err
}

func (e *Engine) search(ctx context.Context, req Request) (*domain.SearchResponse, error) {
	page, size := e.normalize(req.Page, req.Size)
	nowMillis := domain.Millis(e.now())

	q, err := e.buildQuery(req, nowMillis)
	if err != nil {
		return nil, err
	}

	window := min((page+1)*size, MaxResultWindow)
	sr := bleve.NewSearchRequestOptions(q, window, 0, false)
	sr.Fields = []string{
		domain.FieldTitle,
		domain.FieldURL,
		domain.FieldContent,
		domain.FieldDomain,
		domain.FieldTimestamp,
	}

	res, err := e.index.SearchInContext(ctx, sr)
	if err != nil {
		slog.Error("Search execution failed", "query", req.Query, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	start := page * size
	end := min(start+size, len(res.Hits))

	results := make([]domain.SearchResult, 0, max(0, end-start))
	for i := start; i < end; i++ {
		hit := res.Hits[i]
		ts := index.MillisField(hit.Fields, domain.FieldTimestamp)
		results = append(results, domain.SearchResult{
			Title:      index.StringField(hit.Fields, domain.FieldTitle),
			URL:        index.StringField(hit.Fields, domain.FieldURL),
			Snippet:    BuildSnippet(index.StringField(hit.Fields, domain.FieldContent), req.Query),
			Domain:     index.StringField(hit.Fields, domain.FieldDomain),
			ObservedAt: ts,
			Score:      hit.Score * FreshnessMultiplier(nowMillis-ts),
		})
	}
	sortByScore(results)

	return &domain.SearchResponse{
		TotalResults: res.Total,
		Results:      results,
	}, nil
}

// normalize clamps page to zero or more and applies size defaults and limits.
func (e *Engine) normalize(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = e.defaultSize
	}
	if size > e.maxSize {
		size = e.maxSize
	}
	// Beyond this the window is already capped; keep arithmetic from overflowing.
	if page > MaxResultWindow {
		page = MaxResultWindow
	}
	return page, size
}

// buildQuery combines the parsed text query with zero-boost domain and recency filters.
func (e *Engine) buildQuery(req Request, nowMillis int64) (query.Query, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrInvalidQuery
	}

	text := bleve.NewQueryStringQuery(req.Query)
	if _, err := text.Parse(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	clauses := []query.Query{text}

	if req.Domain != "" {
		dq := bleve.NewTermQuery(req.Domain)
		dq.SetField(domain.FieldDomain)
		dq.SetBoost(0)
		clauses = append(clauses, dq)
	}

	if req.Days > 0 {
		// A window reaching past the epoch has no lower bound
		var from *float64
		if int64(req.Days) <= nowMillis/millisPerDay {
			f := float64(nowMillis - int64(req.Days)*millisPerDay)
			from = &f
		}
		to := float64(nowMillis)
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(from, &to, &inclusive, &inclusive)
		rq.SetField(domain.FieldTimestamp)
		rq.SetBoost(0)
		clauses = append(clauses, rq)
	}

	if len(clauses) == 1 {
		return text, nil
	}
	return bleve.NewConjunctionQuery(clauses...), nil
}
