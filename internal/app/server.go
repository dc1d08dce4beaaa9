package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sha1n/newsdex/internal/auth"
	"github.com/sha1n/newsdex/internal/config"
	"github.com/sha1n/newsdex/internal/domain"
	"github.com/sha1n/newsdex/internal/search"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const shutdownTimeout = 10 * time.Second

type requestIDKey struct{}

// Searcher answers search requests.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*domain.SearchResponse, error)
}

// StartHTTPServer serves until ctx is cancelled, then shuts down gracefully.
func StartHTTPServer(ctx context.Context, c *Components, settings *config.Settings) error {
	var searcher Searcher
	if c.Service != nil {
		searcher = c.Service
	}

	srv, err := NewHTTPServer(c.MCP, searcher, settings)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening (HTTP)", "addr", srv.Addr, "auth_type", settings.Auth.Type)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// NewHTTPServer creates the HTTP server exposing search, health, metrics and the MCP SSE endpoint.
// A nil searcher leaves /search unregistered.
func NewHTTPServer(s *mcp.Server, searcher Searcher, settings *config.Settings) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	if searcher != nil {
		mux.Handle("GET /search", NewSearchHandler(searcher))
	}

	if s != nil {
		sseHandler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
			return s
		}, nil)
		mux.Handle("/sse", sseHandler)
	}

	authMiddleware, err := auth.NewMiddleware(settings.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}

	handler := withRequestID(authMiddleware(mux))
	addr := fmt.Sprintf("%s:%d", settings.Host, settings.Port)

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// withRequestID tags every request with an id, reusing a caller-supplied one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "request_id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type errorBody struct {
	Error string `json:"error"`
}

// NewSearchHandler serves GET /search?q=&domain=&days=&page=&size=.
func NewSearchHandler(searcher Searcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := parseSearchRequest(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: search.ErrInvalidQuery.Error()})
			return
		}

		resp, err := searcher.Search(r.Context(), req)
		switch {
		case errors.Is(err, search.ErrInvalidQuery):
			writeJSON(w, http.StatusBadRequest, errorBody{Error: search.ErrInvalidQuery.Error()})
		case err != nil:
			slog.Error("Search failed", "request_id", RequestID(r.Context()), "query", req.Query, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: search.ErrIndexUnavailable.Error()})
		default:
			writeJSON(w, http.StatusOK, resp)
		}
	})
}

func parseSearchRequest(r *http.Request) (search.Request, error) {
	q := r.URL.Query()
	req := search.Request{
		Query:  q.Get("q"),
		Domain: q.Get("domain"),
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"days", &req.Days},
		{"page", &req.Page},
		{"size", &req.Size},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return search.Request{}, fmt.Errorf("invalid %s: %q", p.name, raw)
		}
		*p.dst = n
	}

	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}
