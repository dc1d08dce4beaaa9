package crawler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultUserAgent identifies the crawler to the sites it visits.
	DefaultUserAgent = "NewsdexBot/1.0"

	// DefaultRobotsTimeout bounds a single robots.txt fetch.
	DefaultRobotsTimeout = 5 * time.Second

	// maxRobotsBytes caps how much of a robots.txt body is read.
	maxRobotsBytes = 512 * 1024
)

// PolicyChecker decides whether a URL may be fetched.
type PolicyChecker interface {
	IsAllowed(ctx context.Context, targetURL string) bool
}

// RobotsChecker fetches a site's robots.txt and evaluates user-agent/disallow directives.
// Any failure to obtain the policy allows the fetch.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	agentName string
}

// NewRobotsChecker creates a checker that identifies itself with userAgent.
func NewRobotsChecker(userAgent string, timeout time.Duration) *RobotsChecker {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultRobotsTimeout
	}
	return &RobotsChecker{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		agentName: AgentName(userAgent),
	}
}

// AgentName extracts the lower-cased product token from a user agent.
// For "NewsdexBot/1.0 (+https://example.com)" it returns "newsdexbot".
func AgentName(userAgent string) string {
	name := strings.TrimSpace(userAgent)
	if i := strings.IndexAny(name, "/ "); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// RobotsURL returns {scheme}://{host}/robots.txt for targetURL.
func RobotsURL(targetURL string) (string, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", &url.Error{Op: "parse", URL: targetURL, Err: errMissingHost}
	}
	return u.Scheme + "://" + u.Host + "/robots.txt", nil
}

// IsAllowed reports whether targetURL may be crawled.
func (r *RobotsChecker) IsAllowed(ctx context.Context, targetURL string) bool {
	robotsURL, err := RobotsURL(targetURL)
	if err != nil {
		return true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return true
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		slog.Debug("robots.txt unavailable, allowing", "url", robotsURL, "error", err)
		return true
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return true
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return true
	}

	return EvaluateRobots(string(body), r.agentName, targetURL)
}

// EvaluateRobots applies a robots.txt body to targetURL for the crawler named agentName.
//
// A user-agent line applies when it contains "*" or agentName. Within an applicable block,
// "disallow: /" blocks everything and any other non-empty path blocks when targetURL
// contains it as a substring. This is looser than prefix matching.
func EvaluateRobots(body, agentName, targetURL string) bool {
	if strings.TrimSpace(body) == "" {
		return true
	}
	agentName = strings.ToLower(agentName)

	appliesToUs := false
	for _, line := range strings.Split(body, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.ToLower(strings.TrimSpace(line))

		if value, ok := strings.CutPrefix(line, "user-agent:"); ok {
			value = strings.TrimSpace(value)
			appliesToUs = strings.Contains(value, "*") || (agentName != "" && strings.Contains(value, agentName))
			continue
		}

		if !appliesToUs {
			continue
		}

		if path, ok := strings.CutPrefix(line, "disallow:"); ok {
			path = strings.TrimSpace(path)
			if path == "" {
				continue
			}
			if path == "/" || strings.Contains(targetURL, path) {
				return false
			}
		}
	}

	return true
}
