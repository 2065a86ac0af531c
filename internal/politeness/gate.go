package politeness

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"github.com/knowledge-engine/simpletex/internal/config"
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL.
var ErrDisallowed = errors.New("URL blocked by robots.txt")

// ErrInvalidURL is returned for URLs that cannot be fetched at all: ones that
// do not parse, lack a host, or use a scheme other than http or https.
var ErrInvalidURL = errors.New("invalid URL")

// Gate enforces robots.txt rules and a per-host request rate before a page
// is fetched for keyword extraction.
type Gate struct {
	config      config.FetchConfig
	logger      *logrus.Entry
	client      *http.Client
	limiters    map[string]*rate.Limiter
	robotsCache map[string]*RobotsEntry
	mu          sync.Mutex

	stats Statistics
}

// RobotsEntry caches robots.txt data
type RobotsEntry struct {
	robots    *robotstxt.RobotsData
	fetchTime time.Time
}

// Statistics holds gate statistics
type Statistics struct {
	Allowed      int64 `json:"allowed"`
	Disallowed   int64 `json:"disallowed"`
	RobotsErrors int64 `json:"robots_errors"`
	Hosts        int   `json:"hosts"`
}

// NewGate creates a new politeness gate
func NewGate(cfg config.FetchConfig, logger *logrus.Entry) *Gate {
	if logger == nil {
		logger = logrus.WithField("component", "politeness")
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}

	return &Gate{
		config:      cfg,
		logger:      logger,
		client:      &http.Client{Timeout: 10 * time.Second},
		limiters:    make(map[string]*rate.Limiter),
		robotsCache: make(map[string]*RobotsEntry),
	}
}

// Wait blocks until a request to rawURL is permitted. It returns
// ErrDisallowed when robots.txt forbids the path, ErrInvalidURL for URLs that
// cannot be fetched, or the context error.
func (g *Gate) Wait(ctx context.Context, rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidURL, rawURL)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%w: only HTTP/HTTPS URLs are supported", ErrInvalidURL)
	}

	allowed, err := g.IsURLAllowed(ctx, parsedURL)
	if err != nil {
		return err
	}
	if !allowed {
		g.updateStats(func(s *Statistics) { s.Disallowed++ })
		g.logger.WithField("url", rawURL).Debug("URL blocked by robots.txt")
		return ErrDisallowed
	}

	if err := g.limiter(parsedURL.Host).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	g.updateStats(func(s *Statistics) { s.Allowed++ })
	return nil
}

// IsURLAllowed checks if URL is allowed according to robots.txt
func (g *Gate) IsURLAllowed(ctx context.Context, u *url.URL) (bool, error) {
	if !g.config.EnableRobotsCheck {
		return true, nil
	}

	robotsData, err := g.getRobotsData(ctx, u.Scheme, u.Host)
	if err != nil {
		g.updateStats(func(s *Statistics) { s.RobotsErrors++ })
		g.logger.WithError(err).WithField("domain", u.Host).Warn("Failed to get robots.txt, allowing request")
		return true, nil // Allow on robots.txt fetch failure
	}
	if robotsData == nil {
		return true, nil
	}

	group := robotsData.FindGroup(g.config.UserAgent)
	if group == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path), nil
}

// GetStatistics returns a snapshot of the gate statistics
func (g *Gate) GetStatistics() Statistics {
	g.mu.Lock()
	defer g.mu.Unlock()
	stats := g.stats
	stats.Hosts = len(g.limiters)
	return stats
}

func (g *Gate) limiter(host string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()

	l, ok := g.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(g.config.RatePerSecond), g.config.Burst)
		g.limiters[host] = l
		g.logger.WithField("domain", host).Debug("Created rate limiter")
	}
	return l
}

// getRobotsData fetches and caches robots.txt data
func (g *Gate) getRobotsData(ctx context.Context, scheme, host string) (*robotstxt.RobotsData, error) {
	g.mu.Lock()
	entry, exists := g.robotsCache[host]
	g.mu.Unlock()

	if exists && time.Since(entry.fetchTime) < g.config.RobotsCacheDuration {
		return entry.robots, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create robots.txt request: %w", err)
	}
	req.Header.Set("User-Agent", g.config.UserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	var robotsData *robotstxt.RobotsData
	if resp.StatusCode == http.StatusOK {
		robotsData, err = robotstxt.FromResponse(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
		}
	}

	// Cache the result (even if nil for 404s)
	g.mu.Lock()
	g.robotsCache[host] = &RobotsEntry{
		robots:    robotsData,
		fetchTime: time.Now(),
	}
	g.mu.Unlock()

	return robotsData, nil
}

func (g *Gate) updateStats(fn func(*Statistics)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.stats)
}
