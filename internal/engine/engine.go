package engine

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/simpletex/internal/cloud"
	"github.com/knowledge-engine/simpletex/internal/config"
	"github.com/knowledge-engine/simpletex/internal/fetcher"
	"github.com/knowledge-engine/simpletex/internal/keyword"
	"github.com/knowledge-engine/simpletex/internal/metrics"
	"github.com/knowledge-engine/simpletex/internal/politeness"
)

// Engine serves keyword extraction to the presentation layer
type Engine struct {
	Config   *config.Config
	Logger   *logrus.Entry
	Scorer   *keyword.Scorer
	Fetcher  *fetcher.Fetcher
	Renderer cloud.Renderer
	Metrics  *metrics.Metrics

	cache *lru.Cache[string, []keyword.Keyword]

	mu    sync.RWMutex
	stats EngineStats
}

type EngineStats struct {
	DocumentsScored int64     `json:"documents_scored"`
	CacheHits       int64     `json:"cache_hits"`
	CacheMisses     int64     `json:"cache_misses"`
	StartTime       time.Time `json:"start_time"`
}

// Result is the outcome of one extraction.
type Result struct {
	Keywords []keyword.Keyword `json:"keywords"`
	Title    string            `json:"title,omitempty"`
	URL      string            `json:"url,omitempty"`
	// Notice is a user-visible message, set when the word cloud cannot be
	// rendered. It never indicates a scoring failure.
	Notice string `json:"notice,omitempty"`
	Cached bool   `json:"cached"`
}

// NewEngine wires the scorer, fetcher and renderer from configuration.
// m may be nil to disable metrics.
func NewEngine(cfg *config.Config, logger *logrus.Entry, m *metrics.Metrics) (*Engine, error) {
	if logger == nil {
		logger = logrus.WithField("component", "engine")
	}

	scorer, err := NewScorer(cfg.Scorer)
	if err != nil {
		return nil, err
	}

	gate := politeness.NewGate(cfg.Fetch, logger.WithField("component", "politeness"))

	var renderer cloud.Renderer = cloud.Disabled{}
	if cfg.Cloud.Enabled {
		renderer = cloud.NewSVGRenderer(cfg.Cloud.Width, cfg.Cloud.Height, cfg.Cloud.MinFont, cfg.Cloud.MaxFont)
	}

	e := &Engine{
		Config:   cfg,
		Logger:   logger,
		Scorer:   scorer,
		Fetcher:  fetcher.NewFetcher(cfg.Fetch, gate),
		Renderer: renderer,
		Metrics:  m,
		stats:    EngineStats{StartTime: time.Now()},
	}

	if cfg.Cache.Size > 0 {
		e.cache, err = lru.New[string, []keyword.Keyword](cfg.Cache.Size)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"top_n":      scorer.TopN(),
		"stop_words": scorer.StopWords().Len(),
		"renderer":   renderer.Name(),
		"cache_size": cfg.Cache.Size,
	}).Info("Keyword engine initialized")

	return e, nil
}

// NewScorer builds a keyword scorer from configuration, loading any extra
// stop-word file.
func NewScorer(cfg config.ScorerConfig) (*keyword.Scorer, error) {
	idf, err := keyword.ParseIDFMode(cfg.IDF)
	if err != nil {
		return nil, err
	}
	norm, err := keyword.ParseNormMode(cfg.Norm)
	if err != nil {
		return nil, err
	}

	stopWords := keyword.English()
	if cfg.StopWordsFile != "" {
		loaded, err := keyword.LoadStopWords(cfg.StopWordsFile)
		if err != nil {
			return nil, err
		}
		switch cfg.StopWordsMode {
		case "replace":
			stopWords = loaded
		case "", "extend":
			stopWords = stopWords.Union(loaded)
		default:
			return nil, fmt.Errorf("unknown stop-word mode %q", cfg.StopWordsMode)
		}
	}

	return keyword.NewScorer(
		keyword.WithStopWords(stopWords),
		keyword.WithTopN(cfg.TopN),
		keyword.WithMinTokenLength(cfg.MinTokenLength),
		keyword.WithIDF(idf),
		keyword.WithNorm(norm),
		keyword.WithSublinearTF(cfg.SublinearTF),
		keyword.WithStemming(cfg.Stem),
	), nil
}

// Extract scores free-form text. It only fails when ctx is done.
func (e *Engine) Extract(ctx context.Context, text string) (*Result, error) {
	return e.extract(ctx, "text", text)
}

// ExtractHTML scores the visible text and title of an HTML document.
func (e *Engine) ExtractHTML(ctx context.Context, page string) (*Result, error) {
	title, text, err := fetcher.ExtractText(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	res, err := e.extract(ctx, "html", joinTitle(title, text))
	if err != nil {
		return nil, err
	}
	res.Title = title
	return res, nil
}

// ExtractURL fetches a page and scores its text.
func (e *Engine) ExtractURL(ctx context.Context, rawURL string) (*Result, error) {
	page, err := e.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		e.Metrics.FetchFailed(fetchFailureReason(err))
		e.Logger.WithError(err).WithField("url", rawURL).Warn("Fetch failed")
		return nil, err
	}

	res, err := e.extract(ctx, "url", joinTitle(page.Title, page.Text))
	if err != nil {
		return nil, err
	}
	res.Title = page.Title
	res.URL = page.URL
	return res, nil
}

func (e *Engine) extract(ctx context.Context, source, text string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{}
	key := cacheKey(text)
	if kws, ok := e.lookup(key); ok {
		res.Keywords = kws
		res.Cached = true
	} else {
		start := time.Now()
		kws = e.Scorer.Score(text)
		e.Metrics.ObserveScore(source, time.Since(start), len(kws))
		e.store(key, kws)
		res.Keywords = copyKeywords(kws)

		e.mu.Lock()
		e.stats.DocumentsScored++
		e.mu.Unlock()

		e.Logger.WithFields(logrus.Fields{
			"source":   source,
			"bytes":    len(text),
			"keywords": len(kws),
			"took":     time.Since(start),
		}).Debug("Scored document")
	}

	if err := e.Renderer.Available(); err != nil {
		res.Notice = err.Error()
	}
	return res, nil
}

// RenderCloud draws keywords with the configured renderer. When the
// renderer is unavailable it returns a notice and a nil error.
func (e *Engine) RenderCloud(w io.Writer, keywords []keyword.Keyword) (string, error) {
	name := e.Renderer.Name()
	if err := e.Renderer.Available(); err != nil {
		e.Metrics.ObserveRender(name, "unavailable")
		e.Logger.WithError(err).Debug("Word cloud unavailable")
		return err.Error(), nil
	}

	// Render into a buffer so a failure never leaves partial output.
	var buf bytes.Buffer
	if err := e.Renderer.Render(&buf, keyword.Keywords(keywords).Map()); err != nil {
		e.Metrics.ObserveRender(name, "error")
		if errors.Is(err, cloud.ErrUnavailable) {
			return err.Error(), nil
		}
		return "", fmt.Errorf("failed to render word cloud: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		e.Metrics.ObserveRender(name, "error")
		return "", fmt.Errorf("failed to write word cloud: %w", err)
	}
	e.Metrics.ObserveRender(name, "ok")
	return "", nil
}

// CloudContentType is the MIME type produced by RenderCloud.
func (e *Engine) CloudContentType() string {
	if ct, ok := e.Renderer.(interface{ ContentType() string }); ok {
		return ct.ContentType()
	}
	return "text/plain; charset=utf-8"
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

func (e *Engine) lookup(key string) ([]keyword.Keyword, bool) {
	if e.cache == nil {
		return nil, false
	}
	kws, ok := e.cache.Get(key)

	e.mu.Lock()
	if ok {
		e.stats.CacheHits++
	} else {
		e.stats.CacheMisses++
	}
	e.mu.Unlock()

	if !ok {
		e.Metrics.CacheMiss()
		return nil, false
	}
	e.Metrics.CacheHit()
	return copyKeywords(kws), true
}

func (e *Engine) store(key string, kws []keyword.Keyword) {
	if e.cache == nil {
		return
	}
	e.cache.Add(key, copyKeywords(kws))
}

func cacheKey(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

func copyKeywords(kws []keyword.Keyword) []keyword.Keyword {
	out := make([]keyword.Keyword, len(kws))
	copy(out, kws)
	return out
}

func joinTitle(title, text string) string {
	if title == "" {
		return text
	}
	return title + " " + text
}

func fetchFailureReason(err error) string {
	switch {
	case errors.Is(err, politeness.ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, politeness.ErrDisallowed):
		return "robots"
	case errors.Is(err, fetcher.ErrStatus):
		return "status"
	case errors.Is(err, fetcher.ErrNotHTML):
		return "content_type"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "network"
	}
}
