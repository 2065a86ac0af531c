package politeness_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/simpletex/internal/config"
	"github.com/knowledge-engine/simpletex/internal/politeness"
)

func init() {
	// Set log level to warn to reduce noise during tests
	logrus.SetLevel(logrus.WarnLevel)
}

func testConfig() config.FetchConfig {
	return config.FetchConfig{
		UserAgent:           "TestAgent/1.0",
		EnableRobotsCheck:   true,
		RatePerSecond:       100,
		Burst:               10,
		RobotsCacheDuration: time.Minute,
	}
}

func robotsServer(t *testing.T, hits *int32) *httptest.Server {
	robotsContent := "User-agent: *\nDisallow: /private/\nAllow: /\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			if hits != nil {
				atomic.AddInt32(hits, 1)
			}
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte(robotsContent))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGate_RobotsAllowAndDisallow(t *testing.T) {
	var hits int32
	srv := robotsServer(t, &hits)
	g := politeness.NewGate(testConfig(), nil)

	ctx := context.Background()
	require.NoError(t, g.Wait(ctx, srv.URL+"/public/page"))
	assert.ErrorIs(t, g.Wait(ctx, srv.URL+"/private/secret"), politeness.ErrDisallowed)
	require.NoError(t, g.Wait(ctx, srv.URL+"/"))

	// robots.txt is fetched once and cached
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	stats := g.GetStatistics()
	assert.Equal(t, int64(2), stats.Allowed)
	assert.Equal(t, int64(1), stats.Disallowed)
	assert.Equal(t, 1, stats.Hosts)
}

func TestGate_RobotsCheckDisabled(t *testing.T) {
	var hits int32
	srv := robotsServer(t, &hits)

	cfg := testConfig()
	cfg.EnableRobotsCheck = false
	g := politeness.NewGate(cfg, nil)

	require.NoError(t, g.Wait(context.Background(), srv.URL+"/private/secret"))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestGate_MissingRobotsAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	g := politeness.NewGate(testConfig(), nil)
	assert.NoError(t, g.Wait(context.Background(), srv.URL+"/anything"))
}

func TestGate_UnreachableRobotsAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	g := politeness.NewGate(testConfig(), nil)
	assert.NoError(t, g.Wait(context.Background(), addr+"/page"))
	assert.Equal(t, int64(1), g.GetStatistics().RobotsErrors)
}

func TestGate_InvalidURLs(t *testing.T) {
	g := politeness.NewGate(testConfig(), nil)
	ctx := context.Background()

	for _, raw := range []string{"ftp://example.com/file", "/relative/path", "://bad", "not a url"} {
		assert.ErrorIs(t, g.Wait(ctx, raw), politeness.ErrInvalidURL, raw)
	}
}

func TestGate_DefaultUserAgentSelectsRobotsGroup(t *testing.T) {
	var agent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			agent.Store(r.Header.Get("User-Agent"))
			w.Write([]byte("User-agent: *\nAllow: /\n\nUser-agent: SimpleTex\nDisallow: /blocked\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.UserAgent = ""
	g := politeness.NewGate(cfg, nil)

	ctx := context.Background()
	assert.ErrorIs(t, g.Wait(ctx, srv.URL+"/blocked/page"), politeness.ErrDisallowed)
	require.NoError(t, g.Wait(ctx, srv.URL+"/open"))
	assert.Equal(t, config.DefaultUserAgent, agent.Load())
}

func TestGate_RateLimit(t *testing.T) {
	srv := robotsServer(t, nil)

	cfg := testConfig()
	cfg.EnableRobotsCheck = false
	cfg.RatePerSecond = 20
	cfg.Burst = 1
	g := politeness.NewGate(cfg, nil)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Wait(ctx, srv.URL+"/page"))
	}
	// burst of one, then two waits of ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestGate_ContextCancelled(t *testing.T) {
	srv := robotsServer(t, nil)

	cfg := testConfig()
	cfg.EnableRobotsCheck = false
	cfg.RatePerSecond = 0.01
	cfg.Burst = 1
	g := politeness.NewGate(cfg, nil)

	require.NoError(t, g.Wait(context.Background(), srv.URL+"/first"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, g.Wait(ctx, srv.URL+"/second"))
}
