package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/simpletex/internal/api"
	"github.com/knowledge-engine/simpletex/internal/config"
	"github.com/knowledge-engine/simpletex/internal/engine"
	"github.com/knowledge-engine/simpletex/internal/metrics"
)

func newServer(t *testing.T, mutate func(*config.Config)) *api.Server {
	cfg := &config.Config{
		Scorer: config.ScorerConfig{TopN: 10, MinTokenLength: 2, IDF: "smooth", Norm: "l2"},
		Cache:  config.CacheConfig{Size: 8},
		Server: config.ServerConfig{MaxTextBytes: 1024},
		Fetch: config.FetchConfig{
			Timeout:       5 * time.Second,
			RatePerSecond: 100,
			Burst:         10,
		},
		Cloud: config.CloudConfig{Enabled: true, Width: 400, Height: 200, MinFont: 10, MaxFont: 40},
	}
	if mutate != nil {
		mutate(cfg)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	entry := logger.WithField("test", t.Name())

	reg := prometheus.NewRegistry()
	eng, err := engine.NewEngine(cfg, entry, metrics.MustNewMetrics(reg))
	require.NoError(t, err)
	return api.NewServer(eng, entry, reg)
}

func post(s *api.Server, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func TestHandleKeywords(t *testing.T) {
	s := newServer(t, nil)

	rr := post(s, "/api/v1/keywords", `{"text":"apple apple apple banana"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp api.KeywordsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Keywords, 2)
	assert.Equal(t, "apple", resp.Keywords[0].Term)
	assert.Greater(t, resp.Keywords[0].Weight, resp.Keywords[1].Weight)
}

func TestHandleKeywords_Empty(t *testing.T) {
	s := newServer(t, nil)

	rr := post(s, "/api/v1/keywords", `{"text":""}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"keywords":[],"cached":false}`, rr.Body.String())
}

func TestHandleKeywords_BadRequests(t *testing.T) {
	s := newServer(t, nil)

	rr := post(s, "/api/v1/keywords", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = post(s, "/api/v1/keywords", `{"text":"`+strings.Repeat("word ", 400)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/keywords", nil)
	get := httptest.NewRecorder()
	s.Router.ServeHTTP(get, req)
	assert.Equal(t, http.StatusMethodNotAllowed, get.Code)
}

func TestHandleKeywords_CloudDisabledNotice(t *testing.T) {
	s := newServer(t, func(c *config.Config) { c.Cloud.Enabled = false })

	rr := post(s, "/api/v1/keywords", `{"text":"gopher"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.KeywordsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Notice)
	assert.Len(t, resp.Keywords, 1)
}

func TestHandleKeywordsHTML(t *testing.T) {
	s := newServer(t, nil)

	rr := post(s, "/api/v1/keywords/html", `{"html":"<title>Gophers</title><p>gophers burrow</p>"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.KeywordsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Gophers", resp.Title)
	assert.Equal(t, "gophers", resp.Keywords[0].Term)
}

func TestHandleKeywordsURL(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.Write([]byte("User-agent: *\nDisallow: /private\n"))
		default:
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<body>kubernetes cluster kubernetes</body>"))
		}
	}))
	defer site.Close()

	s := newServer(t, func(c *config.Config) {
		c.Fetch.EnableRobotsCheck = true
		c.Fetch.UserAgent = "TestAgent/1.0"
	})

	rr := post(s, "/api/v1/keywords/url", `{"url":"`+site.URL+`/docs"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp api.KeywordsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "kubernetes", resp.Keywords[0].Term)
	assert.Equal(t, site.URL+"/docs", resp.URL)

	rr = post(s, "/api/v1/keywords/url", `{"url":"`+site.URL+`/private/page"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = post(s, "/api/v1/keywords/url", `{"url":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleKeywordsURL_InvalidURL(t *testing.T) {
	s := newServer(t, nil)

	for _, raw := range []string{"not a url", "ftp://example.com/x", "/relative/path"} {
		rr := post(s, "/api/v1/keywords/url", `{"url":"`+raw+`"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code, raw)

		var resp api.ErrorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "invalid URL", raw)
	}
}

func TestHandleCloud(t *testing.T) {
	s := newServer(t, nil)

	rr := post(s, "/api/v1/cloud", `{"text":"gopher gopher mascot"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), ">gopher</text>")
}

func TestHandleCloud_Unavailable(t *testing.T) {
	s := newServer(t, func(c *config.Config) { c.Cloud.Enabled = false })

	rr := post(s, "/api/v1/cloud", `{"text":"gopher"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "unavailable")
}

func TestHandleStopWords(t *testing.T) {
	s := newServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stopwords", nil)
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.StopWordsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, len(resp.Words), resp.Count)
	assert.Contains(t, resp.Words, "the")
	assert.IsNonDecreasing(t, resp.Words)
}

func TestHandleStatusAndMetrics(t *testing.T) {
	s := newServer(t, nil)
	post(s, "/api/v1/keywords", `{"text":"alpha"}`)
	post(s, "/api/v1/keywords", `{"text":"alpha"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var status api.StatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, int64(1), status.DocumentsScored)
	assert.Equal(t, int64(1), status.CacheHits)
	assert.Equal(t, "svg", status.Renderer)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr = httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "simpletex_documents_scored_total")
}
