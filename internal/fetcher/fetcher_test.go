package fetcher_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/simpletex/internal/config"
	"github.com/knowledge-engine/simpletex/internal/fetcher"
)

type MockGate struct {
	mock.Mock
}

func (m *MockGate) Wait(ctx context.Context, rawURL string) error {
	args := m.Called(ctx, rawURL)
	return args.Error(0)
}

func testConfig() config.FetchConfig {
	return config.FetchConfig{Timeout: 5 * time.Second, UserAgent: "TestAgent/1.0"}
}

func TestExtractText(t *testing.T) {
	page := `<html><head><title> Test Page </title><style>body{color:red}</style>
	<script>var hidden = "secret";</script></head>
	<body><h1>Hello</h1><p>Keyword   extraction &amp; ranking</p>
	<noscript>enable javascript</noscript></body></html>`

	title, text, err := fetcher.ExtractText(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, "Test Page", title)
	assert.Equal(t, "Hello Keyword extraction & ranking", text)
}

func TestExtractText_Empty(t *testing.T) {
	title, text, err := fetcher.ExtractText(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, title)
	assert.Empty(t, text)
}

func TestFetcher_Fetch(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TestAgent/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><head><title>Test Page</title></head><body><h1>Hello</h1></body></html>"))
	})
	ts := httptest.NewServer(handler)
	defer ts.Close()

	gate := new(MockGate)
	gate.On("Wait", mock.Anything, ts.URL).Return(nil)

	f := fetcher.NewFetcher(testConfig(), gate)
	result, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, ts.URL, result.URL)
	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, "Hello", result.Text)
	assert.Equal(t, "Test Page", result.Title)
	gate.AssertExpectations(t)
}

func TestFetcher_PlainText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("  plain\n\ntext  body "))
	}))
	defer ts.Close()

	result, err := fetcher.NewFetcher(testConfig(), nil).Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "plain text body", result.Text)
}

func TestFetcher_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	result, err := fetcher.NewFetcher(testConfig(), nil).Fetch(context.Background(), ts.URL)
	assert.ErrorIs(t, err, fetcher.ErrStatus)
	require.NotNil(t, result)
	assert.Equal(t, 404, result.StatusCode)
}

func TestFetcher_UnsupportedContentType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 0x50})
	}))
	defer ts.Close()

	_, err := fetcher.NewFetcher(testConfig(), nil).Fetch(context.Background(), ts.URL)
	assert.ErrorIs(t, err, fetcher.ErrNotHTML)
}

func TestFetcher_GateRejects(t *testing.T) {
	blocked := errors.New("blocked")
	gate := new(MockGate)
	gate.On("Wait", mock.Anything, "http://example.invalid/page").Return(blocked)

	_, err := fetcher.NewFetcher(testConfig(), gate).Fetch(context.Background(), "http://example.invalid/page")
	assert.ErrorIs(t, err, blocked)
	gate.AssertExpectations(t)
}

func TestFetcher_BodyLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("abcdefghij klmnop"))
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.MaxBodyBytes = 10
	result, err := fetcher.NewFetcher(cfg, nil).Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "abcdefghij", result.Text)
}
