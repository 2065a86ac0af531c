package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/knowledge-engine/simpletex/internal/config"
)

var (
	// ErrStatus is returned for non-200 responses.
	ErrStatus = errors.New("unexpected status code")
	// ErrNotHTML is returned when the response is not an HTML or plain-text document.
	ErrNotHTML = errors.New("unsupported content type")
)

// FetchResult contains the extracted data from a webpage
type FetchResult struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	StatusCode int    `json:"status_code"`
}

// Gate is consulted before every request.
type Gate interface {
	Wait(ctx context.Context, rawURL string) error
}

type Fetcher struct {
	client       *http.Client
	gate         Gate
	userAgent    string
	maxBodyBytes int64
}

func NewFetcher(cfg config.FetchConfig, gate Gate) *Fetcher {
	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		gate:         gate,
		userAgent:    ua,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Fetch downloads a page and extracts its visible text
func (f *Fetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	if f.gate != nil {
		if err := f.gate.Wait(ctx, url); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	result := &FetchResult{
		URL:        url,
		StatusCode: resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if f.maxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBodyBytes)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case contentType == "", strings.Contains(contentType, "html"):
		title, text, err := ExtractText(body)
		if err != nil {
			return nil, fmt.Errorf("parsing error: %w", err)
		}
		result.Title, result.Text = title, text
	case strings.HasPrefix(contentType, "text/plain"):
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		result.Text = cleanText(string(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotHTML, contentType)
	}

	return result, nil
}

// ExtractText returns the title and visible text of an HTML document.
// Script, style and noscript content is dropped.
func ExtractText(r io.Reader) (title, text string, err error) {
	tokenizer := html.NewTokenizer(r)
	var textBuilder strings.Builder
	skipDepth := 0
	inTitle := false

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				return strings.TrimSpace(title), cleanText(textBuilder.String()), nil
			}
			return "", "", tokenizer.Err()

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				skipDepth++
			case "title":
				inTitle = true
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			case "title":
				inTitle = false
			}

		case html.TextToken:
			data := string(tokenizer.Text())
			if inTitle {
				title += data
				continue
			}
			if skipDepth == 0 {
				if t := strings.TrimSpace(data); t != "" {
					textBuilder.WriteString(t)
					textBuilder.WriteByte(' ')
				}
			}
		}
	}
}

// cleanText removes excessive whitespace
func cleanText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
