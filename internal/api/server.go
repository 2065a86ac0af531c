package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/simpletex/internal/engine"
	"github.com/knowledge-engine/simpletex/internal/fetcher"
	"github.com/knowledge-engine/simpletex/internal/keyword"
	"github.com/knowledge-engine/simpletex/internal/politeness"
)

type Server struct {
	Engine       *engine.Engine
	Logger       *logrus.Entry
	Router       *http.ServeMux
	MaxTextBytes int64
	Gatherer     prometheus.Gatherer
}

func NewServer(eng *engine.Engine, logger *logrus.Entry, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		Engine:       eng,
		Logger:       logger,
		Router:       http.NewServeMux(),
		MaxTextBytes: 1 << 20,
		Gatherer:     gatherer,
	}
	if eng.Config != nil && eng.Config.Server.MaxTextBytes > 0 {
		s.MaxTextBytes = eng.Config.Server.MaxTextBytes
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.HandleFunc("/api/v1/keywords", s.handleKeywords)
	s.Router.HandleFunc("/api/v1/keywords/html", s.handleKeywordsHTML)
	s.Router.HandleFunc("/api/v1/keywords/url", s.handleKeywordsURL)
	s.Router.HandleFunc("/api/v1/cloud", s.handleCloud)
	s.Router.HandleFunc("/api/v1/stopwords", s.handleStopWords)
	s.Router.HandleFunc("/api/v1/status", s.handleStatus)
	s.Router.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
}

func (s *Server) Start(addr string) error {
	s.Logger.Infof("Starting API Server on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// Responses
type ErrorResponse struct {
	Error string `json:"error"`
}

type KeywordsResponse struct {
	Keywords []keyword.Keyword `json:"keywords"`
	Title    string            `json:"title,omitempty"`
	URL      string            `json:"url,omitempty"`
	Notice   string            `json:"notice,omitempty"`
	Cached   bool              `json:"cached"`
}

type StopWordsResponse struct {
	Count int      `json:"count"`
	Words []string `json:"words"`
}

type StatusResponse struct {
	DocumentsScored int64  `json:"documents_scored"`
	CacheHits       int64  `json:"cache_hits"`
	CacheMisses     int64  `json:"cache_misses"`
	Renderer        string `json:"renderer"`
	Uptime          string `json:"uptime"`
}

// Handlers

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.Engine.Extract(r.Context(), req.Text)
	if err != nil {
		s.fail(w, http.StatusServiceUnavailable, err)
		return
	}
	jsonResponse(w, http.StatusOK, toResponse(res))
}

func (s *Server) handleKeywordsHTML(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HTML string `json:"html"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.Engine.ExtractHTML(r.Context(), req.HTML)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	jsonResponse(w, http.StatusOK, toResponse(res))
}

func (s *Server) handleKeywordsURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "URL is required"})
		return
	}

	res, err := s.Engine.ExtractURL(r.Context(), req.URL)
	if err != nil {
		code := http.StatusBadGateway
		switch {
		case errors.Is(err, politeness.ErrInvalidURL):
			code = http.StatusBadRequest
		case errors.Is(err, politeness.ErrDisallowed):
			code = http.StatusForbidden
		case errors.Is(err, fetcher.ErrNotHTML):
			code = http.StatusUnsupportedMediaType
		}
		s.fail(w, code, err)
		return
	}
	jsonResponse(w, http.StatusOK, toResponse(res))
}

func (s *Server) handleCloud(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.Engine.Extract(r.Context(), req.Text)
	if err != nil {
		s.fail(w, http.StatusServiceUnavailable, err)
		return
	}

	var buf bytes.Buffer
	notice, err := s.Engine.RenderCloud(&buf, res.Keywords)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	if notice != "" {
		jsonResponse(w, http.StatusServiceUnavailable, ErrorResponse{Error: notice})
		return
	}

	w.Header().Set("Content-Type", s.Engine.CloudContentType())
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (s *Server) handleStopWords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sw := s.Engine.Scorer.StopWords()
	jsonResponse(w, http.StatusOK, StopWordsResponse{Count: sw.Len(), Words: sw.Words()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.Engine.Stats()
	jsonResponse(w, http.StatusOK, StatusResponse{
		DocumentsScored: stats.DocumentsScored,
		CacheHits:       stats.CacheHits,
		CacheMisses:     stats.CacheMisses,
		Renderer:        s.Engine.Renderer.Name(),
		Uptime:          time.Since(stats.StartTime).Round(time.Second).String(),
	})
}

// decode reads a POSTed JSON body capped at MaxTextBytes. It writes the
// error response itself and reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}

	body := http.MaxBytesReader(w, r.Body, s.MaxTextBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonResponse(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Request body too large"})
			return false
		}
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, code int, err error) {
	s.Logger.WithError(err).WithField("status", code).Warn("Request failed")
	jsonResponse(w, code, ErrorResponse{Error: err.Error()})
}

func toResponse(res *engine.Result) KeywordsResponse {
	kws := res.Keywords
	if kws == nil {
		kws = []keyword.Keyword{}
	}
	return KeywordsResponse{
		Keywords: kws,
		Title:    res.Title,
		URL:      res.URL,
		Notice:   res.Notice,
		Cached:   res.Cached,
	}
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
