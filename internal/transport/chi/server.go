package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/reelrag/reelrag/internal/domain"
	"github.com/reelrag/reelrag/internal/version"
	backfilluc "github.com/reelrag/reelrag/internal/usecase/backfill"
	healthuc "github.com/reelrag/reelrag/internal/usecase/health"
	moviesuc "github.com/reelrag/reelrag/internal/usecase/movies"
	searchuc "github.com/reelrag/reelrag/internal/usecase/search"
	statsuc "github.com/reelrag/reelrag/internal/usecase/stats"
)

// ErrorCode identifies an error class in the response envelope.
type ErrorCode string

const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeMalformedID      ErrorCode = "malformed_id"
	CodeMovieNotFound    ErrorCode = "movie_not_found"
	CodeSearchFailed     ErrorCode = "search_failed"
	CodeStoreUnavailable ErrorCode = "store_unavailable"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error envelope for every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the movie retrieval API over chi.
type Server struct {
	movies        *moviesuc.Service
	search        *searchuc.Service
	backfill      *backfilluc.Service
	stats         *statsuc.Service
	health        *healthuc.Service
	model         string
	searchLimit   int
	backfillLimit int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. model names the embedding model
// reported by /health.
func NewServer(
	movies *moviesuc.Service,
	search *searchuc.Service,
	backfill *backfilluc.Service,
	stats *statsuc.Service,
	health *healthuc.Service,
	model string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		movies:        movies,
		search:        search,
		backfill:      backfill,
		stats:         stats,
		health:        health,
		model:         model,
		searchLimit:   5,
		backfillLimit: 100,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrMalformedID, http.StatusBadRequest, CodeMalformedID),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrMovieNotFound, http.StatusNotFound, CodeMovieNotFound),
		sentinelHandler(domain.ErrSearchFailed, http.StatusBadGateway, CodeSearchFailed),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable),
	}
	return s
}

// WithDefaults overrides the limits applied when a request omits them.
func (s *Server) WithDefaults(searchLimit, backfillLimit int) *Server {
	if searchLimit > 0 {
		s.searchLimit = searchLimit
	}
	if backfillLimit > 0 {
		s.backfillLimit = backfillLimit
	}
	return s
}

// Register mounts all routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/", s.Root)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/movies", s.ListMovies)
		r.Get("/movies/{id}", s.GetMovie)
		r.Post("/search", s.SearchMovies)
		r.Post("/embeddings/generate", s.GenerateEmbeddings)
		r.Get("/embeddings/stats", s.EmbeddingStats)
	})
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "reelrag",
		"message": "semantic movie retrieval API",
		"version": version.Version,
	})
}

// ListMovies handles GET /api/movies.
func (s *Server) ListMovies(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", moviesuc.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be an integer")
		return
	}
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "skip must be an integer")
		return
	}

	movies, err := s.movies.List(r.Context(), limit, skip)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"movies": movies,
		"count":  len(movies),
	})
}

// GetMovie handles GET /api/movies/{id}.
func (s *Server) GetMovie(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	movie, err := s.movies.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, movie)
}

type searchRequest struct {
	Query string `json:"query"`
	Limit *int   `json:"limit"`
}

// SearchMovies handles POST /api/search.
func (s *Server) SearchMovies(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	limit := s.searchLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	resp, err := s.search.Search(r.Context(), req.Query, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type backfillRequest struct {
	Limit *int `json:"limit"`
	Skip  *int `json:"skip"`
}

// GenerateEmbeddings handles POST /api/embeddings/generate.
func (s *Server) GenerateEmbeddings(w http.ResponseWriter, r *http.Request) {
	req := backfillRequest{}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	limit := s.backfillLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	skip := 0
	if req.Skip != nil {
		skip = *req.Skip
	}

	result, err := s.backfill.Run(r.Context(), limit, skip)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// EmbeddingStats handles GET /api/embeddings/stats.
func (s *Server) EmbeddingStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.stats.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":  report.Status,
		"version": version.Version,
		"model":   s.model,
		"checks":  report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrMovieNotFound,
		domain.ErrMalformedID,
		domain.ErrSearchFailed,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
