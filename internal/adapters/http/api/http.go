// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/scool/internal/domain/model"
	"github.com/okian/scool/internal/domain/ranking"
	"github.com/okian/scool/internal/domain/types"
	"github.com/okian/scool/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Dependencies required by HTTP handlers. Each handler only sees the slice
// it needs; the app service implements all of them.
type Dependencies interface {
	ScoreDependencies
	LeaderboardDependencies
	RankDependencies
	SubjectDependencies
	UserDependencies
	SearchDependencies
	HealthDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	scoreHandler       *ScoreHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	subjectsHandler    *SubjectsHandler
	usersHandler       *UsersHandler
	searchHandler      *SearchHandler
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler

	limiter *RateLimiter
	log     logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRateLimiter throttles the mutating endpoints.
func WithRateLimiter(l *RateLimiter) ServerOption {
	return func(s *Server) { s.limiter = l }
}

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{log: logger.Get().Named("api")}
	for _, opt := range opts {
		opt(s)
	}
	s.scoreHandler = NewScoreHandler(deps, s.log)
	s.leaderboardHandler = NewLeaderboardHandler(deps)
	s.rankHandler = NewRankHandler(deps)
	s.subjectsHandler = NewSubjectsHandler(deps)
	s.usersHandler = NewUsersHandler(deps, s.log)
	s.searchHandler = NewSearchHandler(deps)
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(statsProvider)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	handle := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}
	limited := func(h http.HandlerFunc) http.HandlerFunc {
		if s.limiter == nil {
			return h
		}
		return s.limiter.Middleware(h)
	}

	handle("/healthz", "healthz", s.healthHandler.HandleMetrics)
	handle("/metrics", "metrics", s.healthHandler.HandleMetrics)
	handle("GET /health", "health", s.healthHandler.HandleHealth)
	handle("GET /api/health", "api_health", s.healthHandler.HandleHealth)
	handle("GET /api/db-check", "db_check", s.healthHandler.HandleDBCheck)
	handle("GET /stats", "stats", s.statsHandler.HandleStats)

	handle("POST /api/score", "score", limited(s.scoreHandler.HandlePostScore))
	handle("GET /api/leaderboard", "leaderboard", s.leaderboardHandler.HandleGetLeaderboard)
	handle("GET /api/top10", "top10", s.leaderboardHandler.HandleGetTop10)
	handle("GET /api/rank/{username}", "rank", s.rankHandler.HandleGetRank)

	handle("GET /api/subjects/{class}", "subjects", s.subjectsHandler.HandleGetSubjects)
	handle("POST /api/subject-progress", "subject_progress", limited(s.subjectsHandler.HandlePostProgress))

	handle("POST /api/register", "register", limited(s.usersHandler.HandleRegister))
	handle("POST /api/login", "login", limited(s.usersHandler.HandleLogin))
	handle("GET /api/user/{id}", "user", s.usersHandler.HandleGetUser)

	handle("GET /api/search", "search", s.searchHandler.HandleSearch)

	handle("/api/", "not_found", handleAPINotFound)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure classifies err and writes the matching status.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error, please retry"
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps error kinds onto HTTP statuses.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrValidation),
		errors.Is(err, ranking.ErrInvalidSubmission):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ranking.ErrNotFound), errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ranking.ErrStorageUnavailable),
		errors.Is(err, types.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return fmt.Errorf("%w: malformed JSON: %w", ErrBadRequest, err)
	}
	return nil
}
