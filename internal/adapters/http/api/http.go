// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/vists/internal/adapters/repository"
	service "github.com/okian/vists/internal/app"
	"github.com/okian/vists/internal/domain/model"
	"github.com/okian/vists/internal/domain/types"
	"github.com/okian/vists/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit queues a recompute. A nil settings uses the service defaults.
	Submit(ctx context.Context, table model.Table, settings *model.Settings) (types.Submission, error)
	Run(ctx context.Context, id string) (types.Run, error)

	TopN(ctx context.Context, n int) ([]types.Standing, error)
	Rank(ctx context.Context, player string) (types.Standing, error)
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	maxLimit     int
	maxBodyBytes int64
	schema       model.Schema
	settings     model.Settings
}

// WithMaxLimit caps GET /leaderboard?limit.
func WithMaxLimit(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// WithMaxBodyBytes caps the size of a submitted ledger.
func WithMaxBodyBytes(n int64) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithSchema sets the column labels submitted ledgers are checked against.
func WithSchema(s model.Schema) ServerOption {
	return func(c *serverConfig) { c.schema = s }
}

// WithDefaultSettings sets the base that settings query parameters override.
func WithDefaultSettings(s model.Settings) ServerOption {
	return func(c *serverConfig) { c.settings = s }
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	ledgerHandler      *LedgerHandler
	runsHandler        *RunsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := serverConfig{
		maxLimit:     100,
		maxBodyBytes: 32 << 20,
		schema:       model.DefaultSchema(),
		settings:     model.Settings{InitialRating: 1500, KFactor: 32, DifferenceDivisor: 400},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		ledgerHandler:      NewLedgerHandler(deps, cfg.schema, cfg.settings, cfg.maxBodyBytes),
		runsHandler:        NewRunsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.maxLimit),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/ledger", MetricsMiddleware(s.ledgerHandler.HandlePostLedger, "ledger"))
	mux.HandleFunc("/runs/", MetricsMiddleware(s.runsHandler.HandleGetRun, "runs"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.Handle("/metrics", metrics.Handler())
}

type errorResponse struct {
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

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, service.ErrRunNotFound)
}

// isUnavailable reports errors meaning the service cannot take work now.
func isUnavailable(err error) bool {
	return errors.Is(err, service.ErrNotStarted)
}
