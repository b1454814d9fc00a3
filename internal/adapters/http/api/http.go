// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	repository "github.com/okian/churnlens/internal/adapters/repository"
	"github.com/okian/churnlens/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PortfolioDependencies
	AccountsDependencies
	AtRiskDependencies
	ReloadDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	portfolioHandler  *PortfolioHandler
	accountsHandler   *AccountsHandler
	atRiskHandler     *AtRiskHandler
	categoriesHandler *CategoriesHandler
	reloadHandler     *ReloadHandler
	dashboardHandler  *dashboardHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// limit query parameter of the table endpoints.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		portfolioHandler:  NewPortfolioHandler(deps),
		accountsHandler:   NewAccountsHandler(deps, maxLimit),
		atRiskHandler:     NewAtRiskHandler(deps, maxLimit),
		categoriesHandler: NewCategoriesHandler(),
		reloadHandler:     NewReloadHandler(deps),
		dashboardHandler:  newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/portfolio", MetricsMiddleware(s.portfolioHandler.HandleGetPortfolio, "portfolio"))
	mux.HandleFunc("/accounts", MetricsMiddleware(s.accountsHandler.HandleListAccounts, "accounts"))
	mux.HandleFunc("/accounts/", MetricsMiddleware(s.accountsHandler.HandleGetAccount, "account"))
	mux.HandleFunc("/at-risk", MetricsMiddleware(s.atRiskHandler.HandleGetAtRisk, "at_risk"))
	mux.HandleFunc("/categories", MetricsMiddleware(s.categoriesHandler.HandleGetCategories, "categories"))
	mux.HandleFunc("/reload", MetricsMiddleware(s.reloadHandler.HandlePostReload, "reload"))
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

// writeFailure maps an upstream error onto a status code by its kind.
func writeFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, repository.ErrNoSnapshot):
		writeError(w, http.StatusServiceUnavailable, "not_ready", Wrap(op, err))
	case errors.Is(err, ErrLimitExceeded):
		writeError(w, http.StatusBadRequest, "limit_exceeded", Wrap(op, err))
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// parseLimit reads the limit query parameter. Empty means def.
func parseLimit(raw string, def, maxLimit int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return min(def, maxLimit), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer, got %q", ErrBadRequest, raw)
	}
	if n > maxLimit {
		return 0, fmt.Errorf("%w: %d > %d", ErrLimitExceeded, n, maxLimit)
	}
	return n, nil
}

// Entry mirrors the read shape returned by table queries.
type Entry = types.AccountEntry
