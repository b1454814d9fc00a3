package api

import (
	"context"
	"net/http"
)

const defaultAtRiskLimit = 10

// AtRiskDependencies defines the interface for the top revenue-at-risk query.
type AtRiskDependencies interface {
	TopAtRisk(ctx context.Context, n int) ([]Entry, error)
}

// AtRiskHandler handles at-risk requests.
type AtRiskHandler struct {
	deps     AtRiskDependencies
	maxLimit int
}

// NewAtRiskHandler creates a new at-risk handler.
func NewAtRiskHandler(deps AtRiskDependencies, maxLimit int) *AtRiskHandler {
	return &AtRiskHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetAtRisk handles GET /at-risk?limit=N requests.
func (h *AtRiskHandler) HandleGetAtRisk(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_at_risk"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := parseLimit(r.URL.Query().Get("limit"), defaultAtRiskLimit, h.maxLimit)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	entries, err := h.deps.TopAtRisk(r.Context(), n)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
