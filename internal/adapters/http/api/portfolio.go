package api

import (
	"context"
	"net/http"

	"github.com/okian/churnlens/internal/domain/types"
)

// PortfolioDependencies defines the interface for the KPI tiles.
type PortfolioDependencies interface {
	Portfolio(ctx context.Context) (types.PortfolioView, error)
}

// PortfolioHandler handles portfolio requests.
type PortfolioHandler struct {
	deps PortfolioDependencies
}

// NewPortfolioHandler creates a new portfolio handler.
func NewPortfolioHandler(deps PortfolioDependencies) *PortfolioHandler {
	return &PortfolioHandler{deps: deps}
}

// HandleGetPortfolio handles GET /portfolio requests.
func (h *PortfolioHandler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_portfolio"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	view, err := h.deps.Portfolio(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
