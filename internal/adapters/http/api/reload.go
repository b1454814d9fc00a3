package api

import (
	"context"
	"net/http"

	"github.com/okian/churnlens/internal/domain/types"
)

// ReloadDependencies defines the interface for triggering an evaluation pass.
type ReloadDependencies interface {
	Reload(ctx context.Context) (types.RunInfo, error)
}

// ReloadHandler handles reload requests.
type ReloadHandler struct {
	deps ReloadDependencies
}

// NewReloadHandler creates a new reload handler.
func NewReloadHandler(deps ReloadDependencies) *ReloadHandler {
	return &ReloadHandler{deps: deps}
}

// HandlePostReload handles POST /reload requests. The pass runs synchronously
// and the response describes the new snapshot.
func (h *ReloadHandler) HandlePostReload(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_reload"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	run, err := h.deps.Reload(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reload_failed", WrapKind(op, ErrReload, err))
		return
	}
	writeJSON(w, http.StatusOK, run)
}
