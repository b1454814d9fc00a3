package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/types"
)

// AccountsDependencies defines the interface for the account table and detail.
type AccountsDependencies interface {
	Accounts(ctx context.Context, q types.AccountQuery) ([]Entry, error)
	Account(ctx context.Context, accountID string) (types.AccountDetail, error)
}

// AccountsHandler handles account table and detail requests.
type AccountsHandler struct {
	deps     AccountsDependencies
	maxLimit int
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(deps AccountsDependencies, maxLimit int) *AccountsHandler {
	return &AccountsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleListAccounts handles GET /accounts?category=&action=&limit= requests.
func (h *AccountsHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_accounts"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	query := r.URL.Query()
	limit, err := parseLimit(query.Get("limit"), h.maxLimit, h.maxLimit)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	q := types.AccountQuery{Limit: limit}

	if raw := query.Get("category"); raw != "" && !strings.EqualFold(raw, "all") {
		if !model.Category(model.Normalize(raw)).Known() {
			writeFailure(w, op, fmt.Errorf("%w: unknown category %q", ErrBadRequest, raw))
			return
		}
		q.Category = raw
	}
	if raw := query.Get("action"); raw != "" {
		if !model.Action(model.Normalize(raw)).Known() {
			writeFailure(w, op, fmt.Errorf("%w: unknown action %q", ErrBadRequest, raw))
			return
		}
		q.Action = raw
	}

	rows, err := h.deps.Accounts(r.Context(), q)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleGetAccount handles GET /accounts/{account_id} requests.
func (h *AccountsHandler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_account"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /accounts/
	id := strings.TrimPrefix(r.URL.Path, "/accounts/")
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		writeFailure(w, op, NewKind(op, ErrBadRequest))
		return
	}
	d, err := h.deps.Account(r.Context(), id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
