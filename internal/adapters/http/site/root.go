// Package site serves the embedded documentation pages and the root redirect.
package site

import (
	"context"
	"net/http"
)

// Register attaches the documentation site and the root handler to mux.
//
//	GET /docs/...  -> embedded pages
//	GET /          -> redirect to /dashboard
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.Handle("/docs/", http.StripPrefix("/docs/", http.FileServer(FS())))
	mux.HandleFunc("/", NewRootHandler().HandleRoot)
}

// RootHandler handles requests no other route claimed.
type RootHandler struct{}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

// HandleRoot redirects the bare root to the dashboard and 404s everything else.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
