package api

import (
	"net/http"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/rules"
	"github.com/okian/churnlens/internal/domain/types"
)

type categoriesResponse struct {
	Categories []types.CategoryInfo `json:"categories"`
	Actions    []types.CategoryInfo `json:"actions"`
}

// CategoriesHandler serves the enumerations with their display attributes.
type CategoriesHandler struct {
	body categoriesResponse
}

// NewCategoriesHandler builds the response once; it never changes at runtime.
func NewCategoriesHandler() *CategoriesHandler {
	set := rules.New()
	body := categoriesResponse{}
	for _, c := range model.Categories() {
		action, _ := set.CategoryAction.Evaluate(c)
		body.Categories = append(body.Categories, types.CategoryInfo{
			Value:  string(c),
			Label:  c.Label(),
			Tone:   c.Tone(),
			Action: string(action),
		})
	}
	for _, a := range model.Actions() {
		body.Actions = append(body.Actions, types.CategoryInfo{
			Value: string(a),
			Label: a.Label(),
			Tone:  a.Tone(),
		})
	}
	return &CategoriesHandler{body: body}
}

// HandleGetCategories handles GET /categories requests.
func (h *CategoriesHandler) HandleGetCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.body)
}
