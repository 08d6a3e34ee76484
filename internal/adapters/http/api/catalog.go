package api

import (
	"net/http"

	"github.com/okian/entalk/internal/domain/model"
)

// CatalogHandler lists the fixed vocabularies and the venues.
type CatalogHandler struct {
	questions QuestionService
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(questions QuestionService) *CatalogHandler {
	return &CatalogHandler{questions: questions}
}

type label struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type catalogResponse struct {
	Categories []label `json:"categories"`
	Phases     []label `json:"phases"`
}

// HandleCatalog handles GET /catalog requests.
func (h *CatalogHandler) HandleCatalog(w http.ResponseWriter, _ *http.Request) {
	var resp catalogResponse
	for _, c := range model.Categories() {
		resp.Categories = append(resp.Categories, label{Name: string(c), Description: c.Description()})
	}
	for _, p := range model.Phases() {
		resp.Phases = append(resp.Phases, label{Name: string(p), Description: p.Description()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleLocations handles GET /locations requests.
func (h *CatalogHandler) HandleLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.questions.Locations(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if locs == nil {
		locs = []model.Location{}
	}
	writeJSON(w, http.StatusOK, locs)
}
