package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// DeckHandler handles deck requests.
type DeckHandler struct {
	decks DeckService
}

// NewDeckHandler creates a new deck handler.
func NewDeckHandler(decks DeckService) *DeckHandler {
	return &DeckHandler{decks: decks}
}

type generateRequest struct {
	LocationID string `json:"location_id"`
	OccasionID string `json:"occasion_id"`
}

func (g generateRequest) validate() error {
	switch {
	case strings.TrimSpace(g.LocationID) == "":
		return errors.New("missing location_id")
	case strings.TrimSpace(g.OccasionID) == "":
		return errors.New("missing occasion_id")
	}
	return nil
}

type activeRequest struct {
	Active *bool `json:"active"`
}

// HandleGenerate handles POST /decks requests.
func (h *DeckHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	deck, err := h.decks.GenerateDeck(r.Context(), req.LocationID, req.OccasionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, deck)
}

// HandleGetByCode handles GET /decks/{code} requests.
func (h *DeckHandler) HandleGetByCode(w http.ResponseWriter, r *http.Request) {
	deck, err := h.decks.DeckByAccessCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

// HandleActive handles GET /locations/{id}/deck requests.
func (h *DeckHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	deck, found, err := h.decks.ActiveDeckForLocation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !found {
		writeServiceError(w, ErrNoActive)
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

// HandleSetActive handles PUT /decks/{id}/active requests.
func (h *DeckHandler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if req.Active == nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing active"))
		return
	}
	if err := h.decks.SetDeckActive(r.Context(), chi.URLParam(r, "id"), *req.Active); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
