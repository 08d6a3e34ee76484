package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/entalk/internal/app"
)

// FeedbackHandler handles feedback requests.
type FeedbackHandler struct {
	feedback FeedbackService
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(feedback FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

// HandleRecord handles POST /feedback requests.
func (h *FeedbackHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	var req service.FeedbackRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.QuestionID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing question_id"))
		return
	}
	fb, err := h.feedback.RecordFeedback(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

// HandleStats handles GET /questions/{id}/stats requests.
func (h *FeedbackHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.feedback.FeedbackStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleList handles GET /questions/{id}/feedback requests.
func (h *FeedbackHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	events, err := h.feedback.Feedback(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
