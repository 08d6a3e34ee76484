package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/entalk/internal/app"
	"github.com/okian/entalk/internal/domain/model"
)

// QuestionHandler handles question authoring requests.
type QuestionHandler struct {
	questions QuestionService
}

// NewQuestionHandler creates a new question handler.
func NewQuestionHandler(questions QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

type createQuestionsRequest struct {
	Questions []model.Draft `json:"questions"`
}

// HandleCreate handles POST /occasions/{id}/questions requests.
func (h *QuestionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createQuestionsRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if len(req.Questions) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("no questions"))
		return
	}
	created, err := h.questions.CreateQuestions(r.Context(), chi.URLParam(r, "id"), req.Questions)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleGenerate handles POST /occasions/{id}/questions/generate and
// POST /questions/generate. Drafts are stored only under an occasion.
func (h *QuestionHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req service.DraftRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	occasionID := chi.URLParam(r, "id")
	out, err := h.questions.DraftQuestions(r.Context(), req, occasionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if occasionID != "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, out)
}

// HandleList handles GET /occasions/{id}/questions requests.
func (h *QuestionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	qs, err := h.questions.QuestionsForOccasion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if qs == nil {
		qs = []model.Question{}
	}
	writeJSON(w, http.StatusOK, qs)
}

// HandleGet handles GET /questions/{id} requests.
func (h *QuestionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	q, err := h.questions.Question(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}
