// Package api exposes the deck engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/entalk/internal/adapters/http/swagger"
	"github.com/okian/entalk/internal/adapters/repository"
	service "github.com/okian/entalk/internal/app"
	"github.com/okian/entalk/internal/domain/model"
)

// maxBodySize caps request bodies.
const maxBodySize = 1 << 20

// DeckService generates and looks up decks.
type DeckService interface {
	GenerateDeck(ctx context.Context, locationID, occasionID string) (model.HydratedDeck, error)
	DeckByAccessCode(ctx context.Context, code string) (model.HydratedDeck, error)
	ActiveDeckForLocation(ctx context.Context, locationID string) (model.HydratedDeck, bool, error)
	SetDeckActive(ctx context.Context, deckID string, active bool) error
}

// FeedbackService records reactions and reports on them.
type FeedbackService interface {
	RecordFeedback(ctx context.Context, req service.FeedbackRequest) (model.Feedback, error)
	FeedbackStats(ctx context.Context, questionID string) (service.FeedbackStats, error)
	Feedback(ctx context.Context, questionID string) ([]model.Feedback, error)
}

// QuestionService authors and lists questions and venues.
type QuestionService interface {
	CreateQuestions(ctx context.Context, occasionID string, drafts []model.Draft) ([]model.Question, error)
	QuestionsForOccasion(ctx context.Context, occasionID string) ([]model.Question, error)
	DraftQuestions(ctx context.Context, req service.DraftRequest, occasionID string) (service.Drafted, error)
	Question(ctx context.Context, id string) (model.Question, error)
	Locations(ctx context.Context) ([]model.Location, error)
}

// StatsProvider reports repository counts.
type StatsProvider interface {
	Stats(ctx context.Context) (repository.Stats, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the engine.
type Dependencies interface {
	DeckService
	FeedbackService
	QuestionService
	StatsProvider
}

// Server wires HTTP routes for the deck API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	deckHandler     *DeckHandler
	feedbackHandler *FeedbackHandler
	questionHandler *QuestionHandler
	catalogHandler  *CatalogHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		deckHandler:     NewDeckHandler(deps),
		feedbackHandler: NewFeedbackHandler(deps),
		questionHandler: NewQuestionHandler(deps),
		catalogHandler:  NewCatalogHandler(deps),
	}
}

// Routes returns the router serving every endpoint.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/metrics", s.healthHandler.HandleMetrics)

	r.Group(func(r chi.Router) {
		r.Use(Instrument)

		r.Get("/healthz", s.healthHandler.HandleHealth)
		r.Get("/stats", s.statsHandler.HandleStats)

		r.Post("/decks", s.deckHandler.HandleGenerate)
		r.Get("/decks/{code}", s.deckHandler.HandleGetByCode)
		r.Put("/decks/{id}/active", s.deckHandler.HandleSetActive)
		r.Get("/locations", s.catalogHandler.HandleLocations)
		r.Get("/locations/{id}/deck", s.deckHandler.HandleActive)

		r.Post("/feedback", s.feedbackHandler.HandleRecord)
		r.Get("/questions/{id}", s.questionHandler.HandleGet)
		r.Get("/questions/{id}/stats", s.feedbackHandler.HandleStats)
		r.Get("/questions/{id}/feedback", s.feedbackHandler.HandleList)

		r.Post("/occasions/{id}/questions", s.questionHandler.HandleCreate)
		r.Get("/occasions/{id}/questions", s.questionHandler.HandleList)
		r.Post("/occasions/{id}/questions/generate", s.questionHandler.HandleGenerate)
		r.Post("/questions/generate", s.questionHandler.HandleGenerate)

		r.Get("/catalog", s.catalogHandler.HandleCatalog)
	})

	swagger.Register(r)

	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps engine errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var repoErr *service.RepositoryError
	switch {
	case errors.Is(err, service.ErrDeckNotFound),
		errors.Is(err, service.ErrQuestionNotFound),
		errors.Is(err, ErrNoActive):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrInvalidPolarity),
		errors.Is(err, service.ErrInvalidQuestion),
		errors.Is(err, service.ErrInvalidDraft),
		errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrDuplicateFeedback):
		writeError(w, http.StatusConflict, "duplicate", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.As(err, &repoErr):
		writeError(w, http.StatusInternalServerError, "repository_error", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
