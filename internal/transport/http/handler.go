package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"staar-quiz-service/internal/app"
	"staar-quiz-service/internal/domain"
)

const maxCheckBodyBytes = 4 << 10

// Handler serves the question store over REST.
type Handler struct {
	backend  app.QuestionBackend
	version  string
	validate *validator.Validate
}

func NewHandler(backend app.QuestionBackend, version string) *Handler {
	return &Handler{
		backend:  backend,
		version:  version,
		validate: validator.New(),
	}
}

// Routes registers the REST routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/questions", h.handleListQuestions)
	r.Post("/check", h.handleCheck)
	r.Get("/health", h.handleHealth)
}

type checkRequest struct {
	QuestionID     *int `json:"questionId" validate:"required"`
	SelectedOption *int `json:"selectedOption" validate:"required"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.backend.ListPublicQuestions(r.Context())
	if err != nil {
		// Degraded: the client sees an empty quiz rather than a failure.
		slog.WarnContext(r.Context(), "list questions failed", "error", err)
	}
	if questions == nil {
		questions = []domain.PublicQuestion{}
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxCheckBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "questionId and selectedOption are required"})
		return
	}

	result, err := h.backend.CheckAnswer(r.Context(), *req.QuestionID, *req.SelectedOption)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, domain.ErrQuestionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Question not found"})
	case errors.Is(err, domain.ErrStoreUnavailable):
		slog.WarnContext(r.Context(), "check answer: store unavailable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "questions unavailable"})
	default:
		slog.ErrorContext(r.Context(), "check answer failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: h.version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}
