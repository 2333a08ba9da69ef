package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"exam-sim-service/internal/app"
	"exam-sim-service/internal/domain"
)

// Handler exposes the exam simulation engine over HTTP+JSON. Authentication
// is an upstream concern: a gateway injects the trusted X-User-Id and
// X-User-Name headers, and requests without a user id are rejected here.
type Handler struct {
	service *app.ExamService
}

func NewHandler(service *app.ExamService) *Handler {
	return &Handler{service: service}
}

// Register wires the routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/attempts/start", h.StartAttempt)
	mux.HandleFunc("POST /api/attempts/submit", h.SubmitAttempt)
	mux.HandleFunc("GET /api/simulations/{id}/statistics", h.SimulationStats)
}

type startRequest struct {
	SimulationID string `json:"simulationId"`
}

type simulationSummary struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Duration      int     `json:"duration"`
	QuestionCount int     `json:"questionCount"`
	PassingScore  float64 `json:"passingScore"`
}

type startResponse struct {
	ResultID   string            `json:"resultId"`
	Simulation simulationSummary `json:"simulation"`
	Questions  []clientQuestion  `json:"questions"`
}

// clientQuestion is the open-session view of a question: no answer key, no
// explanation.
type clientQuestion struct {
	ID         string   `json:"id"`
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	Difficulty string   `json:"difficulty,omitempty"`
	Points     int      `json:"points"`
	Order      int      `json:"order"`
	TopicID    string   `json:"topicId,omitempty"`
}

type submitRequest struct {
	ResultID  string            `json:"resultId"`
	Answers   map[string]string `json:"answers"`
	TimeSpent int               `json:"timeSpent"`
}

type submitResponse struct {
	Result          domain.ScoredResult            `json:"result"`
	Analysis        domain.Analysis                `json:"analysis"`
	DetailedAnswers map[string]domain.AnswerRecord `json:"detailedAnswers"`
}

type statsResponse struct {
	Simulation simulationSummary      `json:"simulation"`
	Statistics domain.SimulationStats `json:"statistics"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	AttemptID string `json:"attemptId,omitempty"`
}

func (h *Handler) StartAttempt(w http.ResponseWriter, r *http.Request) {
	userID, displayName, ok := userFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user identity", Code: "unauthorized"})
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SimulationID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "simulationId is required", Code: "validation_failed"})
		return
	}

	started, err := h.service.StartAttempt(r.Context(), userID, displayName, req.SimulationID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	questions := make([]clientQuestion, 0, len(started.Questions))
	for _, q := range started.Questions {
		questions = append(questions, clientQuestion{
			ID:         q.ID,
			Question:   q.Prompt,
			Options:    q.Options,
			Difficulty: q.Difficulty,
			Points:     q.EffectivePoints(),
			Order:      q.Order,
			TopicID:    q.TopicID,
		})
	}
	writeJSON(w, http.StatusCreated, startResponse{
		ResultID:   started.AttemptID,
		Simulation: summarize(started.Simulation, len(questions)),
		Questions:  questions,
	})
}

func (h *Handler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := userFromRequest(r); !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user identity", Code: "unauthorized"})
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid submit payload", Code: "validation_failed"})
		return
	}

	outcome, err := h.service.SubmitAttempt(r.Context(), req.ResultID, req.Answers, req.TimeSpent)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Result:          outcome.Result,
		Analysis:        outcome.Analysis,
		DetailedAnswers: outcome.Result.Answers,
	})
}

func (h *Handler) SimulationStats(w http.ResponseWriter, r *http.Request) {
	sim, stats, err := h.service.SimulationStats(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Simulation: summarize(sim, 0),
		Statistics: stats,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:     "an attempt is already in progress",
			Code:      "attempt_conflict",
			AttemptID: conflict.AttemptID,
		})
	case errors.Is(err, domain.ErrSimulationNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: "simulation_not_found"})
	case errors.Is(err, domain.ErrAttemptNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: "attempt_not_found"})
	case errors.Is(err, domain.ErrAttemptClosed):
		writeJSON(w, http.StatusGone, errorResponse{Error: err.Error(), Code: "attempt_already_closed"})
	case errors.Is(err, domain.ErrDeadlineExceeded):
		writeJSON(w, http.StatusGone, errorResponse{Error: err.Error(), Code: "attempt_deadline_exceeded"})
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "validation_failed"})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "internal"})
	}
}

func summarize(sim domain.Simulation, questionCount int) simulationSummary {
	if questionCount == 0 {
		questionCount = len(sim.Questions)
	}
	return simulationSummary{
		ID:            sim.ID,
		Title:         sim.Title,
		Duration:      sim.DurationMinutes,
		QuestionCount: questionCount,
		PassingScore:  sim.PassingScore,
	}
}

func userFromRequest(r *http.Request) (userID, displayName string, ok bool) {
	userID = r.Header.Get("X-User-Id")
	if userID == "" {
		return "", "", false
	}
	displayName = r.Header.Get("X-User-Name")
	if displayName == "" {
		displayName = userID
	}
	return userID, displayName, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}
