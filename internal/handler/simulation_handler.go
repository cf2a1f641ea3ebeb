package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/Sufyane-M/UniTOLC-sub001/internal/middleware"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/model"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/response"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/service"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/simulation"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SimulationHandler exposes the simulation engine to the UI layer.
type SimulationHandler struct {
	simService *service.SimulationService
}

// NewSimulationHandler creates a new SimulationHandler.
func NewSimulationHandler(simService *service.SimulationService) *SimulationHandler {
	return &SimulationHandler{simService: simService}
}

// ListExamTypes godoc
// GET /api/v1/exam-types
func (h *SimulationHandler) ListExamTypes(c *gin.Context) {
	examTypes, err := h.simService.ListExamTypes(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if examTypes == nil {
		examTypes = []model.ExamType{}
	}
	response.Success(c, http.StatusOK, gin.H{"exam_types": examTypes})
}

// Start godoc
// POST /api/v1/simulations
// Begins a new simulation; 409 when one is already in progress.
func (h *SimulationHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSimulationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ctrl, err := h.simService.Start(c.Request.Context(), req.ExamTypeID, claims.UserID)
	if err != nil {
		failSimulation(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"session":   ctrl.Session(),
		"state":     ctrl.Snapshot(),
		"questions": ctrl.SectionQuestions(),
	})
}

// Resume godoc
// POST /api/v1/simulations/:session_id/resume
// Reattaches to a running simulation, reconstructing remaining time
// from the persisted started_at. Returns the final report when the
// session turned out to be finished.
func (h *SimulationHandler) Resume(c *gin.Context) {
	claims, sessionID, ok := h.identify(c)
	if !ok {
		return
	}

	ctrl, err := h.simService.Resume(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSimulation(c, err)
		return
	}

	payload := gin.H{
		"session": ctrl.Session(),
		"state":   ctrl.Snapshot(),
	}
	if report := ctrl.Report(); report != nil {
		payload["report"] = report
	} else {
		payload["questions"] = ctrl.SectionQuestions()
	}

	response.Success(c, http.StatusOK, payload)
}

// State godoc
// GET /api/v1/simulations/:session_id/state
func (h *SimulationHandler) State(c *gin.Context) {
	ctrl, ok := h.liveController(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"state": ctrl.Snapshot()})
}

// Questions godoc
// GET /api/v1/simulations/:session_id/questions
// Returns the active section's paper, without grading fields.
func (h *SimulationHandler) Questions(c *gin.Context) {
	ctrl, ok := h.liveController(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": ctrl.SectionQuestions()})
}

// Answer godoc
// POST /api/v1/simulations/:session_id/answers
// Records an answer in memory; durability is the autosave loop's job.
func (h *SimulationHandler) Answer(c *gin.Context) {
	ctrl, ok := h.liveController(c)
	if !ok {
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := ctrl.RecordAnswer(req.QuestionID, req.OptionKey); err != nil {
		failSimulation(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"recorded": true})
}

// Advance godoc
// POST /api/v1/simulations/:session_id/advance
func (h *SimulationHandler) Advance(c *gin.Context) {
	h.moveCursor(c, func(ctrl *simulation.Controller) error { return ctrl.AdvanceQuestion() })
}

// Retreat godoc
// POST /api/v1/simulations/:session_id/retreat
func (h *SimulationHandler) Retreat(c *gin.Context) {
	h.moveCursor(c, func(ctrl *simulation.Controller) error { return ctrl.RetreatQuestion() })
}

// CompleteSection godoc
// POST /api/v1/simulations/:session_id/complete-section
// Explicitly closes the active section. Returns either the break
// signal or, after the last section, the final report.
func (h *SimulationHandler) CompleteSection(c *gin.Context) {
	ctrl, ok := h.liveController(c)
	if !ok {
		return
	}

	outcome, err := ctrl.CompleteActiveSection(c.Request.Context())
	if err != nil {
		failSimulation(c, err)
		return
	}

	payload := gin.H{
		"attempt": outcome.Attempt,
		"score":   outcome.Score,
		"state":   ctrl.Snapshot(),
	}
	if outcome.Final != nil {
		payload["report"] = outcome.Final
	} else {
		payload["break_seconds"] = int(outcome.BreakDuration / time.Second)
	}
	response.Success(c, http.StatusOK, payload)
}

// NextSection godoc
// POST /api/v1/simulations/:session_id/next-section
// Skips (or ends) the break and starts the next section.
func (h *SimulationHandler) NextSection(c *gin.Context) {
	ctrl, ok := h.liveController(c)
	if !ok {
		return
	}

	if err := ctrl.StartNextSection(c.Request.Context()); err != nil {
		failSimulation(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"state":     ctrl.Snapshot(),
		"questions": ctrl.SectionQuestions(),
	})
}

// Abandon godoc
// POST /api/v1/simulations/:session_id/abandon
// Saves current answers best-effort and leaves the session resumable.
func (h *SimulationHandler) Abandon(c *gin.Context) {
	claims, sessionID, ok := h.identify(c)
	if !ok {
		return
	}

	var req model.AbandonRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.simService.Abandon(c.Request.Context(), sessionID, claims.UserID, req.Reason); err != nil {
		failSimulation(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"abandoned": true})
}

// ─── helpers ────────────────────────────────────────────────────────

func (h *SimulationHandler) identify(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return claims, sessionID, true
}

func (h *SimulationHandler) liveController(c *gin.Context) (*simulation.Controller, bool) {
	claims, sessionID, ok := h.identify(c)
	if !ok {
		return nil, false
	}

	ctrl, ok := h.simService.Live(sessionID, claims.UserID)
	if !ok {
		response.Fail(c, http.StatusConflict, response.ErrNoLiveSession)
		return nil, false
	}
	return ctrl, true
}

func (h *SimulationHandler) moveCursor(c *gin.Context, move func(*simulation.Controller) error) {
	ctrl, ok := h.liveController(c)
	if !ok {
		return
	}
	if err := move(ctrl); err != nil {
		failSimulation(c, err)
		return
	}

	question, index, ok := ctrl.ActiveQuestion()
	payload := gin.H{"state": ctrl.Snapshot()}
	if ok {
		payload["question"] = question
		payload["index"] = index
	}
	response.Success(c, http.StatusOK, payload)
}

// failSimulation maps engine errors onto API error codes.
func failSimulation(c *gin.Context, err error) {
	switch {
	case errors.Is(err, simulation.ErrSessionConflict):
		response.Fail(c, http.StatusConflict, response.ErrSessionConflict)
	case errors.Is(err, simulation.ErrBreakTooSoon):
		response.Fail(c, http.StatusConflict, response.ErrBreakTooSoon)
	case errors.Is(err, simulation.ErrSequence):
		response.Fail(c, http.StatusConflict, response.ErrSectionOrder)
	case errors.Is(err, simulation.ErrCorruptSession):
		response.Fail(c, http.StatusConflict, response.ErrCorruptSession)
	case errors.Is(err, simulation.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
