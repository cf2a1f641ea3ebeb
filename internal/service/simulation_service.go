package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sufyane-M/UniTOLC-sub001/internal/model"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/repository"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/simulation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SimulationService bridges the HTTP layer and the simulation engine.
// It keeps the registry of live controllers, one per running session,
// and evicts them on completion or abandonment. A resumed page reload
// reattaches to the live controller when one exists; otherwise the
// engine rebuilds it from the store.
type SimulationService struct {
	engine       *simulation.Engine
	examTypeRepo *repository.ExamTypeRepository
	log          zerolog.Logger

	mu   sync.Mutex
	live map[uuid.UUID]*simulation.Controller
}

// NewSimulationService creates a new SimulationService.
func NewSimulationService(engine *simulation.Engine, examTypeRepo *repository.ExamTypeRepository, log zerolog.Logger) *SimulationService {
	return &SimulationService{
		engine:       engine,
		examTypeRepo: examTypeRepo,
		log:          log.With().Str("component", "simulation_service").Logger(),
		live:         make(map[uuid.UUID]*simulation.Controller),
	}
}

// ListExamTypes returns the exam type catalog.
func (s *SimulationService) ListExamTypes(ctx context.Context) ([]model.ExamType, error) {
	return s.examTypeRepo.ListExamTypes(ctx)
}

// Start begins a new simulation for the user and registers its
// controller.
func (s *SimulationService) Start(ctx context.Context, examTypeID, userID uuid.UUID) (*simulation.Controller, error) {
	ctrl, err := s.engine.StartSession(ctx, examTypeID, userID)
	if err != nil {
		return nil, err
	}
	s.register(ctrl)
	return ctrl, nil
}

// Resume reattaches to a live controller or rebuilds one from the
// store. Ownership is enforced: a session can only be resumed by the
// user it belongs to.
func (s *SimulationService) Resume(ctx context.Context, sessionID, userID uuid.UUID) (*simulation.Controller, error) {
	s.mu.Lock()
	ctrl, ok := s.live[sessionID]
	s.mu.Unlock()

	if ok {
		if ctrl.UserID() != userID {
			return nil, fmt.Errorf("%w: session %s", simulation.ErrNotFound, sessionID)
		}
		return ctrl, nil
	}

	ctrl, err := s.engine.ResumeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ctrl.UserID() != userID {
		// Do not leak another user's session state.
		_ = ctrl.AbandonSession(ctx, "ownership check failed")
		return nil, fmt.Errorf("%w: session %s", simulation.ErrNotFound, sessionID)
	}

	if ctrl.Report() != nil {
		// Expired offline and finalized during resume; nothing stays live.
		return ctrl, nil
	}

	s.register(ctrl)
	return ctrl, nil
}

// Live returns the running controller for a session, enforcing
// ownership. It never touches the store; callers that want rebuild
// semantics use Resume.
func (s *SimulationService) Live(sessionID, userID uuid.UUID) (*simulation.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctrl, ok := s.live[sessionID]
	if !ok || ctrl.UserID() != userID {
		return nil, false
	}
	return ctrl, true
}

// Abandon flushes and tears down a live controller, leaving the session
// resumable.
func (s *SimulationService) Abandon(ctx context.Context, sessionID, userID uuid.UUID, reason string) error {
	ctrl, ok := s.Live(sessionID, userID)
	if !ok {
		return fmt.Errorf("%w: session %s", simulation.ErrNotFound, sessionID)
	}

	err := ctrl.AbandonSession(ctx, reason)
	s.evict(sessionID)
	return err
}

// Shutdown abandons every live controller, flushing answers best-effort.
// Called on server teardown.
func (s *SimulationService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	controllers := make([]*simulation.Controller, 0, len(s.live))
	for _, ctrl := range s.live {
		controllers = append(controllers, ctrl)
	}
	s.live = make(map[uuid.UUID]*simulation.Controller)
	s.mu.Unlock()

	for _, ctrl := range controllers {
		if err := ctrl.AbandonSession(ctx, "server shutdown"); err != nil {
			s.log.Warn().Err(err).Str("session_id", ctrl.SessionID().String()).Msg("shutdown abandon failed")
		}
	}
}

func (s *SimulationService) register(ctrl *simulation.Controller) {
	sessionID := ctrl.SessionID()
	ctrl.SetOnComplete(func(report *model.FinalReport) {
		s.evict(sessionID)
		s.log.Info().
			Str("session_id", sessionID.String()).
			Float64("overall_score", report.OverallScore).
			Msg("session completed")
	})

	s.mu.Lock()
	s.live[sessionID] = ctrl
	s.mu.Unlock()
}

func (s *SimulationService) evict(sessionID uuid.UUID) {
	s.mu.Lock()
	delete(s.live, sessionID)
	s.mu.Unlock()
}
