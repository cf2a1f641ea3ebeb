package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/Sufyane-M/UniTOLC-sub001/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Default pacing for the simulation lifecycle. The break-skip minimum
// wait is deliberately configurable; it is a pacing knob, not business
// logic.
const (
	DefaultBreakDuration    = 5 * time.Minute
	DefaultBreakMinWait     = 5 * time.Second
	DefaultAutosaveInterval = 30 * time.Second
)

// Engine creates and resumes simulation controllers. It holds the
// collaborators shared by every session: the durable store, the exam
// type catalog, the question source and the optional answer cache.
type Engine struct {
	store     Store
	catalog   Catalog
	questions QuestionSource
	cache     AnswerCache
	log       zerolog.Logger
	now       func() time.Time

	breakDuration    time.Duration
	breakMinWait     time.Duration
	autosaveInterval time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithAnswerCache wires a fast-path cache for autosaved answers.
func WithAnswerCache(cache AnswerCache) Option {
	return func(e *Engine) { e.cache = cache }
}

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log.With().Str("component", "simulation").Logger() }
}

// WithClock overrides the wall clock. Used by tests to verify resume
// time reconstruction.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithBreakDuration sets the inter-section break window.
func WithBreakDuration(d time.Duration) Option {
	return func(e *Engine) { e.breakDuration = d }
}

// WithBreakMinWait sets the minimum elapsed break time before skipping
// ahead is allowed.
func WithBreakMinWait(d time.Duration) Option {
	return func(e *Engine) { e.breakMinWait = d }
}

// WithAutosaveInterval sets the periodic autosave flush period.
func WithAutosaveInterval(d time.Duration) Option {
	return func(e *Engine) { e.autosaveInterval = d }
}

// New creates a simulation engine.
func New(store Store, catalog Catalog, questions QuestionSource, opts ...Option) *Engine {
	e := &Engine{
		store:            store,
		catalog:          catalog,
		questions:        questions,
		log:              zerolog.Nop(),
		now:              time.Now,
		breakDuration:    DefaultBreakDuration,
		breakMinWait:     DefaultBreakMinWait,
		autosaveInterval: DefaultAutosaveInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartSession begins a new simulation for the user. It fails with
// ErrSessionConflict if an in_progress session already exists (the
// caller should offer resume), creates the session and one attempt per
// section (the first already in_progress), fetches the randomized
// questions and returns a controller with the first section live.
// All created rows are persisted before the controller is returned.
func (e *Engine) StartSession(ctx context.Context, examTypeID, userID uuid.UUID) (*Controller, error) {
	existing, err := e.store.GetInProgressSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check in-progress session: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w (session %s)", ErrSessionConflict, existing.ID)
	}

	examType, err := e.catalog.GetExamType(ctx, examTypeID)
	if err != nil {
		return nil, fmt.Errorf("load exam type: %w", err)
	}
	if len(examType.Sections) == 0 {
		return nil, fmt.Errorf("%w: exam type %s has no sections", ErrNotFound, examType.Code)
	}

	now := e.now()
	session := &model.Session{
		UserID:     userID,
		ExamTypeID: examTypeID,
		Status:     model.SessionStatusInProgress,
		StartedAt:  now,
	}
	if err := e.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	sectionIDs := make([]uuid.UUID, len(examType.Sections))
	for i, s := range examType.Sections {
		sectionIDs[i] = s.ID
	}

	attempts, err := e.store.CreateSectionAttempts(ctx, session.ID, sectionIDs)
	if err != nil {
		return nil, fmt.Errorf("create section attempts: %w", err)
	}

	// The first section starts immediately.
	first := &attempts[0]
	status := model.AttemptStatusInProgress
	startedAt := now
	patch := AttemptPatch{Status: &status, StartedAt: &startedAt}
	if err := e.store.UpdateSectionAttempt(ctx, first.ID, patch); err != nil {
		return nil, fmt.Errorf("start first section: %w", err)
	}
	first.Status = status
	first.StartedAt = &startedAt

	questions, err := e.questions.RandomizedQuestions(ctx, examTypeID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	ctrl := e.newController(session, examType, attempts, partitionBySection(questions))
	ctrl.activateSection(0, time.Duration(examType.Sections[0].TimeLimitMinutes)*time.Minute)

	e.log.Info().
		Str("session_id", session.ID.String()).
		Str("user_id", userID.String()).
		Str("exam_type", examType.Code).
		Msg("simulation started")

	return ctrl, nil
}

// ResumeSession rebuilds a controller from persisted state. Remaining
// section time is reconstructed from the stored started_at wall clock,
// never from a client-side countdown, so closing and reopening the page
// cannot extend the limit. If the active section's time expired while
// offline, its completion is forced before the controller is returned.
func (e *Engine) ResumeSession(ctx context.Context, sessionID uuid.UUID) (*Controller, error) {
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session.Status == model.SessionStatusCompleted {
		return nil, fmt.Errorf("%w: session %s is already completed", ErrSequence, sessionID)
	}

	examType, err := e.catalog.GetExamType(ctx, session.ExamTypeID)
	if err != nil {
		return nil, fmt.Errorf("load exam type: %w", err)
	}

	stored, err := e.store.GetSectionAttempts(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load section attempts: %w", err)
	}

	attempts, activeIdx, err := orderAttempts(examType, stored)
	if err != nil {
		return nil, err
	}

	questions, err := e.questions.RandomizedQuestions(ctx, session.ExamTypeID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	ctrl := e.newController(session, examType, attempts, partitionBySection(questions))

	if activeIdx < 0 {
		// No in_progress attempt: either the user left during a break
		// (next section still pending) or every section finished but the
		// final session write was lost. Both are recoverable.
		return e.resumeWithoutActive(ctx, ctrl)
	}

	attempt := &ctrl.attempts[activeIdx]
	section := examType.Sections[activeIdx]

	limit := time.Duration(section.TimeLimitMinutes) * time.Minute
	remaining := limit - e.now().Sub(*attempt.StartedAt)
	if remaining < 0 {
		remaining = 0
	}

	ctrl.adoptAnswers(ctx, attempt)

	if remaining == 0 {
		// Time expired while offline. Force the completion before
		// handing control back to the caller.
		ctrl.phase = PhaseSection
		ctrl.activeIdx = activeIdx
		if _, err := ctrl.ForceTimeoutCompletion(ctx); err != nil {
			return nil, fmt.Errorf("force expired section completion: %w", err)
		}
		return ctrl, nil
	}

	ctrl.activateSection(activeIdx, remaining)

	e.log.Info().
		Str("session_id", sessionID.String()).
		Int("section", activeIdx).
		Dur("remaining", remaining).
		Msg("simulation resumed")

	return ctrl, nil
}

// resumeWithoutActive handles a session with zero in_progress attempts.
func (e *Engine) resumeWithoutActive(ctx context.Context, ctrl *Controller) (*Controller, error) {
	next := ctrl.nextPendingIndex()
	if next == 0 {
		// Nothing ever started; the session row should not exist in this
		// shape.
		return nil, fmt.Errorf("%w: session %s has no started attempts", ErrCorruptSession, ctrl.session.ID)
	}

	if next < 0 {
		// Every section completed but the session is still in_progress:
		// the final write was lost. Retry the finalization now.
		if err := ctrl.finalize(ctx); err != nil {
			return nil, fmt.Errorf("finalize resumed session: %w", err)
		}
		return ctrl, nil
	}

	// Resumed mid-break. The break window is treated as expired, so the
	// only affordance is starting the next section explicitly.
	ctrl.phase = PhaseBreak
	return ctrl, nil
}

// orderAttempts reorders stored attempts into the exam type's section
// order and validates the single-active-attempt and strict-ordering
// invariants. Returns the ordered slice and the index of the in_progress
// attempt (-1 when none).
func orderAttempts(examType *model.ExamType, stored []model.SectionAttempt) ([]model.SectionAttempt, int, error) {
	if len(stored) != len(examType.Sections) {
		return nil, 0, fmt.Errorf("%w: %d attempts for %d sections", ErrCorruptSession, len(stored), len(examType.Sections))
	}

	bySection := make(map[uuid.UUID]model.SectionAttempt, len(stored))
	for _, a := range stored {
		bySection[a.SectionID] = a
	}

	ordered := make([]model.SectionAttempt, 0, len(examType.Sections))
	activeIdx := -1
	seenNonCompleted := false

	for i, section := range examType.Sections {
		attempt, ok := bySection[section.ID]
		if !ok {
			return nil, 0, fmt.Errorf("%w: missing attempt for section %s", ErrCorruptSession, section.Name)
		}

		switch attempt.Status {
		case model.AttemptStatusCompleted:
			if seenNonCompleted {
				return nil, 0, fmt.Errorf("%w: completed attempt after unfinished one", ErrCorruptSession)
			}
		case model.AttemptStatusInProgress:
			if activeIdx >= 0 {
				return nil, 0, fmt.Errorf("%w: multiple in_progress attempts", ErrCorruptSession)
			}
			if attempt.StartedAt == nil {
				return nil, 0, fmt.Errorf("%w: in_progress attempt without started_at", ErrCorruptSession)
			}
			activeIdx = i
			seenNonCompleted = true
		case model.AttemptStatusPending:
			seenNonCompleted = true
		default:
			return nil, 0, fmt.Errorf("%w: unknown attempt status %q", ErrCorruptSession, attempt.Status)
		}

		ordered = append(ordered, attempt)
	}

	return ordered, activeIdx, nil
}

func partitionBySection(questions []model.Question) map[uuid.UUID][]model.Question {
	grouped := make(map[uuid.UUID][]model.Question)
	for _, q := range questions {
		grouped[q.SectionID] = append(grouped[q.SectionID], q)
	}
	return grouped
}
