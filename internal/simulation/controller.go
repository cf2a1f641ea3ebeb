package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sufyane-M/UniTOLC-sub001/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Phase is the controller's current position in the simulation lifecycle.
type Phase string

const (
	PhaseSection   Phase = "section"
	PhaseBreak     Phase = "break"
	PhaseCompleted Phase = "completed"
	PhaseAbandoned Phase = "abandoned"
)

// SectionOutcome is the result of completing one section.
type SectionOutcome struct {
	Attempt model.SectionAttempt `json:"attempt"`
	Score   model.Score          `json:"score"`
	// Final is set when the completed section was the last one.
	Final *model.FinalReport `json:"final,omitempty"`
	// BreakDuration is set when a break follows; the caller must invoke
	// StartNextSection to proceed.
	BreakDuration time.Duration `json:"-"`
}

// State is a read-only snapshot of the controller for the UI layer.
type State struct {
	SessionID             uuid.UUID `json:"session_id"`
	ExamTypeID            uuid.UUID `json:"exam_type_id"`
	Phase                 Phase     `json:"phase"`
	SectionIndex          int       `json:"section_index"`
	SectionID             uuid.UUID `json:"section_id,omitempty"`
	SectionName           string    `json:"section_name,omitempty"`
	QuestionCursor        int       `json:"question_cursor"`
	QuestionCount         int       `json:"question_count"`
	AnsweredCount         int       `json:"answered_count"`
	RemainingSeconds      int       `json:"remaining_seconds"`
	BreakRemainingSeconds int       `json:"break_remaining_seconds"`
	BreakSkippable        bool      `json:"break_skippable"`
}

// Controller drives one exam attempt from start (or resume) to
// completion, enforcing section ordering and time limits. It owns the
// in-memory mirrors of the session and the active attempt's answer map;
// the store remains the system of record.
//
// mu guards the session state machine. The answer map is guarded by
// saveMu alone so that autosave flushes never contend with transitions;
// lock order is always mu before saveMu.
type Controller struct {
	engine *Engine
	log    zerolog.Logger

	mu                 sync.Mutex
	session            *model.Session
	examType           *model.ExamType
	attempts           []model.SectionAttempt
	questionsBySection map[uuid.UUID][]model.Question

	phase           Phase
	activeIdx       int
	cursor          int
	activeQuestions map[uuid.UUID]model.Question

	sectionTimer *Countdown
	breakTimer   *Countdown
	autosave     *Scheduler

	report        *model.FinalReport
	closed        bool
	onComplete    func(*model.FinalReport)
	pendingNotify func()

	saveMu        sync.Mutex
	saveAttemptID uuid.UUID
	answers       map[uuid.UUID]string
}

func (e *Engine) newController(
	session *model.Session,
	examType *model.ExamType,
	attempts []model.SectionAttempt,
	questionsBySection map[uuid.UUID][]model.Question,
) *Controller {
	c := &Controller{
		engine:             e,
		log:                e.log.With().Str("session_id", session.ID.String()).Logger(),
		session:            session,
		examType:           examType,
		attempts:           attempts,
		questionsBySection: questionsBySection,
		activeIdx:          -1,
		answers:            make(map[uuid.UUID]string),
	}
	c.autosave = NewScheduler(e.autosaveInterval, c.flushAnswers, c.log)
	return c
}

// SetOnComplete registers the completion callback carrying the final
// aggregated report. Must be set before the section timer can expire.
func (c *Controller) SetOnComplete(fn func(*model.FinalReport)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onComplete = fn
}

// SessionID returns the session id.
func (c *Controller) SessionID() uuid.UUID {
	return c.session.ID
}

// UserID returns the owning user's id.
func (c *Controller) UserID() uuid.UUID {
	return c.session.UserID
}

// Session returns a copy of the in-memory session mirror.
func (c *Controller) Session() model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.session
}

// Report returns the final report, or nil while the exam is running.
func (c *Controller) Report() *model.FinalReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report
}

// RecordAnswer stores the chosen option for a question of the active
// section. O(1), idempotent (re-answering overwrites), never persisted
// directly: the autosave scheduler owns durability.
func (c *Controller) RecordAnswer(questionID uuid.UUID, optionKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseSection {
		return fmt.Errorf("%w: no section is in progress", ErrSequence)
	}

	q, ok := c.activeQuestions[questionID]
	if !ok {
		return fmt.Errorf("%w: question %s is not part of the active section", ErrNotFound, questionID)
	}
	if _, ok := q.Options[optionKey]; !ok {
		return fmt.Errorf("unknown option key %q for question %s", optionKey, questionID)
	}

	c.saveMu.Lock()
	c.answers[questionID] = optionKey
	c.saveMu.Unlock()
	return nil
}

// AdvanceQuestion moves the cursor forward within the active section.
// Moving past the last question is a no-op; completion stays explicit.
func (c *Controller) AdvanceQuestion() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseSection {
		return fmt.Errorf("%w: no section is in progress", ErrSequence)
	}
	if c.cursor < len(c.activeQuestionList())-1 {
		c.cursor++
	}
	return nil
}

// RetreatQuestion moves the cursor backward; no-op at index zero.
func (c *Controller) RetreatQuestion() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseSection {
		return fmt.Errorf("%w: no section is in progress", ErrSequence)
	}
	if c.cursor > 0 {
		c.cursor--
	}
	return nil
}

// ActiveQuestion returns the question under the cursor, stripped of
// grading fields, and its index.
func (c *Controller) ActiveQuestion() (model.Question, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.activeQuestionList()
	if c.phase != PhaseSection || c.cursor >= len(list) {
		return model.Question{}, 0, false
	}
	return list[c.cursor].ForCandidate(), c.cursor, true
}

// SectionQuestions returns the active section's questions in
// presentation order, stripped of grading fields.
func (c *Controller) SectionQuestions() []model.Question {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.activeQuestionList()
	out := make([]model.Question, len(list))
	for i, q := range list {
		out[i] = q.ForCandidate()
	}
	return out
}

// RemainingTime returns the active section's remaining time.
func (c *Controller) RemainingTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sectionTimer == nil {
		return 0
	}
	return c.sectionTimer.Remaining()
}

// BreakRemaining returns the remaining break window.
func (c *Controller) BreakRemaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.breakTimer == nil {
		return 0
	}
	return c.breakTimer.Remaining()
}

// CanSkipBreak reports whether StartNextSection would be accepted now.
func (c *Controller) CanSkipBreak() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == PhaseBreak && c.breakSkippableLocked()
}

// Snapshot returns the UI-facing state projection.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := State{
		SessionID:    c.session.ID,
		ExamTypeID:   c.session.ExamTypeID,
		Phase:        c.phase,
		SectionIndex: c.activeIdx,
	}

	if c.phase == PhaseSection && c.activeIdx >= 0 {
		section := c.examType.Sections[c.activeIdx]
		state.SectionID = section.ID
		state.SectionName = section.Name
		state.QuestionCursor = c.cursor
		state.QuestionCount = len(c.activeQuestionList())
		if c.sectionTimer != nil {
			state.RemainingSeconds = int(c.sectionTimer.Remaining().Round(time.Second) / time.Second)
		}
	}

	if c.phase == PhaseBreak {
		if c.breakTimer != nil {
			state.BreakRemainingSeconds = int(c.breakTimer.Remaining().Round(time.Second) / time.Second)
		}
		state.BreakSkippable = c.breakSkippableLocked()
	}

	c.saveMu.Lock()
	state.AnsweredCount = len(c.answers)
	c.saveMu.Unlock()

	return state
}

// CompleteActiveSection closes the active section: synchronously
// persists the final answer set together with its score and time spent,
// then either opens the break window or, after the last section,
// finalizes the whole session. In-memory state advances only after the
// store acknowledged the write, so a failed call is safe to retry.
func (c *Controller) CompleteActiveSection(ctx context.Context) (*SectionOutcome, error) {
	c.mu.Lock()
	outcome, err := c.completeActiveLocked(ctx, false)
	notify := c.takeNotifyLocked()
	c.mu.Unlock()

	if notify != nil {
		notify()
	}
	return outcome, err
}

// ForceTimeoutCompletion is invoked when the section timer reaches zero.
// Identical to CompleteActiveSection, but idempotent: a stale or
// duplicate firing after the section already ended is a no-op.
func (c *Controller) ForceTimeoutCompletion(ctx context.Context) (*SectionOutcome, error) {
	c.mu.Lock()
	outcome, err := c.completeActiveLocked(ctx, true)
	notify := c.takeNotifyLocked()
	c.mu.Unlock()

	if notify != nil {
		notify()
	}
	return outcome, err
}

// StartNextSection moves from the break into the next pending section.
// Before the break expires it is only accepted once the configured
// minimum wait has elapsed; after expiry it is always accepted. The
// break never auto-advances.
func (c *Controller) StartNextSection(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.report != nil {
		return fmt.Errorf("%w: session is no longer running", ErrSequence)
	}
	if c.phase != PhaseBreak {
		return fmt.Errorf("%w: current section is not completed", ErrSequence)
	}
	if !c.breakSkippableLocked() {
		return fmt.Errorf("%w: wait at least %s", ErrBreakTooSoon, c.engine.breakMinWait)
	}

	next := c.nextPendingIndex()
	if next < 0 {
		return fmt.Errorf("%w: no pending section left", ErrSequence)
	}

	attempt := &c.attempts[next]
	now := c.engine.now()
	status := model.AttemptStatusInProgress
	patch := AttemptPatch{Status: &status, StartedAt: &now}
	if err := c.engine.store.UpdateSectionAttempt(ctx, attempt.ID, patch); err != nil {
		return fmt.Errorf("persist section start: %w", err)
	}
	attempt.Status = status
	attempt.StartedAt = &now

	if c.breakTimer != nil {
		c.breakTimer.Stop()
		c.breakTimer = nil
	}

	c.resetAnswers()
	section := c.examType.Sections[next]
	c.activateSection(next, time.Duration(section.TimeLimitMinutes)*time.Minute)

	c.log.Info().Str("section", section.Name).Msg("section started")
	return nil
}

// AbandonSession persists the current answers best-effort and tears the
// controller down, leaving the session in_progress so it can be resumed
// later. Exiting is not the same as completing.
func (c *Controller) AbandonSession(ctx context.Context, reason string) error {
	c.mu.Lock()
	if c.closed || c.report != nil {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.phase = PhaseAbandoned
	c.stopTimersLocked()

	c.saveMu.Lock()
	attemptID := c.saveAttemptID
	answers := cloneAnswers(c.answers)
	c.saveAttemptID = uuid.Nil
	c.saveMu.Unlock()
	c.mu.Unlock()

	c.autosave.Stop()

	if attemptID != uuid.Nil {
		if err := c.engine.store.UpdateSectionAttempt(ctx, attemptID, AttemptPatch{Answers: answers}); err != nil {
			c.log.Warn().Err(err).Msg("final autosave on abandon failed")
		}
		if c.engine.cache != nil {
			if err := c.engine.cache.SaveAnswers(ctx, attemptID, answers); err != nil {
				c.log.Debug().Err(err).Msg("answer cache write failed on abandon")
			}
		}
	}

	c.log.Info().Str("reason", reason).Msg("simulation abandoned")
	return nil
}

// ─── internals ──────────────────────────────────────────────────────

func (c *Controller) completeActiveLocked(ctx context.Context, forced bool) (*SectionOutcome, error) {
	if c.closed {
		if forced {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: session was abandoned", ErrSequence)
	}
	if c.report != nil {
		if forced {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: session is already completed", ErrSequence)
	}

	if c.phase != PhaseSection || c.activeIdx < 0 {
		if forced {
			// Stale timer firing after the section already ended.
			return nil, nil
		}
		// Retry path: every attempt is completed but the final session
		// write failed earlier. Repeating the call retries it.
		if c.activeIdx < 0 && c.nextPendingIndex() < 0 && c.allCompletedLocked() {
			if err := c.finalizeLocked(ctx); err != nil {
				return nil, err
			}
			last := c.attempts[len(c.attempts)-1]
			return &SectionOutcome{Attempt: last, Score: *last.Score, Final: c.report}, nil
		}
		return nil, fmt.Errorf("%w: no section is in progress", ErrSequence)
	}

	attempt := &c.attempts[c.activeIdx]
	section := c.examType.Sections[c.activeIdx]
	limit := time.Duration(section.TimeLimitMinutes) * time.Minute

	// Authoritative time spent comes from the persisted started_at wall
	// clock, not from the countdown projection.
	now := c.engine.now()
	elapsed := now.Sub(*attempt.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > limit {
		elapsed = limit
	}
	timeSpent := int(elapsed / time.Second)

	c.saveMu.Lock()
	answers := cloneAnswers(c.answers)
	c.saveMu.Unlock()

	score := ScoreSection(c.questionsBySection[section.ID], answers)

	status := model.AttemptStatusCompleted
	patch := AttemptPatch{
		Status:           &status,
		CompletedAt:      &now,
		TimeSpentSeconds: &timeSpent,
		Score:            &score,
		Answers:          answers,
	}
	if err := c.engine.store.UpdateSectionAttempt(ctx, attempt.ID, patch); err != nil {
		return nil, fmt.Errorf("persist section completion: %w", err)
	}

	attempt.Status = status
	attempt.CompletedAt = &now
	attempt.TimeSpentSeconds = &timeSpent
	attempt.Score = &score
	attempt.Answers = answers

	c.stopSectionTimerLocked()
	c.saveMu.Lock()
	c.saveAttemptID = uuid.Nil
	c.saveMu.Unlock()
	c.autosave.Stop()

	if c.engine.cache != nil {
		if err := c.engine.cache.ClearAnswers(ctx, attempt.ID); err != nil {
			c.log.Debug().Err(err).Msg("answer cache clear failed")
		}
	}

	c.activeIdx = -1
	c.activeQuestions = nil

	outcome := &SectionOutcome{Attempt: *attempt, Score: score}

	c.log.Info().
		Str("section", section.Name).
		Bool("forced", forced).
		Float64("raw", score.Raw).
		Int("time_spent", timeSpent).
		Msg("section completed")

	if c.nextPendingIndex() < 0 {
		if err := c.finalizeLocked(ctx); err != nil {
			return nil, err
		}
		outcome.Final = c.report
		return outcome, nil
	}

	c.phase = PhaseBreak
	c.breakTimer = NewCountdown(c.engine.breakDuration, nil)
	outcome.BreakDuration = c.engine.breakDuration
	return outcome, nil
}

func (c *Controller) finalizeLocked(ctx context.Context) error {
	now := c.engine.now()
	report := BuildFinalReport(c.examType, c.session, c.attempts, c.questionsBySection, now)

	status := model.SessionStatusCompleted
	patch := SessionPatch{Status: &status, CompletedAt: &now}
	if err := c.engine.store.UpdateSession(ctx, c.session.ID, patch); err != nil {
		return fmt.Errorf("persist session completion: %w", err)
	}

	c.session.Status = status
	c.session.CompletedAt = &now
	c.report = report
	c.phase = PhaseCompleted
	c.stopTimersLocked()

	if c.onComplete != nil {
		cb := c.onComplete
		c.pendingNotify = func() { cb(report) }
	}

	c.log.Info().Float64("overall", report.OverallScore).Msg("simulation completed")
	return nil
}

// finalize is the retry entry used when a resumed session has every
// attempt completed but the final session write was lost.
func (c *Controller) finalize(ctx context.Context) error {
	c.mu.Lock()
	err := c.finalizeLocked(ctx)
	notify := c.takeNotifyLocked()
	c.mu.Unlock()

	if notify != nil {
		notify()
	}
	return err
}

// activateSection makes attempts[idx] the live section with the given
// remaining time, arms the countdown and starts the autosave loop.
// Callers prepare the answer map beforehand.
func (c *Controller) activateSection(idx int, remaining time.Duration) {
	section := c.examType.Sections[idx]

	c.phase = PhaseSection
	c.activeIdx = idx
	c.cursor = 0

	c.activeQuestions = make(map[uuid.UUID]model.Question)
	for _, q := range c.questionsBySection[section.ID] {
		c.activeQuestions[q.ID] = q
	}

	c.saveMu.Lock()
	c.saveAttemptID = c.attempts[idx].ID
	c.saveMu.Unlock()

	c.sectionTimer = NewCountdown(remaining, c.handleSectionExpiry)
	c.autosave.Start(context.Background())
}

// handleSectionExpiry runs on the countdown goroutine.
func (c *Controller) handleSectionExpiry() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := c.ForceTimeoutCompletion(ctx); err != nil {
		// The write failed; state is un-advanced and the next explicit
		// completion (or resume) retries it.
		c.log.Error().Err(err).Msg("forced timeout completion failed")
	}
}

// adoptAnswers loads the attempt's persisted answer blob into memory,
// overlaid with the cache, which may be fresher than the last durable
// write.
func (c *Controller) adoptAnswers(ctx context.Context, attempt *model.SectionAttempt) {
	answers := cloneAnswers(attempt.Answers)

	if c.engine.cache != nil {
		cached, err := c.engine.cache.LoadAnswers(ctx, attempt.ID)
		if err != nil {
			c.log.Debug().Err(err).Msg("answer cache read failed on resume")
		}
		for qid, key := range cached {
			answers[qid] = key
		}
	}

	c.saveMu.Lock()
	c.answers = answers
	c.saveMu.Unlock()
}

// flushAnswers is the autosave target: persist the full answer blob for
// the live attempt. A nil target (no live section) is a no-op.
func (c *Controller) flushAnswers(ctx context.Context) error {
	c.saveMu.Lock()
	attemptID := c.saveAttemptID
	answers := cloneAnswers(c.answers)
	c.saveMu.Unlock()

	if attemptID == uuid.Nil {
		return nil
	}

	if err := c.engine.store.UpdateSectionAttempt(ctx, attemptID, AttemptPatch{Answers: answers}); err != nil {
		return err
	}

	if c.engine.cache != nil {
		if err := c.engine.cache.SaveAnswers(ctx, attemptID, answers); err != nil {
			c.log.Debug().Err(err).Msg("answer cache write failed")
		}
	}
	return nil
}

func (c *Controller) resetAnswers() {
	c.saveMu.Lock()
	c.answers = make(map[uuid.UUID]string)
	c.saveMu.Unlock()
}

func (c *Controller) activeQuestionList() []model.Question {
	if c.activeIdx < 0 {
		return nil
	}
	return c.questionsBySection[c.examType.Sections[c.activeIdx].ID]
}

func (c *Controller) nextPendingIndex() int {
	for i := range c.attempts {
		if c.attempts[i].Status == model.AttemptStatusPending {
			return i
		}
	}
	return -1
}

func (c *Controller) allCompletedLocked() bool {
	for i := range c.attempts {
		if c.attempts[i].Status != model.AttemptStatusCompleted {
			return false
		}
	}
	return true
}

func (c *Controller) breakSkippableLocked() bool {
	if c.breakTimer == nil || c.breakTimer.Expired() {
		return true
	}
	return c.breakTimer.Elapsed() >= c.engine.breakMinWait
}

func (c *Controller) stopSectionTimerLocked() {
	if c.sectionTimer != nil {
		c.sectionTimer.Stop()
		c.sectionTimer = nil
	}
}

func (c *Controller) stopTimersLocked() {
	c.stopSectionTimerLocked()
	if c.breakTimer != nil {
		c.breakTimer.Stop()
		c.breakTimer = nil
	}
}

func (c *Controller) takeNotifyLocked() func() {
	notify := c.pendingNotify
	c.pendingNotify = nil
	return notify
}

func cloneAnswers(answers map[uuid.UUID]string) map[uuid.UUID]string {
	out := make(map[uuid.UUID]string, len(answers))
	for qid, key := range answers {
		out[qid] = key
	}
	return out
}
