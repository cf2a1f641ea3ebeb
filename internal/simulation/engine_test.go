package simulation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sufyane-M/UniTOLC-sub001/internal/model"
	"github.com/google/uuid"
)

func TestStartSession(t *testing.T) {
	examType, questions := twoSectionFixture()
	store := newMemStore(examType, questions)
	engine := testEngine(store)
	userID := uuid.New()

	ctrl, err := engine.StartSession(context.Background(), examType.ID, userID)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	defer ctrl.AbandonSession(context.Background(), "test teardown")

	state := ctrl.Snapshot()
	if state.Phase != PhaseSection {
		t.Errorf("Phase = %q, want %q", state.Phase, PhaseSection)
	}
	if state.SectionIndex != 0 {
		t.Errorf("SectionIndex = %d, want 0", state.SectionIndex)
	}
	if state.QuestionCount != 4 {
		t.Errorf("QuestionCount = %d, want 4", state.QuestionCount)
	}
	if state.RemainingSeconds < 295 || state.RemainingSeconds > 300 {
		t.Errorf("RemainingSeconds = %d, want about 300", state.RemainingSeconds)
	}

	attempts, _ := store.GetSectionAttempts(context.Background(), ctrl.SessionID())
	if len(attempts) != 2 {
		t.Fatalf("persisted attempts = %d, want 2", len(attempts))
	}
	if attempts[0].Status != model.AttemptStatusInProgress || attempts[0].StartedAt == nil {
		t.Errorf("first attempt = %+v, want in_progress with started_at", attempts[0])
	}
	if attempts[1].Status != model.AttemptStatusPending {
		t.Errorf("second attempt status = %q, want pending", attempts[1].Status)
	}

	if session := store.session(ctrl.SessionID()); session.Status != model.SessionStatusInProgress {
		t.Errorf("session status = %q, want in_progress", session.Status)
	}
}

func TestStartSessionConflict(t *testing.T) {
	examType, questions := twoSectionFixture()
	store := newMemStore(examType, questions)
	engine := testEngine(store)
	userID := uuid.New()

	ctrl, err := engine.StartSession(context.Background(), examType.ID, userID)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	defer ctrl.AbandonSession(context.Background(), "test teardown")

	if _, err := engine.StartSession(context.Background(), examType.ID, userID); !errors.Is(err, ErrSessionConflict) {
		t.Errorf("second StartSession() error = %v, want ErrSessionConflict", err)
	}

	// A different user is unaffected.
	other, err := engine.StartSession(context.Background(), examType.ID, uuid.New())
	if err != nil {
		t.Fatalf("StartSession() for other user error = %v", err)
	}
	other.AbandonSession(context.Background(), "test teardown")
}

func TestStartSessionUnknownExamType(t *testing.T) {
	examType, questions := twoSectionFixture()
	store := newMemStore(examType, questions)
	engine := testEngine(store)

	if _, err := engine.StartSession(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("StartSession() error = %v, want ErrNotFound", err)
	}
}

func TestResumeReconstructsRemainingTime(t *testing.T) {
	examType, questions := twoSectionFixture()
	store := newMemStore(examType, questions)
	clock := newFakeClock(time.Now().Add(-90 * time.Second))
	engine := testEngine(store, WithClock(clock.now))

	ctrl, err := engine.StartSession(context.Background(), examType.ID, uuid.New())
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	sessionID := ctrl.SessionID()
	ctrl.AbandonSession(context.Background(), "browser closed")

	// 90 seconds pass before the user comes back.
	clock.set(time.Now())

	resumed, err := engine.ResumeSession(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("ResumeSession() error = %v", err)
	}
	defer resumed.AbandonSession(context.Background(), "test teardown")

	// 5 minute limit minus 90 elapsed seconds.
	remaining := resumed.RemainingTime()
	if remaining < 205*time.Second || remaining > 210*time.Second {
		t.Errorf("RemainingTime() = %v, want about 210s", remaining)
	}
	if resumed.Snapshot().Phase != PhaseSection {
		t.Errorf("Phase = %q, want %q", resumed.Snapshot().Phase, PhaseSection)
	}
}

func TestResumeRestoresAnswers(t *testing.T) {
	examType, questions := twoSectionFixture()
	store := newMemStore(examType, questions)
	cache := newMemCache()
	engine := testEngine(store, WithAnswerCache(cache))

	ctrl, err := engine.StartSession(context.Background(), examType.ID, uuid.New())
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	sessionID := ctrl.SessionID()

	firstQs := ctrl.SectionQuestions()
	if err := ctrl.RecordAnswer(firstQs[0].ID, "a"); err != nil {
		t.Fatalf("RecordAnswer() error = %v", err)
	}
	if err := ctrl.RecordAnswer(firstQs[1].ID, "b"); err != nil {
		t.Fatalf("RecordAnswer() error = %v", err)
	}
	ctrl.AbandonSession(context.Background(), "browser closed")

	resumed, err := engine.ResumeSession(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("ResumeSession() error = %v", err)
	}
	defer resumed.AbandonSession(context.Background(), "test teardown")

	if got := resumed.Snapshot().AnsweredCount; got != 2 {
		t.Errorf("AnsweredCount after resume = %d, want 2", got)
	}
}

func TestResumeExpiredSectionForcesCompletion(t *testing.T) {
	examType, questions := twoSectionFixture()
	store := newMemStore(examType, questions)
	clock := newFakeClock(time.Now().Add(-10 * time.Minute))
	engine := testEngine(store, WithClock(clock.now))

	ctrl, err := engine.StartSession(context.Background(), examType.ID, uuid.New())
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	sessionID := ctrl.SessionID()
	ctrl.AbandonSession(context.Background(), "browser closed")

	// The 5 minute limit expired long ago.
	clock.set(time.Now())

	resumed, err := engine.ResumeSession(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("ResumeSession() error = %v", err)
	}
	defer resumed.AbandonSession(context.Background(), "test teardown")

	state := resumed.Snapshot()
	if state.Phase != PhaseBreak {
		t.Errorf("Phase = %q, want %q after forced completion", state.Phase, PhaseBreak)
	}

	attempts, _ := store.GetSectionAttempts(context.Background(), sessionID)
	first := attempts[0]
	if first.Status != model.AttemptStatusCompleted {
		t.Fatalf("first attempt status = %q, want completed", first.Status)
	}
	if first.TimeSpentSeconds == nil || *first.TimeSpentSeconds != 300 {
		t.Errorf("TimeSpentSeconds = %v, want clamped to the 300s limit", first.TimeSpentSeconds)
	}
	if first.Score == nil || first.Score.Unanswered != 4 {
		t.Errorf("Score = %+v, want 4 unanswered", first.Score)
	}
}

func TestResumeCompletedSession(t *testing.T) {
	examType, questions := twoSectionFixture()
	store := newMemStore(examType, questions)
	engine := testEngine(store)

	ctrl := runToCompletion(t, engine, examType)

	if _, err := engine.ResumeSession(context.Background(), ctrl.SessionID()); !errors.Is(err, ErrSequence) {
		t.Errorf("ResumeSession() of completed session error = %v, want ErrSequence", err)
	}
}

func TestResumeDuringBreak(t *testing.T) {
	examType, questions := twoSectionFixture()
	store := newMemStore(examType, questions)
	engine := testEngine(store)

	ctrl, err := engine.StartSession(context.Background(), examType.ID, uuid.New())
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	sessionID := ctrl.SessionID()

	if _, err := ctrl.CompleteActiveSection(context.Background()); err != nil {
		t.Fatalf("CompleteActiveSection() error = %v", err)
	}
	ctrl.AbandonSession(context.Background(), "left during break")

	resumed, err := engine.ResumeSession(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("ResumeSession() error = %v", err)
	}
	defer resumed.AbandonSession(context.Background(), "test teardown")

	if resumed.Snapshot().Phase != PhaseBreak {
		t.Fatalf("Phase = %q, want %q", resumed.Snapshot().Phase, PhaseBreak)
	}
	if err := resumed.StartNextSection(context.Background()); err != nil {
		t.Fatalf("StartNextSection() after break resume error = %v", err)
	}
	if resumed.Snapshot().SectionIndex != 1 {
		t.Errorf("SectionIndex = %d, want 1", resumed.Snapshot().SectionIndex)
	}
}

func TestResumeCorruptSession(t *testing.T) {
	examType, questions := twoSectionFixture()
	store := newMemStore(examType, questions)
	engine := testEngine(store)

	ctrl, err := engine.StartSession(context.Background(), examType.ID, uuid.New())
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	sessionID := ctrl.SessionID()
	ctrl.AbandonSession(context.Background(), "test teardown")

	// Corrupt the store: both attempts in_progress.
	attempts, _ := store.GetSectionAttempts(context.Background(), sessionID)
	status := model.AttemptStatusInProgress
	now := time.Now()
	store.UpdateSectionAttempt(context.Background(), attempts[1].ID, AttemptPatch{Status: &status, StartedAt: &now})

	if _, err := engine.ResumeSession(context.Background(), sessionID); !errors.Is(err, ErrCorruptSession) {
		t.Errorf("ResumeSession() error = %v, want ErrCorruptSession", err)
	}
}

func TestResumeFinalizeRetry(t *testing.T) {
	examType, questions := twoSectionFixture()
	store := newMemStore(examType, questions)
	engine := testEngine(store)

	ctrl, err := engine.StartSession(context.Background(), examType.ID, uuid.New())
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	sessionID := ctrl.SessionID()

	if _, err := ctrl.CompleteActiveSection(context.Background()); err != nil {
		t.Fatalf("CompleteActiveSection() error = %v", err)
	}
	if err := ctrl.StartNextSection(context.Background()); err != nil {
		t.Fatalf("StartNextSection() error = %v", err)
	}

	// The last attempt write lands, but the session write is lost.
	store.failSessionUpdate = true
	if _, err := ctrl.CompleteActiveSection(context.Background()); err == nil {
		t.Fatal("CompleteActiveSection() succeeded despite session write failure")
	}
	ctrl.AbandonSession(context.Background(), "gave up")
	store.failSessionUpdate = false

	resumed, err := engine.ResumeSession(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("ResumeSession() error = %v", err)
	}
	if resumed.Report() == nil {
		t.Fatal("Report() = nil, want finalized report after retry")
	}
	if store.session(sessionID).Status != model.SessionStatusCompleted {
		t.Error("session not completed in store after finalize retry")
	}
}

// runToCompletion drives a fresh session through both sections.
func runToCompletion(t *testing.T, engine *Engine, examType *model.ExamType) *Controller {
	t.Helper()

	ctrl, err := engine.StartSession(context.Background(), examType.ID, uuid.New())
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	if _, err := ctrl.CompleteActiveSection(context.Background()); err != nil {
		t.Fatalf("CompleteActiveSection() error = %v", err)
	}
	if err := ctrl.StartNextSection(context.Background()); err != nil {
		t.Fatalf("StartNextSection() error = %v", err)
	}
	outcome, err := ctrl.CompleteActiveSection(context.Background())
	if err != nil {
		t.Fatalf("final CompleteActiveSection() error = %v", err)
	}
	if outcome.Final == nil {
		t.Fatal("final outcome carries no report")
	}
	return ctrl
}
