package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sufyane-M/UniTOLC-sub001/internal/model"
	"github.com/google/uuid"
)

// memStore is an in-memory Store, Catalog and QuestionSource used by the
// engine tests. Update failures can be injected to exercise retry paths.
type memStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.Session
	attempts map[uuid.UUID]*model.SectionAttempt
	byOrder  map[uuid.UUID][]uuid.UUID

	examType  *model.ExamType
	questions []model.Question

	failAttemptUpdate bool
	failSessionUpdate bool
}

func newMemStore(examType *model.ExamType, questions []model.Question) *memStore {
	return &memStore{
		sessions:  make(map[uuid.UUID]*model.Session),
		attempts:  make(map[uuid.UUID]*model.SectionAttempt),
		byOrder:   make(map[uuid.UUID][]uuid.UUID),
		examType:  examType,
		questions: questions,
	}
}

func (m *memStore) CreateSession(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	copied := *s
	m.sessions[s.ID] = &copied
	return nil
}

func (m *memStore) CreateSectionAttempts(_ context.Context, sessionID uuid.UUID, sectionIDs []uuid.UUID) ([]model.SectionAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempts := make([]model.SectionAttempt, 0, len(sectionIDs))
	for _, sectionID := range sectionIDs {
		a := model.SectionAttempt{
			ID:        uuid.New(),
			SessionID: sessionID,
			SectionID: sectionID,
			Status:    model.AttemptStatusPending,
		}
		copied := a
		m.attempts[a.ID] = &copied
		m.byOrder[sessionID] = append(m.byOrder[sessionID], a.ID)
		attempts = append(attempts, a)
	}
	return attempts, nil
}

func (m *memStore) UpdateSectionAttempt(_ context.Context, id uuid.UUID, patch AttemptPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAttemptUpdate {
		return fmt.Errorf("injected attempt update failure")
	}

	a, ok := m.attempts[id]
	if !ok {
		return fmt.Errorf("%w: attempt %s", ErrNotFound, id)
	}
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	if patch.StartedAt != nil {
		t := *patch.StartedAt
		a.StartedAt = &t
	}
	if patch.CompletedAt != nil {
		t := *patch.CompletedAt
		a.CompletedAt = &t
	}
	if patch.TimeSpentSeconds != nil {
		v := *patch.TimeSpentSeconds
		a.TimeSpentSeconds = &v
	}
	if patch.Score != nil {
		s := *patch.Score
		a.Score = &s
	}
	if patch.Answers != nil {
		a.Answers = cloneAnswers(patch.Answers)
	}
	return nil
}

func (m *memStore) UpdateSession(_ context.Context, id uuid.UUID, patch SessionPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSessionUpdate {
		return fmt.Errorf("injected session update failure")
	}

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if patch.Status != nil {
		s.Status = *patch.Status
	}
	if patch.CompletedAt != nil {
		t := *patch.CompletedAt
		s.CompletedAt = &t
	}
	return nil
}

func (m *memStore) GetSession(_ context.Context, id uuid.UUID) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	copied := *s
	return &copied, nil
}

func (m *memStore) GetInProgressSession(_ context.Context, userID uuid.UUID) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.UserID == userID && s.Status == model.SessionStatusInProgress {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetSectionAttempts(_ context.Context, sessionID uuid.UUID) ([]model.SectionAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var attempts []model.SectionAttempt
	for _, id := range m.byOrder[sessionID] {
		a := *m.attempts[id]
		a.Answers = cloneAnswers(a.Answers)
		attempts = append(attempts, a)
	}
	return attempts, nil
}

func (m *memStore) GetExamType(_ context.Context, id uuid.UUID) (*model.ExamType, error) {
	if m.examType == nil || m.examType.ID != id {
		return nil, fmt.Errorf("%w: exam type %s", ErrNotFound, id)
	}
	copied := *m.examType
	return &copied, nil
}

func (m *memStore) RandomizedQuestions(_ context.Context, examTypeID uuid.UUID) ([]model.Question, error) {
	if m.examType == nil || m.examType.ID != examTypeID {
		return nil, fmt.Errorf("%w: exam type %s", ErrNotFound, examTypeID)
	}
	return append([]model.Question(nil), m.questions...), nil
}

func (m *memStore) attempt(id uuid.UUID) model.SectionAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.attempts[id]
}

func (m *memStore) session(id uuid.UUID) model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.sessions[id]
}

// memCache is an in-memory AnswerCache.
type memCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]map[uuid.UUID]string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[uuid.UUID]map[uuid.UUID]string)}
}

func (m *memCache) SaveAnswers(_ context.Context, attemptID uuid.UUID, answers map[uuid.UUID]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[attemptID] = cloneAnswers(answers)
	return nil
}

func (m *memCache) LoadAnswers(_ context.Context, attemptID uuid.UUID) (map[uuid.UUID]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAnswers(m.entries[attemptID]), nil
}

func (m *memCache) ClearAnswers(_ context.Context, attemptID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, attemptID)
	return nil
}

// makeQuestions builds n questions for a section with options a-d; the
// correct option is always "a".
func makeQuestions(sectionID uuid.UUID, n int) []model.Question {
	questions := make([]model.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, model.Question{
			ID:        uuid.New(),
			SectionID: sectionID,
			Text:      fmt.Sprintf("question %d", i+1),
			Options: map[string]string{
				"a": "first", "b": "second", "c": "third", "d": "fourth",
			},
			CorrectOption: "a",
		})
	}
	return questions
}

// twoSectionFixture builds a two-section exam type (4 + 2 questions,
// 5 minutes each) with its question bank.
func twoSectionFixture() (*model.ExamType, []model.Question) {
	examTypeID := uuid.New()
	first := model.Section{
		ID: uuid.New(), ExamTypeID: examTypeID,
		Name: "Matematica", TimeLimitMinutes: 5, QuestionCount: 4, SortOrder: 0,
	}
	second := model.Section{
		ID: uuid.New(), ExamTypeID: examTypeID,
		Name: "Logica", TimeLimitMinutes: 5, QuestionCount: 2, SortOrder: 1,
	}
	examType := &model.ExamType{
		ID: examTypeID, Code: "TOLC-T", Name: "TOLC test fixture",
		TotalDurationMinutes: 10,
		Sections:             []model.Section{first, second},
	}

	questions := makeQuestions(first.ID, 4)
	questions = append(questions, makeQuestions(second.ID, 2)...)
	return examType, questions
}

// fakeClock is a settable wall clock for resume reconstruction tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t
}

func testEngine(store *memStore, opts ...Option) *Engine {
	base := []Option{
		WithBreakMinWait(0),
		WithBreakDuration(50 * time.Millisecond),
		WithAutosaveInterval(time.Hour),
	}
	return New(store, store, store, append(base, opts...)...)
}
