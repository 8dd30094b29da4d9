package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spigell/interview-scorer/internal/interview"
)

// MemoryStore keeps sessions in process memory. Values are copied on the way
// in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*interview.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*interview.Session)}
}

func (m *MemoryStore) CreateSession(_ context.Context, s *interview.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; exists {
		return &interview.StateError{Op: "create", SessionID: s.ID, Reason: "session already exists"}
	}
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*interview.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, notFound(id)
	}
	return cloneSession(s), nil
}

func (m *MemoryStore) ListQuestions(ctx context.Context, sessionID string) ([]interview.Question, error) {
	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.Questions, nil
}

func (m *MemoryStore) ListAnswers(ctx context.Context, sessionID string) ([]interview.Answer, error) {
	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	answers := make([]interview.Answer, 0, len(s.Answers))
	for _, entry := range s.Transcript() {
		if entry.Answer != nil {
			answers = append(answers, *entry.Answer)
		}
	}
	return answers, nil
}

func (m *MemoryStore) SaveAnswer(_ context.Context, sessionID string, a interview.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return notFound(sessionID)
	}
	if _, answered := s.Answers[a.QuestionID]; answered {
		return ErrAnswerExists
	}
	return s.Record("save answer", cloneAnswer(a), a.AnsweredAt)
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id string, status interview.Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return notFound(id)
	}

	s.Status = status
	switch status {
	case interview.StatusInProgress:
		if s.StartedAt == nil {
			s.StartedAt = &at
		}
	case interview.StatusCompleted:
		s.CompletedAt = &at
	}
	return nil
}

func (m *MemoryStore) SaveReport(_ context.Context, id string, r *interview.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return notFound(id)
	}
	s.Report = cloneReport(r)
	return nil
}

func (m *MemoryStore) ListSessions(_ context.Context, status interview.Status) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]Summary, 0, len(m.sessions))
	for _, s := range m.sessions {
		if status != "" && s.Status != status {
			continue
		}
		summaries = append(summaries, summarize(s))
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (m *MemoryStore) Close() error { return nil }

func cloneSession(s *interview.Session) *interview.Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Questions = append([]interview.Question(nil), s.Questions...)
	out.Answers = make(map[string]*interview.Answer, len(s.Answers))
	for id, a := range s.Answers {
		answer := cloneAnswer(*a)
		out.Answers[id] = &answer
	}
	out.StartedAt = cloneTime(s.StartedAt)
	out.CompletedAt = cloneTime(s.CompletedAt)
	out.Report = cloneReport(s.Report)
	return &out
}

func cloneAnswer(a interview.Answer) interview.Answer {
	if a.Evaluation != nil {
		eval := *a.Evaluation
		eval.Strengths = append([]string{}, a.Evaluation.Strengths...)
		eval.Weaknesses = append([]string{}, a.Evaluation.Weaknesses...)
		a.Evaluation = &eval
	}
	return a
}

func cloneReport(r *interview.Report) *interview.Report {
	if r == nil {
		return nil
	}
	out := *r
	out.CategoryScores = make(map[interview.Category]float64, len(r.CategoryScores))
	for c, v := range r.CategoryScores {
		out.CategoryScores[c] = v
	}
	out.Adjustments = append([]string(nil), r.Adjustments...)
	out.TechnicalStrengths = append([]string{}, r.TechnicalStrengths...)
	out.TechnicalWeaknesses = append([]string{}, r.TechnicalWeaknesses...)
	out.Strengths = append([]string{}, r.Strengths...)
	out.AreasForImprovement = append([]string{}, r.AreasForImprovement...)
	out.KeyObservations = append([]string{}, r.KeyObservations...)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
