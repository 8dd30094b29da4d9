package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/ai"
	"github.com/spigell/interview-scorer/internal/gating"
	"github.com/spigell/interview-scorer/internal/interview"
	"github.com/spigell/interview-scorer/internal/planner"
	"github.com/spigell/interview-scorer/internal/report"
	"github.com/spigell/interview-scorer/internal/scorer"
	"github.com/spigell/interview-scorer/internal/scoring"
	"github.com/spigell/interview-scorer/internal/storage"
)

type stubAssistant struct {
	mu         sync.Mutex
	empty      bool
	score      float64
	gradeCalls int
	narrative  *ai.Narrative
	narrErr    error
	narrCalls  int
}

func (s *stubAssistant) GenerateQuestions(_ context.Context, req ai.QuestionRequest) (map[interview.Category][]ai.QuestionDraft, error) {
	if s.empty {
		return nil, fmt.Errorf("%w: unavailable", ai.ErrExternalService)
	}
	out := make(map[interview.Category][]ai.QuestionDraft)
	for c, n := range req.Quotas {
		for i := 0; i < n; i++ {
			out[c] = append(out[c], ai.QuestionDraft{Question: fmt.Sprintf("%s question %d", c, i)})
		}
	}
	return out, nil
}

func (s *stubAssistant) GradeAnswer(_ context.Context, _ ai.GradeRequest) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gradeCalls++
	return map[string]any{"score": s.score, "feedback": "ok"}, nil
}

func (s *stubAssistant) GenerateNarrative(_ context.Context, _ ai.NarrativeRequest) (*ai.Narrative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.narrCalls++
	return s.narrative, s.narrErr
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func newService(t *testing.T, assistant *stubAssistant) (*Service, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	return newServiceWithStore(t, assistant, store), store
}

func newServiceWithStore(t *testing.T, assistant *stubAssistant, store storage.Store) *Service {
	t.Helper()

	c := &clock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	log := zap.NewNop()
	builder := report.NewBuilder(scoring.NewAggregator(nil), assistant, gating.Config{}, time.Second, log, report.WithClock(c.Now))

	svc := New(
		planner.New(assistant, time.Second, log),
		scorer.New(assistant, time.Second, log),
		builder,
		store,
		log,
		WithClock(c.Now),
	)
	return svc
}

func defaultSetup() Setup {
	return Setup{Role: "Go Developer", JobDescription: "Build services", Resume: "Five years of Go", Questions: 5}
}

func TestStartValidatesInput(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, &stubAssistant{})
	ctx := context.Background()

	for _, count := range []int{0, 4, 41} {
		setup := defaultSetup()
		setup.Questions = count
		_, err := svc.Start(ctx, setup)
		assert.ErrorIs(t, err, ErrInvalidQuestionCount, "count %d", count)
	}

	setup := defaultSetup()
	setup.Resume = "  "
	_, err := svc.Start(ctx, setup)
	assert.ErrorIs(t, err, ErrSetupIncomplete)
}

func TestStartFailsOnEmptyPlan(t *testing.T) {
	t.Parallel()

	svc, store := newService(t, &stubAssistant{empty: true})
	_, err := svc.Start(context.Background(), defaultSetup())
	require.ErrorIs(t, err, ErrSetupIncomplete)

	sessions, err := store.ListSessions(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestInterviewLifecycle(t *testing.T) {
	t.Parallel()

	assistant := &stubAssistant{score: 8, narrative: &ai.Narrative{Recommendation: "Hire", Reasoning: "Solid."}}
	svc, _ := newService(t, assistant)
	ctx := context.Background()

	session, err := svc.Start(ctx, defaultSetup())
	require.NoError(t, err)
	require.Len(t, session.Questions, 5)
	assert.Equal(t, interview.StatusCreated, session.Status)

	q, ok, err := svc.CurrentQuestion(ctx, session.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, interview.Technical, q.Category)

	loaded, err := svc.Session(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, interview.StatusInProgress, loaded.Status)

	for i := 0; i < 5; i++ {
		q, ok, err := svc.CurrentQuestion(ctx, session.ID)
		require.NoError(t, err)
		require.True(t, ok)

		if i == 4 {
			answer, err := svc.Skip(ctx, session.ID, q.ID)
			require.NoError(t, err)
			assert.True(t, answer.Skipped)
			continue
		}
		answer, err := svc.Submit(ctx, session.ID, q.ID, "my answer", -time.Second)
		require.NoError(t, err)
		assert.Equal(t, 8.0, answer.Evaluation.Score)
		assert.Zero(t, answer.ResponseTime)
	}
	assert.Equal(t, 4, assistant.gradeCalls)

	_, ok, err = svc.CurrentQuestion(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	answered, total, err := svc.Progress(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, answered)
	assert.Equal(t, 5, total)

	r, err := svc.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, interview.Hire, r.Recommendation)
	assert.Equal(t, 1.0, r.CompletionRate)
	assert.NotEmpty(t, r.Duration)

	stored, err := svc.Report(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, r.OverallScore, stored.OverallScore)
	assert.Equal(t, 1, assistant.narrCalls)

	_, err = svc.Complete(ctx, session.ID)
	assert.ErrorIs(t, err, interview.ErrInvalidState)

	completed, err := svc.List(ctx, interview.StatusCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, interview.Hire, completed[0].Recommendation)
}

func TestSubmitRejectsInvalidStateWithoutScoring(t *testing.T) {
	t.Parallel()

	assistant := &stubAssistant{score: 6, narrative: &ai.Narrative{Recommendation: "Consider"}}
	svc, _ := newService(t, assistant)
	ctx := context.Background()

	session, err := svc.Start(ctx, defaultSetup())
	require.NoError(t, err)
	first := session.Questions[0].ID

	_, err = svc.Submit(ctx, session.ID, first, "   ", 0)
	assert.ErrorIs(t, err, interview.ErrEmptyAnswer)

	_, err = svc.Submit(ctx, session.ID, first, "answer", time.Second)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, session.ID, first, "again", time.Second)
	assert.ErrorIs(t, err, interview.ErrInvalidState)

	_, err = svc.Skip(ctx, session.ID, first)
	assert.ErrorIs(t, err, interview.ErrInvalidState)

	_, err = svc.Submit(ctx, session.ID, "unknown", "answer", time.Second)
	var stateErr *interview.StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "unknown", stateErr.QuestionID)

	_, err = svc.Complete(ctx, session.ID)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, session.ID, session.Questions[1].ID, "late", time.Second)
	assert.ErrorIs(t, err, interview.ErrInvalidState)
	assert.Equal(t, 1, assistant.gradeCalls)
}

func TestSubmitRejectsOutOfOrderQuestion(t *testing.T) {
	t.Parallel()

	assistant := &stubAssistant{score: 7}
	svc, store := newService(t, assistant)
	ctx := context.Background()

	session, err := svc.Start(ctx, defaultSetup())
	require.NoError(t, err)
	last := session.Questions[len(session.Questions)-1].ID

	_, err = svc.Submit(ctx, session.ID, last, "answering the final question first", time.Second)
	require.ErrorIs(t, err, interview.ErrInvalidState)
	var stateErr *interview.StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, last, stateErr.QuestionID)
	assert.Equal(t, "question is not the current question", stateErr.Reason)

	_, err = svc.Skip(ctx, session.ID, session.Questions[1].ID)
	assert.ErrorIs(t, err, interview.ErrInvalidState)
	assert.Zero(t, assistant.gradeCalls)

	answers, err := store.ListAnswers(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, answers)

	current, ok, err := svc.CurrentQuestion(ctx, session.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, session.Questions[0].ID, current.ID)
}

// failingStore breaks selected writes of an otherwise working memory store.
type failingStore struct {
	*storage.MemoryStore
	statusErr error
	reportErr error
}

func (f *failingStore) UpdateStatus(ctx context.Context, id string, status interview.Status, at time.Time) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	return f.MemoryStore.UpdateStatus(ctx, id, status, at)
}

func (f *failingStore) SaveReport(ctx context.Context, id string, r *interview.Report) error {
	if f.reportErr != nil {
		return f.reportErr
	}
	return f.MemoryStore.SaveReport(ctx, id, r)
}

func answerAll(t *testing.T, svc *Service, session *interview.Session) {
	t.Helper()

	for _, q := range session.Questions {
		_, err := svc.Submit(context.Background(), session.ID, q.ID, "answer", time.Second)
		require.NoError(t, err)
	}
}

func TestCompleteDoesNotStoreReportWhenStatusUpdateFails(t *testing.T) {
	t.Parallel()

	assistant := &stubAssistant{score: 8, narrative: &ai.Narrative{Recommendation: "Hire"}}
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), statusErr: errors.New("connection reset")}
	svc := newServiceWithStore(t, assistant, store)
	ctx := context.Background()

	session, err := svc.Start(ctx, defaultSetup())
	require.NoError(t, err)
	answerAll(t, svc, session)

	_, err = svc.Complete(ctx, session.ID)
	require.ErrorContains(t, err, "connection reset")

	loaded, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, interview.StatusInProgress, loaded.Status)
	assert.Nil(t, loaded.Report)

	store.statusErr = nil
	r, err := svc.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, interview.Hire, r.Recommendation)
}

func TestReportRebuildsWhenSaveFailedAfterCompletion(t *testing.T) {
	t.Parallel()

	assistant := &stubAssistant{score: 8, narrative: &ai.Narrative{Recommendation: "Hire"}}
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), reportErr: errors.New("disk full")}
	svc := newServiceWithStore(t, assistant, store)
	ctx := context.Background()

	session, err := svc.Start(ctx, defaultSetup())
	require.NoError(t, err)
	answerAll(t, svc, session)

	_, err = svc.Complete(ctx, session.ID)
	require.ErrorContains(t, err, "disk full")

	loaded, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, interview.StatusCompleted, loaded.Status)
	assert.Nil(t, loaded.Report)

	store.reportErr = nil
	r, err := svc.Report(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, interview.Hire, r.Recommendation)

	loaded, err = store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Report)
	assert.Equal(t, 2, assistant.narrCalls)
}

func TestCompleteRequiresAnAnswer(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, &stubAssistant{})
	ctx := context.Background()

	session, err := svc.Start(ctx, defaultSetup())
	require.NoError(t, err)

	_, err = svc.Complete(ctx, session.ID)
	assert.ErrorIs(t, err, interview.ErrInvalidState)

	_, err = svc.Report(ctx, session.ID)
	assert.ErrorIs(t, err, interview.ErrInvalidState)
}

func TestCompleteWithInsufficientDataSkipsNarrative(t *testing.T) {
	t.Parallel()

	assistant := &stubAssistant{score: 9, narrative: &ai.Narrative{Recommendation: "Hire"}}
	svc, _ := newService(t, assistant)
	ctx := context.Background()

	session, err := svc.Start(ctx, defaultSetup())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, session.ID, session.Questions[0].ID, "answer", time.Second)
	require.NoError(t, err)

	r, err := svc.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, interview.DoNotHire, r.Recommendation)
	assert.Zero(t, assistant.narrCalls)
}

func TestRegenerateKeepsNumericFields(t *testing.T) {
	t.Parallel()

	assistant := &stubAssistant{score: 7, narrative: &ai.Narrative{Recommendation: "Hire"}}
	svc, _ := newService(t, assistant)
	ctx := context.Background()

	session, err := svc.Start(ctx, defaultSetup())
	require.NoError(t, err)
	for _, q := range session.Questions[:3] {
		_, err := svc.Submit(ctx, session.ID, q.ID, "answer", time.Second)
		require.NoError(t, err)
	}

	_, err = svc.Regenerate(ctx, session.ID)
	assert.ErrorIs(t, err, interview.ErrInvalidState)

	first, err := svc.Complete(ctx, session.ID)
	require.NoError(t, err)
	// 3 of 5 answered: the ceiling turns Hire into Consider.
	assert.Equal(t, interview.Consider, first.Recommendation)

	assistant.narrative = &ai.Narrative{Recommendation: "Do Not Hire"}
	second, err := svc.Regenerate(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, first.OverallScore, second.OverallScore)
	assert.Equal(t, first.CategoryScores, second.CategoryScores)
	assert.Equal(t, first.CompletionRate, second.CompletionRate)
	assert.Equal(t, interview.DoNotHire, second.Recommendation)
	assert.Equal(t, 2, assistant.narrCalls)
}

func TestConcurrentSubmitKeepsOneAnswer(t *testing.T) {
	t.Parallel()

	assistant := &stubAssistant{score: 5}
	svc, _ := newService(t, assistant)
	ctx := context.Background()

	session, err := svc.Start(ctx, defaultSetup())
	require.NoError(t, err)
	first := session.Questions[0].ID

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Submit(ctx, session.ID, first, "answer", time.Second); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, assistant.gradeCalls)
}

func TestUnknownSession(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, &stubAssistant{})
	_, _, err := svc.CurrentQuestion(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
