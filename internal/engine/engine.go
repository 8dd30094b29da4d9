// Package engine runs interview sessions: planning, answering, completion and reporting.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/interview"
	"github.com/spigell/interview-scorer/internal/logger"
	"github.com/spigell/interview-scorer/internal/planner"
	"github.com/spigell/interview-scorer/internal/scorer"
	"github.com/spigell/interview-scorer/internal/storage"
)

var (
	// ErrSetupIncomplete is returned when a session cannot be set up: missing
	// inputs or a question plan without any question.
	ErrSetupIncomplete      = errors.New("interview setup incomplete")
	ErrInvalidQuestionCount = errors.New("invalid question count")
)

// Setup describes a new interview.
type Setup struct {
	Role           string
	JobDescription string
	Resume         string
	Questions      int
}

type QuestionPlanner interface {
	Plan(ctx context.Context, req planner.Request) planner.Plan
}

type AnswerScorer interface {
	Score(ctx context.Context, req scorer.Request) interview.Evaluation
}

type ReportBuilder interface {
	Build(ctx context.Context, s *interview.Session) (*interview.Report, error)
}

type Service struct {
	planner QuestionPlanner
	scorer  AnswerScorer
	reports ReportBuilder
	store   storage.Store
	locker  storage.Locker
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLocker(locker storage.Locker) Option {
	return func(s *Service) { s.locker = locker }
}

func New(p QuestionPlanner, sc AnswerScorer, reports ReportBuilder, store storage.Store, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		planner: p,
		scorer:  sc,
		reports: reports,
		store:   store,
		locker:  storage.NewLocalLocker(),
		logger:  log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start plans the questions and persists a created session.
func (s *Service) Start(ctx context.Context, setup Setup) (*interview.Session, error) {
	if setup.Questions < planner.MinQuestions || setup.Questions > planner.MaxQuestions {
		return nil, fmt.Errorf("%w: %d is outside %d..%d", ErrInvalidQuestionCount, setup.Questions, planner.MinQuestions, planner.MaxQuestions)
	}
	switch {
	case strings.TrimSpace(setup.Role) == "":
		return nil, fmt.Errorf("%w: job title is required", ErrSetupIncomplete)
	case strings.TrimSpace(setup.JobDescription) == "":
		return nil, fmt.Errorf("%w: job description is required", ErrSetupIncomplete)
	case strings.TrimSpace(setup.Resume) == "":
		return nil, fmt.Errorf("%w: candidate resume is required", ErrSetupIncomplete)
	}

	plan := s.planner.Plan(ctx, planner.Request{
		Role:           setup.Role,
		JobDescription: setup.JobDescription,
		Resume:         setup.Resume,
		Count:          setup.Questions,
	})
	if plan.Empty() {
		return nil, fmt.Errorf("%w: no questions were generated, please try again", ErrSetupIncomplete)
	}

	id := s.newID()
	session := interview.NewSession(id, setup.Role, setup.JobDescription, setup.Resume, plan.Questions(id), s.now())
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	logger.WithSession(s.logger, id).Info("interview session created",
		zap.String("role", session.Role),
		zap.Int("requested", setup.Questions),
		zap.Int("questions", len(session.Questions)),
	)
	return session, nil
}

// Session loads a session without changing it.
func (s *Service) Session(ctx context.Context, id string) (*interview.Session, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return session, nil
}

// CurrentQuestion returns the first unanswered question; ok is false once all are answered.
// The first fetch moves a created session into progress.
func (s *Service) CurrentQuestion(ctx context.Context, id string) (q *interview.Question, ok bool, err error) {
	err = s.withLock(ctx, id, func() error {
		session, err := s.Session(ctx, id)
		if err != nil {
			return err
		}
		if session.Status == interview.StatusCompleted {
			return &interview.StateError{Op: "current question", SessionID: id, Reason: "session is completed"}
		}

		if session.Status == interview.StatusCreated {
			if err := s.store.UpdateStatus(ctx, id, interview.StatusInProgress, s.now()); err != nil {
				return fmt.Errorf("start session %s: %w", id, err)
			}
			logger.WithSession(s.logger, id).Info("interview started")
		}

		q, ok = session.Current()
		return nil
	})
	return q, ok, err
}

// Submit scores and stores an answer. State is validated before the grader is called.
func (s *Service) Submit(ctx context.Context, id, questionID, text string, responseTime time.Duration) (*interview.Answer, error) {
	if strings.TrimSpace(text) == "" {
		return nil, interview.ErrEmptyAnswer
	}

	var answer *interview.Answer
	err := s.withLock(ctx, id, func() error {
		session, err := s.Session(ctx, id)
		if err != nil {
			return err
		}
		if err := session.CanAnswer("submit", questionID); err != nil {
			return err
		}
		q, _ := session.Question(questionID)

		eval := s.scorer.Score(ctx, scorer.Request{
			Question:       q.Text,
			Category:       q.Category,
			Answer:         text,
			Role:           session.Role,
			JobDescription: session.JobDescription,
		})

		answer, err = s.save(ctx, id, interview.Answer{
			QuestionID:   questionID,
			Text:         text,
			ResponseTime: responseTime,
			Evaluation:   &eval,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("answer recorded", append(logger.SessionFields(id, questionID),
		zap.Float64("score", answer.Evaluation.Score),
		zap.Duration("response_time", answer.ResponseTime),
	)...)
	return answer, nil
}

// Skip records a skipped answer. The grader is never called.
func (s *Service) Skip(ctx context.Context, id, questionID string) (*interview.Answer, error) {
	var answer *interview.Answer
	err := s.withLock(ctx, id, func() error {
		session, err := s.Session(ctx, id)
		if err != nil {
			return err
		}
		if err := session.CanAnswer("skip", questionID); err != nil {
			return err
		}

		eval := interview.SkippedEvaluation()
		answer, err = s.save(ctx, id, interview.Answer{
			QuestionID: questionID,
			Text:       interview.SkippedAnswerText,
			Skipped:    true,
			Evaluation: &eval,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("question skipped", logger.SessionFields(id, questionID)...)
	return answer, nil
}

// Progress reports answered (including skipped) and total question counts.
func (s *Service) Progress(ctx context.Context, id string) (answered, total int, err error) {
	session, err := s.Session(ctx, id)
	if err != nil {
		return 0, 0, err
	}
	answered, total = session.Progress()
	return answered, total, nil
}

// Complete ends the interview, builds the report and stores both.
func (s *Service) Complete(ctx context.Context, id string) (*interview.Report, error) {
	var report *interview.Report
	err := s.withLock(ctx, id, func() error {
		session, err := s.Session(ctx, id)
		if err != nil {
			return err
		}

		now := s.now()
		if err := session.Complete(now); err != nil {
			return err
		}

		report, err = s.reports.Build(ctx, session)
		if err != nil {
			return fmt.Errorf("build report for %s: %w", id, err)
		}

		// A completed session without a report is rebuilt by Report,
		// so the status is persisted first.
		if err := s.store.UpdateStatus(ctx, id, interview.StatusCompleted, now); err != nil {
			return fmt.Errorf("complete session %s: %w", id, err)
		}
		if err := s.store.SaveReport(ctx, id, report); err != nil {
			return fmt.Errorf("save report for %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithSession(s.logger, id).Info("interview completed",
		zap.String("recommendation", string(report.Recommendation)),
		zap.Float64("overall_score", report.OverallScore),
	)
	return report, nil
}

// Report returns the stored report of a completed session.
func (s *Service) Report(ctx context.Context, id string) (*interview.Report, error) {
	session, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != interview.StatusCompleted {
		return nil, &interview.StateError{Op: "report", SessionID: id, Reason: "session is not completed"}
	}
	if session.Report != nil {
		return session.Report, nil
	}
	return s.Regenerate(ctx, id)
}

// Regenerate rebuilds the report of a completed session. Numeric fields come out
// identical; the narrative is requested again.
func (s *Service) Regenerate(ctx context.Context, id string) (*interview.Report, error) {
	var report *interview.Report
	err := s.withLock(ctx, id, func() error {
		session, err := s.Session(ctx, id)
		if err != nil {
			return err
		}
		if session.Status != interview.StatusCompleted {
			return &interview.StateError{Op: "regenerate report", SessionID: id, Reason: "session is not completed"}
		}

		report, err = s.reports.Build(ctx, session)
		if err != nil {
			return fmt.Errorf("build report for %s: %w", id, err)
		}
		if err := s.store.SaveReport(ctx, id, report); err != nil {
			return fmt.Errorf("save report for %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithSession(s.logger, id).Info("report regenerated",
		zap.String("recommendation", string(report.Recommendation)),
	)
	return report, nil
}

// List returns session summaries, newest first. An empty status lists everything.
func (s *Service) List(ctx context.Context, status interview.Status) ([]storage.Summary, error) {
	summaries, err := s.store.ListSessions(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return summaries, nil
}

func (s *Service) save(ctx context.Context, id string, a interview.Answer) (*interview.Answer, error) {
	a.AnsweredAt = s.now()
	if a.ResponseTime < 0 {
		a.ResponseTime = 0
	}
	if err := s.store.SaveAnswer(ctx, id, a); err != nil {
		return nil, fmt.Errorf("save answer for %s: %w", a.QuestionID, err)
	}
	return &a, nil
}

func (s *Service) withLock(ctx context.Context, id string, fn func() error) error {
	release, err := s.locker.Lock(ctx, id)
	if err != nil {
		return fmt.Errorf("lock session %s: %w", id, err)
	}
	defer release()
	return fn()
}
