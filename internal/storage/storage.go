// Package storage persists interview sessions and serializes work on them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spigell/interview-scorer/internal/interview"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrAnswerExists keeps answers append-only. It matches interview.ErrInvalidState.
	ErrAnswerExists = fmt.Errorf("%w: answer already recorded", interview.ErrInvalidState)
)

// Store is the persistence collaborator of the interview engine.
type Store interface {
	// CreateSession stores a new session with its questions.
	CreateSession(ctx context.Context, s *interview.Session) error
	// GetSession loads a session with questions, answers and report.
	GetSession(ctx context.Context, id string) (*interview.Session, error)
	ListQuestions(ctx context.Context, sessionID string) ([]interview.Question, error)
	ListAnswers(ctx context.Context, sessionID string) ([]interview.Answer, error)
	// SaveAnswer appends an answer. A second answer for a question, an unknown
	// question or a completed session fail with interview.ErrInvalidState.
	SaveAnswer(ctx context.Context, sessionID string, a interview.Answer) error
	// UpdateStatus moves the session to status; at becomes the started or completed time.
	UpdateStatus(ctx context.Context, id string, status interview.Status, at time.Time) error
	SaveReport(ctx context.Context, id string, r *interview.Report) error
	// ListSessions returns summaries, newest first. An empty status lists everything.
	ListSessions(ctx context.Context, status interview.Status) ([]Summary, error)
	Close() error
}

// Summary is a lightweight listing entry.
type Summary struct {
	ID             string                   `json:"id" yaml:"id"`
	Role           string                   `json:"role" yaml:"role"`
	Status         interview.Status         `json:"status" yaml:"status"`
	Answered       int                      `json:"answered" yaml:"answered"`
	Total          int                      `json:"total" yaml:"total"`
	CreatedAt      time.Time                `json:"created_at" yaml:"created_at"`
	CompletedAt    *time.Time               `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Recommendation interview.Recommendation `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
	OverallScore   float64                  `json:"overall_score" yaml:"overall_score"`
}

func summarize(s *interview.Session) Summary {
	answered, total := s.Progress()
	summary := Summary{
		ID:          s.ID,
		Role:        s.Role,
		Status:      s.Status,
		Answered:    answered,
		Total:       total,
		CreatedAt:   s.CreatedAt,
		CompletedAt: s.CompletedAt,
	}
	if s.Report != nil {
		summary.Recommendation = s.Report.Recommendation
		summary.OverallScore = s.Report.OverallScore
	}
	return summary
}

func notFound(id string) error {
	return fmt.Errorf("session %s: %w", id, ErrNotFound)
}
