// Package scorer grades single answers and guarantees a valid evaluation.
package scorer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/ai"
	"github.com/spigell/interview-scorer/internal/interview"
)

const defaultTimeout = 60 * time.Second

type Request struct {
	Question       string
	Category       interview.Category
	Answer         string
	Role           string
	JobDescription string
}

type Scorer struct {
	grader  ai.AnswerGrader
	timeout time.Duration
	logger  *zap.Logger
}

func New(grader ai.AnswerGrader, timeout time.Duration, logger *zap.Logger) *Scorer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{grader: grader, timeout: timeout, logger: logger}
}

// Score grades one answer. It never fails: grader errors, timeouts and
// malformed payloads produce interview.FallbackEvaluation.
func (s *Scorer) Score(ctx context.Context, req Request) interview.Evaluation {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.grader.GradeAnswer(callCtx, ai.GradeRequest{
		Question:       req.Question,
		Category:       req.Category,
		Answer:         req.Answer,
		Role:           req.Role,
		JobDescription: req.JobDescription,
	})
	if err != nil {
		s.logger.Warn("evaluating answer failed, using fallback evaluation",
			zap.String("category", string(req.Category)),
			zap.Error(err),
		)
		return interview.FallbackEvaluation(err)
	}

	eval := interview.NewEvaluation(raw)
	s.logger.Info("answer evaluated",
		zap.String("category", string(req.Category)),
		zap.Float64("score", eval.Score),
	)
	return eval
}
