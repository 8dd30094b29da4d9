// Package planner produces the ordered question set of a new interview.
package planner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/ai"
	"github.com/spigell/interview-scorer/internal/interview"
)

const (
	MinQuestions     = 5
	MaxQuestions     = 40
	DefaultQuestions = 20

	defaultTimeout = 60 * time.Second
)

// Quotas is the number of questions requested per category.
type Quotas map[interview.Category]int

// SplitQuotas divides n questions 40/30/20 across technical, scenario and
// behavioral, leaving the remainder to problem solving so the total is exactly n.
func SplitQuotas(n int) Quotas {
	if n < 0 {
		n = 0
	}
	technical := n * 4 / 10
	scenario := n * 3 / 10
	behavioral := n * 2 / 10

	return Quotas{
		interview.Technical:      technical,
		interview.Scenario:       scenario,
		interview.Behavioral:     behavioral,
		interview.ProblemSolving: n - technical - scenario - behavioral,
	}
}

// Total sums all categories.
func (q Quotas) Total() int {
	total := 0
	for _, n := range q {
		total += n
	}
	return total
}

type Request struct {
	Role           string
	JobDescription string
	Resume         string
	Count          int
}

// Plan holds generated drafts per category. Lengths are authoritative, not the quotas.
type Plan map[interview.Category][]ai.QuestionDraft

// Empty reports whether no category received a question.
func (p Plan) Empty() bool {
	for _, drafts := range p {
		if len(drafts) > 0 {
			return false
		}
	}
	return true
}

// Questions flattens the plan in category order and assigns ids and presentation order.
func (p Plan) Questions(sessionID string) []interview.Question {
	questions := make([]interview.Question, 0)
	for _, c := range interview.Categories() {
		for _, draft := range p[c] {
			questions = append(questions, interview.Question{
				ID:        uuid.NewString(),
				SessionID: sessionID,
				Text:      draft.Question,
				Context:   draft.Context,
				Category:  c,
				Order:     len(questions),
			})
		}
	}
	return questions
}

type Planner struct {
	generator ai.QuestionGenerator
	timeout   time.Duration
	logger    *zap.Logger
}

func New(generator ai.QuestionGenerator, timeout time.Duration, logger *zap.Logger) *Planner {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{generator: generator, timeout: timeout, logger: logger}
}

// Plan calls the generator once. Any failure yields an empty plan; it never returns an error.
func (p *Planner) Plan(ctx context.Context, req Request) Plan {
	quotas := SplitQuotas(req.Count)
	plan := emptyPlan()

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	generated, err := p.generator.GenerateQuestions(callCtx, ai.QuestionRequest{
		Role:           req.Role,
		JobDescription: req.JobDescription,
		Resume:         req.Resume,
		Quotas:         quotas,
	})
	if err != nil {
		p.logger.Error("generating interview questions failed",
			zap.String("role", req.Role),
			zap.Int("requested", req.Count),
			zap.Error(err),
		)
		return plan
	}

	total := 0
	for _, c := range interview.Categories() {
		for _, draft := range generated[c] {
			if draft.Question == "" {
				continue
			}
			plan[c] = append(plan[c], draft)
		}
		total += len(plan[c])

		if len(plan[c]) != quotas[c] {
			p.logger.Debug("generator did not honour the category quota",
				zap.String("category", string(c)),
				zap.Int("quota", quotas[c]),
				zap.Int("generated", len(plan[c])),
			)
		}
	}

	p.logger.Info("interview questions generated",
		zap.String("role", req.Role),
		zap.Int("requested", req.Count),
		zap.Int("generated", total),
	)

	return plan
}

func emptyPlan() Plan {
	plan := make(Plan, len(interview.Categories()))
	for _, c := range interview.Categories() {
		plan[c] = []ai.QuestionDraft{}
	}
	return plan
}
