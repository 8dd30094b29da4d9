// Package gating constrains externally proposed hiring recommendations with
// hard rules derived from how much of the interview was actually answered.
package gating

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/interview"
)

const (
	DefaultHireCompletion    = 0.70
	DefaultMinimumCompletion = 0.50
	DefaultMinScoredAnswers  = 2
)

// Rule represents a single gating step applied to a verdict.
type Rule interface {
	Name() string
	Validate() error
	Apply(ctx context.Context, in Input, v *Verdict) (Step, error)
}

// Input is the numeric evidence the rules look at.
type Input struct {
	CompletionRate float64
	Scored         int
	OverallScore   float64
}

// Verdict is the recommendation being gated and the notes explaining every change.
type Verdict struct {
	Recommendation interview.Recommendation
	Adjustments    []string
}

// Step describes the result of executing a rule.
type Step struct {
	Before  interview.Recommendation
	After   interview.Recommendation
	Changed bool
}

// Status represents runtime information about a rule.
type Status struct {
	Name    string
	Details map[string]string
}

// statusProvider is implemented by rules that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Config holds the gate thresholds. A nil threshold takes its default;
// an explicit zero disables the rule.
type Config struct {
	HireCompletion    *float64
	MinimumCompletion *float64
	MinScoredAnswers  int
}

// Threshold returns a pointer to v for use in Config.
func Threshold(v float64) *float64 {
	return &v
}

// WithDefaults fills unset thresholds with the defaults.
func (c Config) WithDefaults() Config {
	if c.HireCompletion == nil {
		c.HireCompletion = Threshold(DefaultHireCompletion)
	}
	if c.MinimumCompletion == nil {
		c.MinimumCompletion = Threshold(DefaultMinimumCompletion)
	}
	if c.MinScoredAnswers <= 0 {
		c.MinScoredAnswers = DefaultMinScoredAnswers
	}
	return c
}

// Rules returns the standard rule chain. The completion floor runs last so it has the final word.
func Rules(cfg Config) []Rule {
	cfg = cfg.WithDefaults()
	return []Rule{
		NewHireCeiling(*cfg.HireCompletion),
		NewCompletionFloor(*cfg.MinimumCompletion),
	}
}

// Sufficient reports interview.ErrInsufficientData when fewer than minScored
// answers were graded. Such sessions are not sent for a narrative assessment.
func Sufficient(in Input, minScored int) error {
	if minScored <= 0 {
		minScored = DefaultMinScoredAnswers
	}
	if in.Scored < minScored {
		return fmt.Errorf("%w: %d scored answers, at least %d required", interview.ErrInsufficientData, in.Scored, minScored)
	}
	return nil
}

// Run executes the supplied rules sequentially against v.
func Run(ctx context.Context, logger *zap.Logger, rules []Rule, in Input, v *Verdict) error {
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("%s: %w", rule.Name(), err)
		}
	}

	for _, rule := range rules {
		step, err := rule.Apply(ctx, in, v)
		if err != nil {
			return fmt.Errorf("%s: %w", rule.Name(), err)
		}

		if logger != nil && step.Changed {
			logger.Info("recommendation adjusted",
				zap.String("rule", rule.Name()),
				zap.String("from", string(step.Before)),
				zap.String("to", string(step.After)),
				zap.Float64("completion_rate", in.CompletionRate),
			)
		}
	}

	return nil
}

// Describe returns status entries for the provided rules.
func Describe(rules []Rule) []Status {
	statuses := make([]Status, 0, len(rules))
	for _, rule := range rules {
		if reporter, ok := rule.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{Name: rule.Name()})
	}
	return statuses
}

func validateThreshold(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("completion threshold must be within [0,1], got %v", v)
	}
	return nil
}
