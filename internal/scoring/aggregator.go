// Package scoring turns a session's evaluations into category and overall scores.
package scoring

import (
	"fmt"

	"github.com/spigell/interview-scorer/internal/interview"
)

// Weights assigns the relative importance of each category in the overall score.
type Weights map[interview.Category]float64

// DefaultWeights favours technical depth over the softer categories.
func DefaultWeights() Weights {
	return Weights{
		interview.Technical:      0.4,
		interview.Scenario:       0.3,
		interview.Behavioral:     0.15,
		interview.ProblemSolving: 0.15,
	}
}

// Validate rejects negative weights and weight sets that cannot produce a mean.
func (w Weights) Validate() error {
	sum := 0.0
	for _, c := range interview.Categories() {
		v, ok := w[c]
		if !ok {
			return fmt.Errorf("weight for %s is missing", c)
		}
		if v < 0 {
			return fmt.Errorf("weight for %s must not be negative, got %v", c, v)
		}
		sum += v
	}
	if sum == 0 {
		return fmt.Errorf("at least one category weight must be positive")
	}
	return nil
}

// Aggregate is the numeric summary of a session.
type Aggregate struct {
	// CompletionRate is kept unrounded so gating thresholds are compared exactly.
	CompletionRate float64
	Answered       int
	Total          int
	Scored         int
	// CategoryScores and OverallScore are rounded to one decimal.
	CategoryScores map[interview.Category]float64
	OverallScore   float64
}

type Aggregator struct {
	weights Weights
}

// NewAggregator falls back to DefaultWeights when weights is empty.
func NewAggregator(weights Weights) *Aggregator {
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	return &Aggregator{weights: weights}
}

func (a *Aggregator) Weights() Weights {
	return a.weights
}

// Aggregate computes completion, per-category means over scored answers and
// the weighted overall score. Categories without a scored answer report 0 and
// are left out of the weighted mean entirely.
func (a *Aggregator) Aggregate(s *interview.Session) Aggregate {
	answered, total := s.Progress()
	result := Aggregate{
		CompletionRate: s.CompletionRate(),
		Answered:       answered,
		Total:          total,
		CategoryScores: make(map[interview.Category]float64, len(interview.Categories())),
	}

	sums := make(map[interview.Category]float64)
	counts := make(map[interview.Category]int)
	for _, entry := range s.Transcript() {
		if !entry.Answer.Scored() {
			continue
		}
		sums[entry.Question.Category] += entry.Answer.Evaluation.Score
		counts[entry.Question.Category]++
		result.Scored++
	}

	weighted, totalWeight := 0.0, 0.0
	for _, c := range interview.Categories() {
		if counts[c] == 0 {
			result.CategoryScores[c] = 0
			continue
		}
		mean := sums[c] / float64(counts[c])
		result.CategoryScores[c] = interview.RoundScore(mean)
		weighted += a.weights[c] * mean
		totalWeight += a.weights[c]
	}

	if totalWeight > 0 {
		result.OverallScore = interview.RoundScore(weighted / totalWeight)
	}

	return result
}
