package interview

import (
	"strings"
	"time"
)

// Recommendation is the final hiring verdict.
type Recommendation string

const (
	Hire              Recommendation = "Hire"
	Consider          Recommendation = "Consider"
	DoNotHire         Recommendation = "Do Not Hire"
	UnableToDetermine Recommendation = "Unable to determine"
)

// NormalizeRecommendation maps free-form verdicts onto the known values.
// "Consider with Reservations" becomes Consider. Anything unrecognized is UnableToDetermine.
func NormalizeRecommendation(s string) Recommendation {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.Join(strings.Fields(strings.NewReplacer("-", " ", "_", " ", "'", "").Replace(v)), " ")

	switch {
	case v == "":
		return UnableToDetermine
	case strings.Contains(v, "do not hire"), strings.Contains(v, "dont hire"),
		strings.Contains(v, "no hire"), strings.Contains(v, "not hire"), strings.Contains(v, "reject"):
		return DoNotHire
	case strings.Contains(v, "consider"):
		return Consider
	case strings.Contains(v, "hire"):
		return Hire
	default:
		return UnableToDetermine
	}
}

// Report is the aggregate assessment of a session. Numeric fields are
// deterministic for a given session; narrative fields come from the external service.
type Report struct {
	CompletionRate float64              `json:"completion_rate" yaml:"completion_rate"`
	Answered       int                  `json:"answered" yaml:"answered"`
	Total          int                  `json:"total" yaml:"total"`
	Scored         int                  `json:"scored" yaml:"scored"`
	CategoryScores map[Category]float64 `json:"category_scores" yaml:"category_scores"`
	OverallScore   float64              `json:"overall_score" yaml:"overall_score"`

	Recommendation         Recommendation `json:"recommendation" yaml:"recommendation"`
	ProposedRecommendation Recommendation `json:"proposed_recommendation,omitempty" yaml:"proposed_recommendation,omitempty"`
	Reasoning              string         `json:"reasoning" yaml:"reasoning"`
	Adjustments            []string       `json:"adjustments,omitempty" yaml:"adjustments,omitempty"`

	OverallAssessment        string   `json:"overall_assessment" yaml:"overall_assessment"`
	TechnicalAssessment      string   `json:"technical_assessment" yaml:"technical_assessment"`
	TechnicalStrengths       []string `json:"technical_strengths" yaml:"technical_strengths"`
	TechnicalWeaknesses      []string `json:"technical_weaknesses" yaml:"technical_weaknesses"`
	CommunicationAssessment  string   `json:"communication_assessment" yaml:"communication_assessment"`
	ProblemSolvingAssessment string   `json:"problem_solving_assessment" yaml:"problem_solving_assessment"`
	CompletionAssessment     string   `json:"completion_assessment" yaml:"completion_assessment"`
	Strengths                []string `json:"strengths" yaml:"strengths"`
	AreasForImprovement      []string `json:"areas_for_improvement" yaml:"areas_for_improvement"`
	KeyObservations          []string `json:"key_observations" yaml:"key_observations"`

	Duration    string    `json:"duration,omitempty" yaml:"duration,omitempty"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}
