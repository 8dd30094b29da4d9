package interview

import (
	"math"

	"github.com/spigell/interview-scorer/internal/utils"
)

const (
	MinScore = 0.0
	MaxScore = 10.0
	// NeutralScore replaces numeric fields the grader omitted or malformed.
	NeutralScore = 5.0

	DefaultFeedback = "No detailed feedback provided."
	SkippedFeedback = "This question was skipped."
)

// Field names of the grader payload.
const (
	FieldScore                  = "score"
	FieldTechnicalAccuracy      = "technical_accuracy"
	FieldClarityOfCommunication = "clarity_of_communication"
	FieldRelevance              = "relevance"
	FieldDemonstratedExpertise  = "demonstrated_expertise"
	FieldStrengths              = "strengths"
	FieldWeaknesses             = "weaknesses"
	FieldFeedback               = "feedback"
)

// Evaluation is the validated grade of a single answer.
type Evaluation struct {
	Score                  float64  `json:"score" yaml:"score"`
	TechnicalAccuracy      float64  `json:"technical_accuracy" yaml:"technical_accuracy"`
	ClarityOfCommunication float64  `json:"clarity_of_communication" yaml:"clarity_of_communication"`
	Relevance              float64  `json:"relevance" yaml:"relevance"`
	DemonstratedExpertise  float64  `json:"demonstrated_expertise" yaml:"demonstrated_expertise"`
	Strengths              []string `json:"strengths" yaml:"strengths"`
	Weaknesses             []string `json:"weaknesses" yaml:"weaknesses"`
	Feedback               string   `json:"feedback" yaml:"feedback"`
}

// NewEvaluation builds an Evaluation from a loosely typed grader payload.
// It is the only place where grader output is clamped and defaulted, so every
// Evaluation it returns has all five scores within [0,10] at one decimal.
func NewEvaluation(raw map[string]any) Evaluation {
	feedback := utils.CoerceString(raw[FieldFeedback])
	if feedback == "" {
		feedback = DefaultFeedback
	}

	return Evaluation{
		Score:                  normalizeScore(raw[FieldScore]),
		TechnicalAccuracy:      normalizeScore(raw[FieldTechnicalAccuracy]),
		ClarityOfCommunication: normalizeScore(raw[FieldClarityOfCommunication]),
		Relevance:              normalizeScore(raw[FieldRelevance]),
		DemonstratedExpertise:  normalizeScore(raw[FieldDemonstratedExpertise]),
		Strengths:              utils.CoerceStrings(raw[FieldStrengths]),
		Weaknesses:             utils.CoerceStrings(raw[FieldWeaknesses]),
		Feedback:               feedback,
	}
}

// FallbackEvaluation is used when the grader could not be reached or answered garbage.
func FallbackEvaluation(cause error) Evaluation {
	feedback := "Error during evaluation"
	if cause != nil {
		feedback += ": " + cause.Error()
	}

	return Evaluation{
		Score:                  NeutralScore,
		TechnicalAccuracy:      NeutralScore,
		ClarityOfCommunication: NeutralScore,
		Relevance:              NeutralScore,
		DemonstratedExpertise:  NeutralScore,
		Strengths:              []string{"Unable to properly evaluate response"},
		Weaknesses:             []string{"System could not analyze this response"},
		Feedback:               feedback,
	}
}

// SkippedEvaluation is attached to skipped answers. Skips are never graded.
func SkippedEvaluation() Evaluation {
	return Evaluation{
		Strengths:  []string{},
		Weaknesses: []string{},
		Feedback:   SkippedFeedback,
	}
}

// Scores lists the five numeric fields in a fixed order.
func (e Evaluation) Scores() []float64 {
	return []float64{e.Score, e.TechnicalAccuracy, e.ClarityOfCommunication, e.Relevance, e.DemonstratedExpertise}
}

func normalizeScore(v any) float64 {
	f := utils.CoerceFloat(v)
	if math.IsNaN(f) {
		return NeutralScore
	}
	return RoundScore(math.Max(MinScore, math.Min(MaxScore, f)))
}

// RoundScore rounds to one decimal place.
func RoundScore(v float64) float64 {
	return math.Round(v*10) / 10
}
