package interview

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestNewEvaluationClampsAndDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		value  any
		expect float64
	}{
		{name: "missing", value: nil, expect: NeutralScore},
		{name: "non numeric string", value: "excellent", expect: NeutralScore},
		{name: "numeric string", value: "7.26", expect: 7.3},
		{name: "above range", value: 15.0, expect: 10},
		{name: "below range", value: -3.0, expect: 0},
		{name: "integer", value: 8, expect: 8},
		{name: "rounds to one decimal", value: 6.449, expect: 6.4},
		{name: "boolean", value: true, expect: NeutralScore},
		{name: "positive infinity", value: math.Inf(1), expect: MaxScore},
		{name: "negative infinity", value: math.Inf(-1), expect: MinScore},
		{name: "overflowing string", value: "1e400", expect: MaxScore},
		{name: "not a number", value: math.NaN(), expect: NeutralScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raw := map[string]any{}
			for _, field := range []string{FieldScore, FieldTechnicalAccuracy, FieldClarityOfCommunication, FieldRelevance, FieldDemonstratedExpertise} {
				if tt.value != nil {
					raw[field] = tt.value
				}
			}

			eval := NewEvaluation(raw)
			for i, score := range eval.Scores() {
				if score != tt.expect {
					t.Fatalf("field %d: expected %v, got %v", i, tt.expect, score)
				}
				assertInRange(t, score)
			}
		})
	}
}

func TestNewEvaluationTextDefaults(t *testing.T) {
	t.Parallel()

	eval := NewEvaluation(map[string]any{"score": 9})
	if eval.Feedback != DefaultFeedback {
		t.Fatalf("expected default feedback, got %q", eval.Feedback)
	}
	if eval.Strengths == nil || len(eval.Strengths) != 0 {
		t.Fatalf("expected empty strengths, got %#v", eval.Strengths)
	}
	if eval.Weaknesses == nil || len(eval.Weaknesses) != 0 {
		t.Fatalf("expected empty weaknesses, got %#v", eval.Weaknesses)
	}

	eval = NewEvaluation(map[string]any{
		"strengths":  []any{"Clear structure", " "},
		"weaknesses": []any{"No metrics"},
		"feedback":   " Solid answer. ",
	})
	if len(eval.Strengths) != 1 || eval.Strengths[0] != "Clear structure" {
		t.Fatalf("unexpected strengths: %#v", eval.Strengths)
	}
	if len(eval.Weaknesses) != 1 {
		t.Fatalf("unexpected weaknesses: %#v", eval.Weaknesses)
	}
	if eval.Feedback != "Solid answer." {
		t.Fatalf("unexpected feedback: %q", eval.Feedback)
	}
}

func TestNewEvaluationNilPayload(t *testing.T) {
	t.Parallel()

	eval := NewEvaluation(nil)
	for _, score := range eval.Scores() {
		if score != NeutralScore {
			t.Fatalf("expected neutral score, got %v", score)
		}
	}
}

func TestFallbackEvaluation(t *testing.T) {
	t.Parallel()

	eval := FallbackEvaluation(errors.New("timeout"))
	for _, score := range eval.Scores() {
		if score != NeutralScore {
			t.Fatalf("expected neutral score, got %v", score)
		}
	}
	if !strings.HasPrefix(eval.Feedback, "Error during evaluation: timeout") {
		t.Fatalf("unexpected feedback: %q", eval.Feedback)
	}
	if len(eval.Strengths) != 1 || len(eval.Weaknesses) != 1 {
		t.Fatalf("expected placeholder strengths and weaknesses")
	}
}

func TestSkippedEvaluation(t *testing.T) {
	t.Parallel()

	eval := SkippedEvaluation()
	for _, score := range eval.Scores() {
		if score != 0 {
			t.Fatalf("expected zero score, got %v", score)
		}
	}
	if eval.Feedback != SkippedFeedback {
		t.Fatalf("unexpected feedback: %q", eval.Feedback)
	}
}

func assertInRange(t *testing.T, v float64) {
	t.Helper()
	if v < MinScore || v > MaxScore {
		t.Fatalf("score %v out of range", v)
	}
	if RoundScore(v) != v {
		t.Fatalf("score %v is not rounded to one decimal", v)
	}
}
