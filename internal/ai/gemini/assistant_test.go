package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/ai"
	"github.com/spigell/interview-scorer/internal/interview"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt Prompt
	calls      int
}

func (s *stubGenerator) Generate(_ context.Context, p Prompt) (string, error) {
	s.calls++
	s.lastPrompt = p
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestGenerateQuestions(t *testing.T) {
	stub := &stubGenerator{response: "```json\n" + `{
		"technical": [{"question": "Explain channels", "context": "Go role"}, {"question": "  "}],
		"scenario": [{"question": "Prod is down", "context": ""}],
		"Behavioral": ["Tell me about a conflict"],
		"problem-solving": []
	}` + "\n```"}
	assistant := NewAssistant(stub, 0, zap.NewNop())

	questions, err := assistant.GenerateQuestions(context.Background(), ai.QuestionRequest{
		Role:           "Go Developer",
		JobDescription: "Build services",
		Resume:         "Five years of Go",
		Quotas: map[interview.Category]int{
			interview.Technical:      2,
			interview.Scenario:       1,
			interview.Behavioral:     1,
			interview.ProblemSolving: 1,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(questions[interview.Technical]); got != 1 {
		t.Fatalf("expected blank question to be dropped, got %d technical", got)
	}
	if questions[interview.Technical][0].Context != "Go role" {
		t.Fatalf("unexpected context: %+v", questions[interview.Technical][0])
	}
	if got := questions[interview.Behavioral]; len(got) != 1 || got[0].Question != "Tell me about a conflict" {
		t.Fatalf("expected plain string question to be accepted, got %+v", got)
	}
	if got, ok := questions[interview.ProblemSolving]; !ok || len(got) != 0 {
		t.Fatalf("expected empty problem solving list, got %+v", got)
	}

	for _, want := range []string{"Go Developer", "Build services", "Five years of Go", "2 technical questions"} {
		if !strings.Contains(stub.lastPrompt.Message, want) {
			t.Fatalf("expected prompt to contain %q", want)
		}
	}
	if strings.Contains(stub.lastPrompt.Message, "{{") {
		t.Fatalf("prompt has unreplaced placeholders: %s", stub.lastPrompt.Message)
	}
	if !stub.lastPrompt.JSON || stub.lastPrompt.Temperature == nil || *stub.lastPrompt.Temperature != questionsTemperature {
		t.Fatalf("unexpected prompt options: %+v", stub.lastPrompt)
	}
}

func TestGenerateQuestionsMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":            "I cannot help with that",
		"no categories":       `{"foo": []}`,
		"category not a list": `{"technical": "explain goroutines"}`,
	}

	for name, response := range tests {
		t.Run(name, func(t *testing.T) {
			assistant := NewAssistant(&stubGenerator{response: response}, 0, nil)
			_, err := assistant.GenerateQuestions(context.Background(), ai.QuestionRequest{})
			if !errors.Is(err, ai.ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestGradeAnswer(t *testing.T) {
	stub := &stubGenerator{response: `Here is the grade: {"score": "8", "feedback": "Good"} Thanks`}
	assistant := NewAssistant(stub, 0, zap.NewNop())

	raw, err := assistant.GradeAnswer(context.Background(), ai.GradeRequest{
		Question: "What is a mutex?",
		Category: interview.ProblemSolving,
		Answer:   "A lock",
		Role:     "Go Developer",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if raw["score"] != "8" || raw["feedback"] != "Good" {
		t.Fatalf("unexpected payload: %+v", raw)
	}
	if !strings.Contains(stub.lastPrompt.Message, "PROBLEM SOLVING question") {
		t.Fatalf("expected category label in prompt: %s", stub.lastPrompt.Message)
	}
	if *stub.lastPrompt.Temperature != gradeTemperature {
		t.Fatalf("unexpected temperature %v", *stub.lastPrompt.Temperature)
	}
}

func TestGradeAnswerPropagatesGeneratorError(t *testing.T) {
	assistant := NewAssistant(&stubGenerator{err: ai.ErrExternalService}, 0, nil)
	if _, err := assistant.GradeAnswer(context.Background(), ai.GradeRequest{}); !errors.Is(err, ai.ErrExternalService) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}

func TestGenerateNarrative(t *testing.T) {
	stub := &stubGenerator{response: `{
		"overall_assessment": "Strong candidate",
		"technical_skills": {"assessment": "Solid", "strengths": ["Go"], "weaknesses": "Kubernetes"},
		"communication_skills": "Clear",
		"problem_solving": {"assessment": "Methodical"},
		"key_strengths": ["Go", "Testing", ""],
		"areas_for_improvement": ["Scale"],
		"key_observations": ["Answered quickly"],
		"interview_completion": {"assessment": "Enough answers"},
		"recommendation": "Consider with Reservations",
		"reasoning": "Needs more depth"
	}`}
	assistant := NewAssistant(stub, 0, zap.NewNop())

	answer := "Goroutines are lightweight threads"
	eval := interview.NewEvaluation(map[string]any{"score": 7})
	narrative, err := assistant.GenerateNarrative(context.Background(), ai.NarrativeRequest{
		Role:           "Go Developer",
		CompletionRate: 0.75,
		Answered:       3,
		Total:          4,
		OverallScore:   6.7,
		CategoryScores: map[interview.Category]float64{interview.Technical: 7},
		Transcript: []ai.TranscriptItem{
			{Question: "Explain goroutines", Category: interview.Technical, Answer: &answer, Evaluation: &eval},
			{Question: "Unreached", Category: interview.Scenario},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if narrative.CommunicationAssessment != "Clear" {
		t.Fatalf("expected string section to be accepted, got %q", narrative.CommunicationAssessment)
	}
	if len(narrative.TechnicalWeaknesses) != 1 || narrative.TechnicalWeaknesses[0] != "Kubernetes" {
		t.Fatalf("expected single weakness to be lifted into a list, got %#v", narrative.TechnicalWeaknesses)
	}
	if len(narrative.KeyStrengths) != 2 {
		t.Fatalf("expected blank strengths to be dropped, got %#v", narrative.KeyStrengths)
	}
	if narrative.Recommendation != "Consider with Reservations" {
		t.Fatalf("recommendation must be passed through for gating, got %q", narrative.Recommendation)
	}

	for _, want := range []string{"3 of 4 questions (75% completion)", "Overall score: 6.7/10", "Technical questions score: 7.0/10", "Explain goroutines", "Unreached"} {
		if !strings.Contains(stub.lastPrompt.Message, want) {
			t.Fatalf("expected prompt to contain %q", want)
		}
	}
}

func TestGenerateNarrativeWithoutRecommendation(t *testing.T) {
	assistant := NewAssistant(&stubGenerator{response: `{"overall_assessment": "ok"}`}, 0, nil)
	_, err := assistant.GenerateNarrative(context.Background(), ai.NarrativeRequest{})
	if !errors.Is(err, ai.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"noise {\"a\":1} noise":   `{"a":1}`,
		"{\"a\":1}":               `{"a":1}`,
	}
	for in, expect := range tests {
		if got := extractJSON(in); got != expect {
			t.Fatalf("extractJSON(%q): expected %q, got %q", in, expect, got)
		}
	}
}
