package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	_ "embed"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/interview-scorer/internal/ai"
	"github.com/spigell/interview-scorer/internal/interview"
)

var (
	//go:embed prompts/narrative.md
	narrativeTemplate string
	//go:embed prompts/narrative_system.md
	narrativeSystem string
)

type assessmentPayload struct {
	Assessment string   `mapstructure:"assessment"`
	Strengths  []string `mapstructure:"strengths"`
	Weaknesses []string `mapstructure:"weaknesses"`
}

type narrativePayload struct {
	OverallAssessment   string            `mapstructure:"overall_assessment"`
	TechnicalSkills     assessmentPayload `mapstructure:"technical_skills"`
	CommunicationSkills assessmentPayload `mapstructure:"communication_skills"`
	ProblemSolving      assessmentPayload `mapstructure:"problem_solving"`
	InterviewCompletion assessmentPayload `mapstructure:"interview_completion"`
	KeyStrengths        []string          `mapstructure:"key_strengths"`
	AreasForImprovement []string          `mapstructure:"areas_for_improvement"`
	KeyObservations     []string          `mapstructure:"key_observations"`
	Recommendation      string            `mapstructure:"recommendation"`
	Reasoning           string            `mapstructure:"reasoning"`
}

// Sections the model sometimes returns as a plain string instead of an object.
var assessmentSections = []string{"technical_skills", "communication_skills", "problem_solving", "interview_completion"}

// transcriptEntry is the per-question payload embedded into the prompt.
type transcriptEntry struct {
	Question   string   `json:"question"`
	Type       string   `json:"type"`
	Answered   bool     `json:"answered"`
	Skipped    bool     `json:"skipped,omitempty"`
	Answer     string   `json:"answer,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	Strengths  []string `json:"strengths,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`
}

// GenerateNarrative asks for the qualitative part of the final report.
func (a *Assistant) GenerateNarrative(ctx context.Context, req ai.NarrativeRequest) (*ai.Narrative, error) {
	transcript, err := renderTranscript(req.Transcript)
	if err != nil {
		return nil, err
	}

	prompt := render(narrativeTemplate, map[string]string{
		"ROLE":               req.Role,
		"JOB_DESCRIPTION":    req.JobDescription,
		"RESUME":             req.Resume,
		"ANSWERED":           strconv.Itoa(req.Answered),
		"TOTAL":              strconv.Itoa(req.Total),
		"COMPLETION_PERCENT": strconv.Itoa(int(req.CompletionRate * 100)),
		"OVERALL_SCORE":      strconv.FormatFloat(req.OverallScore, 'f', 1, 64),
		"CATEGORY_SCORES":    renderCategoryScores(req.CategoryScores),
		"TRANSCRIPT":         transcript,
	})

	raw, err := a.call(ctx, "narrative", Prompt{
		System:      narrativeSystem,
		Message:     prompt,
		Temperature: temperature(narrativeTemperature),
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	return parseNarrative(data)
}

func parseNarrative(data map[string]any) (*ai.Narrative, error) {
	for _, key := range assessmentSections {
		if text, ok := data[key].(string); ok {
			data[key] = map[string]any{"assessment": text}
		}
	}

	var payload narrativePayload
	if err := mapstructure.WeakDecode(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode narrative: %v", ai.ErrMalformedResponse, err)
	}

	if strings.TrimSpace(payload.Recommendation) == "" {
		return nil, fmt.Errorf("%w: narrative has no recommendation", ai.ErrMalformedResponse)
	}

	return &ai.Narrative{
		OverallAssessment:        strings.TrimSpace(payload.OverallAssessment),
		TechnicalAssessment:      strings.TrimSpace(payload.TechnicalSkills.Assessment),
		TechnicalStrengths:       nonEmpty(payload.TechnicalSkills.Strengths),
		TechnicalWeaknesses:      nonEmpty(payload.TechnicalSkills.Weaknesses),
		CommunicationAssessment:  strings.TrimSpace(payload.CommunicationSkills.Assessment),
		ProblemSolvingAssessment: strings.TrimSpace(payload.ProblemSolving.Assessment),
		CompletionAssessment:     strings.TrimSpace(payload.InterviewCompletion.Assessment),
		KeyStrengths:             nonEmpty(payload.KeyStrengths),
		AreasForImprovement:      nonEmpty(payload.AreasForImprovement),
		KeyObservations:          nonEmpty(payload.KeyObservations),
		Recommendation:           strings.TrimSpace(payload.Recommendation),
		Reasoning:                strings.TrimSpace(payload.Reasoning),
	}, nil
}

func renderTranscript(items []ai.TranscriptItem) (string, error) {
	entries := make([]transcriptEntry, 0, len(items))
	for _, item := range items {
		entry := transcriptEntry{
			Question: item.Question,
			Type:     string(item.Category),
			Skipped:  item.Skipped,
		}
		if item.Answer != nil && !item.Skipped {
			entry.Answered = true
			entry.Answer = *item.Answer
			if item.Evaluation != nil {
				score := item.Evaluation.Score
				entry.Score = &score
				entry.Strengths = item.Evaluation.Strengths
				entry.Weaknesses = item.Evaluation.Weaknesses
			}
		}
		entries = append(entries, entry)
	}

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	return string(out), nil
}

func renderCategoryScores(scores map[interview.Category]float64) string {
	lines := make([]string, 0, len(scores))
	for _, c := range interview.Categories() {
		lines = append(lines, fmt.Sprintf("%s questions score: %.1f/10", c.Label(), scores[c]))
	}
	return strings.Join(lines, "\n")
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
