package gemini

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/ai"
	"github.com/spigell/interview-scorer/internal/interview"
)

var (
	//go:embed prompts/questions.md
	questionsTemplate string
	//go:embed prompts/questions_system.md
	questionsSystem string
)

// GenerateQuestions asks for the requested number of questions per category.
// The result always contains every category, possibly with fewer questions than requested.
func (a *Assistant) GenerateQuestions(ctx context.Context, req ai.QuestionRequest) (map[interview.Category][]ai.QuestionDraft, error) {
	prompt := render(questionsTemplate, map[string]string{
		"ROLE":                  req.Role,
		"JOB_DESCRIPTION":       req.JobDescription,
		"RESUME":                req.Resume,
		"TECHNICAL_COUNT":       strconv.Itoa(req.Quotas[interview.Technical]),
		"SCENARIO_COUNT":        strconv.Itoa(req.Quotas[interview.Scenario]),
		"BEHAVIORAL_COUNT":      strconv.Itoa(req.Quotas[interview.Behavioral]),
		"PROBLEM_SOLVING_COUNT": strconv.Itoa(req.Quotas[interview.ProblemSolving]),
	})

	raw, err := a.call(ctx, "questions", Prompt{
		System:      questionsSystem,
		Message:     prompt,
		Temperature: temperature(questionsTemperature),
		JSON:        true,
	}, zap.String("role", req.Role))
	if err != nil {
		return nil, err
	}

	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	return parseQuestions(data)
}

func parseQuestions(data map[string]any) (map[interview.Category][]ai.QuestionDraft, error) {
	// some answers wrap the categories into a "questions" object
	if nested, ok := data["questions"].(map[string]any); ok {
		data = nested
	}

	result := make(map[interview.Category][]ai.QuestionDraft, len(interview.Categories()))
	for _, c := range interview.Categories() {
		result[c] = []ai.QuestionDraft{}
	}

	recognized := 0
	for key, value := range data {
		category, err := interview.ParseCategory(key)
		if err != nil {
			continue
		}
		recognized++

		items, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s questions are not a list", ai.ErrMalformedResponse, key)
		}

		for _, item := range items {
			var draft ai.QuestionDraft
			switch v := item.(type) {
			case string:
				draft.Question = v
			default:
				if err := mapstructure.WeakDecode(item, &draft); err != nil {
					return nil, fmt.Errorf("%w: decode %s question: %v", ai.ErrMalformedResponse, key, err)
				}
			}

			draft.Question = strings.TrimSpace(draft.Question)
			draft.Context = strings.TrimSpace(draft.Context)
			if draft.Question == "" {
				continue
			}
			result[category] = append(result[category], draft)
		}
	}

	if recognized == 0 {
		return nil, fmt.Errorf("%w: no question categories in response", ai.ErrMalformedResponse)
	}

	return result, nil
}
