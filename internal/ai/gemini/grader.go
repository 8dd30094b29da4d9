package gemini

import (
	"context"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/ai"
)

var (
	//go:embed prompts/grade.md
	gradeTemplate string
	//go:embed prompts/grade_system.md
	gradeSystem string
)

// GradeAnswer returns the raw grading payload. Clamping and defaults happen in interview.NewEvaluation.
func (a *Assistant) GradeAnswer(ctx context.Context, req ai.GradeRequest) (map[string]any, error) {
	prompt := render(gradeTemplate, map[string]string{
		"ROLE":            req.Role,
		"JOB_DESCRIPTION": req.JobDescription,
		"CATEGORY":        strings.ToUpper(req.Category.Label()),
		"QUESTION":        req.Question,
		"ANSWER":          req.Answer,
	})

	raw, err := a.call(ctx, "grade", Prompt{
		System:      gradeSystem,
		Message:     prompt,
		Temperature: temperature(gradeTemperature),
		JSON:        true,
	}, zap.String("category", string(req.Category)))
	if err != nil {
		return nil, err
	}

	return decodeObject(raw)
}
