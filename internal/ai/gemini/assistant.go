package gemini

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/utils"
)

type contentGenerator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Sampling temperatures per call. Grading stays low for consistent scores.
var (
	questionsTemperature float32 = 0.7
	gradeTemperature     float32 = 0.3
	narrativeTemperature float32 = 0.4
)

const defaultMaxLogLength = 200

// Assistant implements ai.Assistant on top of a Gemini generator.
type Assistant struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewAssistant(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Assistant {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Assistant{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (a *Assistant) call(ctx context.Context, kind string, p Prompt, fields ...zap.Field) (string, error) {
	requestFields := append([]zap.Field{
		zap.String("request", kind),
		zap.Int("prompt_length", utf8.RuneCountInString(p.Message)),
		zap.String("prompt_preview", utils.TruncateForLog(p.Message, a.maxLogLen)),
	}, fields...)

	a.logger.Debug("gemini generate content request", requestFields...)

	raw, err := a.generator.Generate(ctx, p)
	if err != nil {
		return "", err
	}

	responseFields := append([]zap.Field{
		zap.String("request", kind),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	}, fields...)

	a.logger.Debug("gemini generate content response", responseFields...)

	return raw, nil
}

func render(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func temperature(v float32) *float32 {
	return &v
}
