package ai

import (
	"context"
	"errors"

	"github.com/spigell/interview-scorer/internal/interview"
)

var (
	// ErrExternalService covers transport failures, timeouts and non-success API answers.
	ErrExternalService = errors.New("external service error")
	// ErrMalformedResponse covers payloads that cannot be parsed into the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// QuestionDraft is a generated question before it is placed in a session.
type QuestionDraft struct {
	Question string `mapstructure:"question"`
	Context  string `mapstructure:"context"`
}

type QuestionRequest struct {
	Role           string
	JobDescription string
	Resume         string
	Quotas         map[interview.Category]int
}

type GradeRequest struct {
	Question       string
	Category       interview.Category
	Answer         string
	Role           string
	JobDescription string
}

// TranscriptItem is one question of the narrative request. Answer is nil when
// the question was never reached.
type TranscriptItem struct {
	Question   string
	Category   interview.Category
	Answer     *string
	Skipped    bool
	Evaluation *interview.Evaluation
}

type NarrativeRequest struct {
	Role           string
	JobDescription string
	Resume         string
	CompletionRate float64
	Answered       int
	Total          int
	OverallScore   float64
	CategoryScores map[interview.Category]float64
	Transcript     []TranscriptItem
}

// Narrative carries the qualitative part of a report.
type Narrative struct {
	OverallAssessment        string
	TechnicalAssessment      string
	TechnicalStrengths       []string
	TechnicalWeaknesses      []string
	CommunicationAssessment  string
	ProblemSolvingAssessment string
	CompletionAssessment     string
	KeyStrengths             []string
	AreasForImprovement      []string
	KeyObservations          []string
	Recommendation           string
	Reasoning                string
}

type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, req QuestionRequest) (map[interview.Category][]QuestionDraft, error)
}

// AnswerGrader returns the grader payload as loosely typed JSON. Validation is
// left to interview.NewEvaluation.
type AnswerGrader interface {
	GradeAnswer(ctx context.Context, req GradeRequest) (map[string]any, error)
}

type Narrator interface {
	GenerateNarrative(ctx context.Context, req NarrativeRequest) (*Narrative, error)
}

// Assistant bundles the three calls made during an interview.
type Assistant interface {
	QuestionGenerator
	AnswerGrader
	Narrator
}
