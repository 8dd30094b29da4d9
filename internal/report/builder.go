// Package report builds the final assessment of a completed interview.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/ai"
	"github.com/spigell/interview-scorer/internal/gating"
	"github.com/spigell/interview-scorer/internal/interview"
	"github.com/spigell/interview-scorer/internal/logger"
	"github.com/spigell/interview-scorer/internal/scoring"
	"github.com/spigell/interview-scorer/internal/utils"
)

const defaultTimeout = 90 * time.Second

// Builder combines locally computed scores with the external narrative.
type Builder struct {
	aggregator *scoring.Aggregator
	narrator   ai.Narrator
	rules      []gating.Rule
	minScored  int
	timeout    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Builder)

// WithClock overrides the time source used for GeneratedAt and running durations.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

func NewBuilder(aggregator *scoring.Aggregator, narrator ai.Narrator, gate gating.Config, timeout time.Duration, logger *zap.Logger, opts ...Option) *Builder {
	gate = gate.WithDefaults()
	if aggregator == nil {
		aggregator = scoring.NewAggregator(nil)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Builder{
		aggregator: aggregator,
		narrator:   narrator,
		rules:      gating.Rules(gate),
		minScored:  gate.MinScoredAnswers,
		timeout:    timeout,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Rules exposes the gate chain for diagnostics.
func (b *Builder) Rules() []gating.Rule {
	return b.rules
}

// Build computes the report for s. It only fails when the gate itself is misconfigured;
// narrative failures are absorbed into a placeholder report.
func (b *Builder) Build(ctx context.Context, s *interview.Session) (*interview.Report, error) {
	agg := b.aggregator.Aggregate(s)
	in := gating.Input{CompletionRate: agg.CompletionRate, Scored: agg.Scored, OverallScore: agg.OverallScore}

	r := numericReport(agg)
	r.GeneratedAt = b.now()
	if d := s.Duration(r.GeneratedAt); d > 0 {
		r.Duration = utils.FormatDuration(d)
	}

	log := logger.WithSession(b.logger, s.ID)

	if err := gating.Sufficient(in, b.minScored); err != nil {
		log.Info("skipping narrative assessment", zap.Error(err))
		applyInsufficientData(r, agg)
		return r, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	narrative, err := b.narrator.GenerateNarrative(callCtx, narrativeRequest(s, agg))
	if err != nil {
		log.Error("generating narrative assessment failed", zap.Error(err))
		applyNarrativeFailure(r, agg, err)
		return r, nil
	}

	applyNarrative(r, narrative)

	verdict := &gating.Verdict{Recommendation: r.ProposedRecommendation}
	if err := gating.Run(ctx, log, b.rules, in, verdict); err != nil {
		return nil, fmt.Errorf("apply recommendation gate: %w", err)
	}

	r.Recommendation = verdict.Recommendation
	r.Adjustments = verdict.Adjustments
	for _, note := range verdict.Adjustments {
		r.Reasoning = joinSentences(r.Reasoning, note)
	}

	log.Info("report generated",
		zap.String("recommendation", string(r.Recommendation)),
		zap.String("proposed_recommendation", string(r.ProposedRecommendation)),
		zap.Float64("overall_score", r.OverallScore),
		zap.Float64("completion_rate", r.CompletionRate),
	)

	return r, nil
}

func numericReport(agg scoring.Aggregate) *interview.Report {
	scores := make(map[interview.Category]float64, len(agg.CategoryScores))
	for c, v := range agg.CategoryScores {
		scores[c] = v
	}

	return &interview.Report{
		CompletionRate:      agg.CompletionRate,
		Answered:            agg.Answered,
		Total:               agg.Total,
		Scored:              agg.Scored,
		CategoryScores:      scores,
		OverallScore:        agg.OverallScore,
		TechnicalStrengths:  []string{},
		TechnicalWeaknesses: []string{},
		Strengths:           []string{},
		AreasForImprovement: []string{},
		KeyObservations:     []string{},
	}
}

func narrativeRequest(s *interview.Session, agg scoring.Aggregate) ai.NarrativeRequest {
	transcript := make([]ai.TranscriptItem, 0, len(s.Questions))
	for _, entry := range s.Transcript() {
		item := ai.TranscriptItem{Question: entry.Question.Text, Category: entry.Question.Category}
		if entry.Answer != nil {
			text := entry.Answer.Text
			item.Answer = &text
			item.Skipped = entry.Answer.Skipped
			item.Evaluation = entry.Answer.Evaluation
		}
		transcript = append(transcript, item)
	}

	return ai.NarrativeRequest{
		Role:           s.Role,
		JobDescription: s.JobDescription,
		Resume:         s.Resume,
		CompletionRate: agg.CompletionRate,
		Answered:       agg.Answered,
		Total:          agg.Total,
		OverallScore:   agg.OverallScore,
		CategoryScores: agg.CategoryScores,
		Transcript:     transcript,
	}
}

func applyNarrative(r *interview.Report, n *ai.Narrative) {
	r.ProposedRecommendation = interview.NormalizeRecommendation(n.Recommendation)
	r.Recommendation = r.ProposedRecommendation
	r.Reasoning = n.Reasoning
	r.OverallAssessment = n.OverallAssessment
	r.TechnicalAssessment = n.TechnicalAssessment
	r.TechnicalStrengths = orEmpty(n.TechnicalStrengths)
	r.TechnicalWeaknesses = orEmpty(n.TechnicalWeaknesses)
	r.CommunicationAssessment = n.CommunicationAssessment
	r.ProblemSolvingAssessment = n.ProblemSolvingAssessment
	r.CompletionAssessment = n.CompletionAssessment
	r.Strengths = orEmpty(n.KeyStrengths)
	r.AreasForImprovement = orEmpty(n.AreasForImprovement)
	r.KeyObservations = orEmpty(n.KeyObservations)
}

func applyInsufficientData(r *interview.Report, agg scoring.Aggregate) {
	r.Recommendation = interview.DoNotHire
	r.Reasoning = fmt.Sprintf(
		"Insufficient data for a hiring decision: only %d of %d questions received a scored answer.",
		agg.Scored, agg.Total,
	)
	r.OverallAssessment = "The interview did not produce enough scored answers for a meaningful assessment."
	r.TechnicalAssessment = "Not assessed: insufficient data."
	r.CommunicationAssessment = "Not assessed: insufficient data."
	r.ProblemSolvingAssessment = "Not assessed: insufficient data."
	r.CompletionAssessment = completionSentence(agg)
	r.KeyObservations = []string{"Too few questions were answered to evaluate the candidate."}
}

func applyNarrativeFailure(r *interview.Report, agg scoring.Aggregate, cause error) {
	r.Recommendation = interview.UnableToDetermine
	r.Reasoning = "An error occurred during the final assessment: " + cause.Error()
	r.OverallAssessment = "Could not generate a comprehensive assessment due to an error."
	r.TechnicalAssessment = "Technical skills assessment could not be completed."
	r.CommunicationAssessment = "Communication skills assessment could not be completed."
	r.ProblemSolvingAssessment = "Problem solving assessment could not be completed."
	r.CompletionAssessment = completionSentence(agg)
	r.Strengths = []string{"Unable to determine key strengths"}
	r.AreasForImprovement = []string{"Unable to determine areas for improvement"}

	observation := "System encountered an error during final assessment"
	if errors.Is(cause, context.DeadlineExceeded) {
		observation = "The assessment service did not respond in time"
	}
	r.KeyObservations = []string{observation}
}

func completionSentence(agg scoring.Aggregate) string {
	return fmt.Sprintf("The candidate completed %d%% of the interview questions (%d of %d).",
		int(agg.CompletionRate*100), agg.Answered, agg.Total)
}

func joinSentences(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
