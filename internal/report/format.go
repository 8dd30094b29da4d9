package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spigell/interview-scorer/internal/interview"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Document is the exported form of a finished interview.
type Document struct {
	SessionID string                      `json:"session_id" yaml:"session_id"`
	Role      string                      `json:"role" yaml:"role"`
	Status    interview.Status            `json:"status" yaml:"status"`
	Report    *interview.Report           `json:"report" yaml:"report"`
	Questions []interview.TranscriptEntry `json:"transcript,omitempty" yaml:"transcript,omitempty"`
}

// Write renders the session report in the requested format.
func Write(w io.Writer, format string, s *interview.Session, withTranscript bool) error {
	if s.Report == nil {
		return fmt.Errorf("session %s has no report", s.ID)
	}

	doc := Document{SessionID: s.ID, Role: s.Role, Status: s.Status, Report: s.Report}
	if withTranscript {
		doc.Questions = s.Transcript()
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return writeText(w, doc)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

func writeText(w io.Writer, doc Document) error {
	r := doc.Report
	var b strings.Builder

	fmt.Fprintf(&b, "Interview %s: %s\n", doc.SessionID, doc.Role)
	fmt.Fprintf(&b, "Recommendation: %s\n", r.Recommendation)
	if r.ProposedRecommendation != "" && r.ProposedRecommendation != r.Recommendation {
		fmt.Fprintf(&b, "Proposed by assessor: %s\n", r.ProposedRecommendation)
	}
	fmt.Fprintf(&b, "Overall score: %.1f/10\n", r.OverallScore)
	fmt.Fprintf(&b, "Completion: %d of %d questions (%.0f%%)\n", r.Answered, r.Total, r.CompletionRate*100)
	if r.Duration != "" {
		fmt.Fprintf(&b, "Duration: %s\n", r.Duration)
	}

	b.WriteString("\nCategory scores:\n")
	for _, c := range interview.Categories() {
		fmt.Fprintf(&b, "  %-16s %.1f/10\n", c.Label(), r.CategoryScores[c])
	}

	section(&b, "Overall assessment", r.OverallAssessment)
	section(&b, "Technical skills", r.TechnicalAssessment)
	section(&b, "Communication", r.CommunicationAssessment)
	section(&b, "Problem solving", r.ProblemSolvingAssessment)
	section(&b, "Interview completion", r.CompletionAssessment)
	list(&b, "Key strengths", r.Strengths)
	list(&b, "Areas for improvement", r.AreasForImprovement)
	list(&b, "Key observations", r.KeyObservations)
	section(&b, "Reasoning", r.Reasoning)

	if len(doc.Questions) > 0 {
		b.WriteString("\nTranscript:\n")
		for _, entry := range doc.Questions {
			fmt.Fprintf(&b, "  %d. [%s] %s\n", entry.Question.Order+1, entry.Question.Category.Label(), entry.Question.Text)
			switch {
			case entry.Answer == nil:
				b.WriteString("     not answered\n")
			case entry.Answer.Skipped:
				b.WriteString("     skipped\n")
			case entry.Answer.Evaluation != nil:
				fmt.Fprintf(&b, "     score %.1f/10: %s\n", entry.Answer.Evaluation.Score, entry.Answer.Evaluation.Feedback)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, title, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	fmt.Fprintf(b, "\n%s:\n  %s\n", title, text)
}

func list(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}
