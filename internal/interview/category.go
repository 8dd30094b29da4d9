package interview

import (
	"fmt"
	"strings"
)

// Category classifies a question's intent.
type Category string

const (
	Technical      Category = "technical"
	Scenario       Category = "scenario"
	Behavioral     Category = "behavioral"
	ProblemSolving Category = "problem_solving"
)

// Categories returns all categories in presentation order.
func Categories() []Category {
	return []Category{Technical, Scenario, Behavioral, ProblemSolving}
}

// ParseCategory accepts the canonical names plus the spellings generators
// tend to return ("Problem Solving", "problem-solving", "SCENARIO").
func ParseCategory(s string) (Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	normalized = strings.TrimSuffix(normalized, "_based")

	for _, c := range Categories() {
		if normalized == string(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown question category %q", s)
}

// Label is the human readable name used in prompts and reports.
func (c Category) Label() string {
	switch c {
	case ProblemSolving:
		return "Problem Solving"
	case Technical, Scenario, Behavioral:
		return strings.ToUpper(string(c[:1])) + string(c[1:])
	default:
		return string(c)
	}
}
