package gating

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/interview-scorer/internal/interview"
)

func TestRunRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rate     float64
		proposed interview.Recommendation
		expect   interview.Recommendation
		adjusted int
	}{
		{name: "hire below ceiling is downgraded", rate: 0.65, proposed: interview.Hire, expect: interview.Consider, adjusted: 1},
		{name: "hire at ceiling stays", rate: 0.70, proposed: interview.Hire, expect: interview.Hire},
		{name: "consider below ceiling stays", rate: 0.6, proposed: interview.Consider, expect: interview.Consider},
		{name: "below floor forces do not hire", rate: 0.45, proposed: interview.Consider, expect: interview.DoNotHire, adjusted: 1},
		{name: "hire below floor ends as do not hire", rate: 0.3, proposed: interview.Hire, expect: interview.DoNotHire, adjusted: 2},
		{name: "do not hire below floor is untouched", rate: 0.2, proposed: interview.DoNotHire, expect: interview.DoNotHire},
		{name: "full completion accepts hire", rate: 1, proposed: interview.Hire, expect: interview.Hire},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := &Verdict{Recommendation: tt.proposed}
			if err := Run(context.Background(), zap.NewNop(), Rules(Config{}), Input{CompletionRate: tt.rate, Scored: 5}, v); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Recommendation != tt.expect {
				t.Fatalf("expected %s, got %s", tt.expect, v.Recommendation)
			}
			if len(v.Adjustments) != tt.adjusted {
				t.Fatalf("expected %d adjustments, got %v", tt.adjusted, v.Adjustments)
			}
		})
	}
}

func TestRunLogsAdjustments(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	v := &Verdict{Recommendation: interview.Hire}
	if err := Run(context.Background(), zap.New(core), Rules(Config{}), Input{CompletionRate: 0.65}, v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.FilterMessage("recommendation adjusted").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 adjustment log, got %d", len(entries))
	}
	if entries[0].ContextMap()["rule"] != "completion_ceiling" {
		t.Fatalf("unexpected rule field: %v", entries[0].ContextMap())
	}
	if !strings.Contains(v.Adjustments[0], "65%") {
		t.Fatalf("expected completion percentage in note, got %q", v.Adjustments[0])
	}
}

func TestRunRejectsInvalidThreshold(t *testing.T) {
	t.Parallel()

	rules := []Rule{NewHireCeiling(1.5)}
	err := Run(context.Background(), nil, rules, Input{}, &Verdict{Recommendation: interview.Hire})
	if err == nil || !strings.Contains(err.Error(), "completion_ceiling") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSufficient(t *testing.T) {
	t.Parallel()

	if err := Sufficient(Input{Scored: 1}, 2); !errors.Is(err, interview.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if err := Sufficient(Input{Scored: 2}, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Sufficient(Input{Scored: 1}, 0); err == nil {
		t.Fatalf("expected default minimum to apply")
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	statuses := Describe(Rules(Config{HireCompletion: Threshold(0.8)}))
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Name != "completion_ceiling" || statuses[0].Details["hire_completion"] != "0.80" {
		t.Fatalf("unexpected status: %+v", statuses[0])
	}
	if statuses[1].Details["minimum_completion"] != "0.50" {
		t.Fatalf("unexpected status: %+v", statuses[1])
	}
}

func TestRulesZeroThresholdDisablesRule(t *testing.T) {
	t.Parallel()

	rules := Rules(Config{MinimumCompletion: Threshold(0)})
	statuses := Describe(rules)
	if statuses[0].Details["hire_completion"] != "0.70" || statuses[1].Details["minimum_completion"] != "0.00" {
		t.Fatalf("unexpected statuses: %+v", statuses)
	}

	consider := &Verdict{Recommendation: interview.Consider}
	if err := Run(context.Background(), nil, rules, Input{CompletionRate: 0.1}, consider); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consider.Recommendation != interview.Consider || len(consider.Adjustments) != 0 {
		t.Fatalf("disabled floor must not adjust, got %s %v", consider.Recommendation, consider.Adjustments)
	}

	hire := &Verdict{Recommendation: interview.Hire}
	if err := Run(context.Background(), nil, rules, Input{CompletionRate: 0.1}, hire); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hire.Recommendation != interview.Consider {
		t.Fatalf("default ceiling must still apply, got %s", hire.Recommendation)
	}

	ungated := &Verdict{Recommendation: interview.Hire}
	if err := Run(context.Background(), nil, Rules(Config{HireCompletion: Threshold(0), MinimumCompletion: Threshold(0)}), Input{}, ungated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ungated.Recommendation != interview.Hire {
		t.Fatalf("both gates disabled must keep hire, got %s", ungated.Recommendation)
	}
}

func TestRulesRejectOutOfRangeConfig(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), nil, Rules(Config{MinimumCompletion: Threshold(-0.1)}), Input{}, &Verdict{Recommendation: interview.Consider})
	if err == nil || !strings.Contains(err.Error(), "completion_floor") {
		t.Fatalf("expected validation error, got %v", err)
	}
}
