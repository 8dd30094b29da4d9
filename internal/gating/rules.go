package gating

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spigell/interview-scorer/internal/interview"
)

type hireCeiling struct {
	threshold float64
}

// NewHireCeiling downgrades Hire to Consider when completion is below threshold.
func NewHireCeiling(threshold float64) Rule {
	return &hireCeiling{threshold: threshold}
}

func (r *hireCeiling) Name() string { return "completion_ceiling" }

func (r *hireCeiling) Validate() error { return validateThreshold(r.threshold) }

func (r *hireCeiling) Apply(_ context.Context, in Input, v *Verdict) (Step, error) {
	step := Step{Before: v.Recommendation, After: v.Recommendation}
	if in.CompletionRate >= r.threshold || v.Recommendation != interview.Hire {
		return step, nil
	}

	v.Recommendation = interview.Consider
	v.Adjustments = append(v.Adjustments, fmt.Sprintf(
		"Recommendation lowered from %s to %s: only %s of the questions were answered, %s is required for %s.",
		interview.Hire, interview.Consider, percent(in.CompletionRate), percent(r.threshold), interview.Hire,
	))

	step.After = v.Recommendation
	step.Changed = true
	return step, nil
}

func (r *hireCeiling) Status() Status {
	return Status{
		Name:    r.Name(),
		Details: map[string]string{"hire_completion": strconv.FormatFloat(r.threshold, 'f', 2, 64)},
	}
}

type completionFloor struct {
	threshold float64
}

// NewCompletionFloor forces Do Not Hire when completion is below threshold.
// There is no override for strong answers.
func NewCompletionFloor(threshold float64) Rule {
	return &completionFloor{threshold: threshold}
}

func (r *completionFloor) Name() string { return "completion_floor" }

func (r *completionFloor) Validate() error { return validateThreshold(r.threshold) }

func (r *completionFloor) Apply(_ context.Context, in Input, v *Verdict) (Step, error) {
	step := Step{Before: v.Recommendation, After: v.Recommendation}
	if in.CompletionRate >= r.threshold || v.Recommendation == interview.DoNotHire {
		return step, nil
	}

	before := v.Recommendation
	v.Recommendation = interview.DoNotHire
	v.Adjustments = append(v.Adjustments, fmt.Sprintf(
		"Recommendation changed from %s to %s: only %s of the questions were answered, below the %s minimum for a reliable assessment.",
		before, interview.DoNotHire, percent(in.CompletionRate), percent(r.threshold),
	))

	step.After = v.Recommendation
	step.Changed = true
	return step, nil
}

func (r *completionFloor) Status() Status {
	return Status{
		Name:    r.Name(),
		Details: map[string]string{"minimum_completion": strconv.FormatFloat(r.threshold, 'f', 2, 64)},
	}
}

func percent(rate float64) string {
	return strconv.Itoa(int(rate*100+0.5)) + "%"
}
