package plan

import (
	"context"
	"fmt"

	"github.com/agentdeck/agentdeck/internal/metrics"
)

// Decision is the outcome of a review.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionModify  Decision = "modify"
	DecisionReject  Decision = "reject"
)

// ReviewCallback presents a whole plan for review before execution starts.
// On modify it returns the replacement plan.
type ReviewCallback func(ctx context.Context, plan *Plan) (Decision, *Plan, error)

// GateCallback presents a single gated step for approval right before it
// runs. On modify the callback is expected to have mutated the step in
// place; the plan is revalidated before execution continues.
type GateCallback func(ctx context.Context, plan *Plan, step *Step) (Decision, error)

// Reviewer runs the plan-level review workflow.
type Reviewer struct {
	planner  *Planner
	callback ReviewCallback
	metrics  *metrics.Metrics
}

// NewReviewer creates a reviewer. A nil callback auto-approves.
func NewReviewer(planner *Planner, callback ReviewCallback, m *metrics.Metrics) *Reviewer {
	return &Reviewer{
		planner:  planner,
		callback: callback,
		metrics:  m,
	}
}

// Review presents the plan and returns the plan to execute. Rejection is
// an error; a modified plan is validated before it is accepted.
func (r *Reviewer) Review(ctx context.Context, plan *Plan) (*Plan, error) {
	if r.callback == nil {
		return plan, nil
	}

	decision, modified, err := r.callback(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("review callback failed: %w", err)
	}
	r.count(decision)

	switch decision {
	case DecisionApprove:
		return plan, nil

	case DecisionModify:
		if modified == nil {
			return nil, fmt.Errorf("modified plan is nil")
		}
		if err := r.planner.Validate(modified); err != nil {
			return nil, fmt.Errorf("invalid modified plan: %w", err)
		}
		return modified, nil

	case DecisionReject:
		return nil, fmt.Errorf("plan %s rejected by reviewer", plan.ID)

	default:
		return nil, fmt.Errorf("invalid review decision: %s", decision)
	}
}

func (r *Reviewer) count(decision Decision) {
	if r.metrics != nil {
		r.metrics.PlanReviewsTotal.WithLabelValues(string(decision)).Inc()
	}
}

// ModifyStep applies a mutation to a named step.
func ModifyStep(plan *Plan, stepID string, modifier func(*Step) error) error {
	step := FindStep(plan, stepID)
	if step == nil {
		return fmt.Errorf("step not found: %s", stepID)
	}
	return modifier(step)
}

// AddStep appends a step, enforcing id uniqueness and dependency existence.
func AddStep(plan *Plan, step Step) error {
	for _, s := range plan.Steps {
		if s.ID == step.ID {
			return fmt.Errorf("step id already exists: %s", step.ID)
		}
	}
	for _, dep := range step.Dependencies {
		if FindStep(plan, dep) == nil {
			return fmt.Errorf("dependency not found: %s", dep)
		}
	}
	plan.Steps = append(plan.Steps, step)
	return nil
}

// RemoveStep removes a step no other step depends on.
func RemoveStep(plan *Plan, stepID string) error {
	for _, step := range plan.Steps {
		for _, dep := range step.Dependencies {
			if dep == stepID {
				return fmt.Errorf("cannot remove step %s: step %s depends on it", stepID, step.ID)
			}
		}
	}
	for i, step := range plan.Steps {
		if step.ID == stepID {
			plan.Steps = append(plan.Steps[:i], plan.Steps[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("step not found: %s", stepID)
}
