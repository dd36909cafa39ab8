package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoStepPlan(t *testing.T) *Plan {
	t.Helper()
	p, err := testPlanner().Generate("review me", []Step{
		{ID: "a", Description: "first"},
		{ID: "b", Description: "second", Dependencies: []string{"a"}},
	})
	require.NoError(t, err)
	return p
}

func TestReviewer_Review(t *testing.T) {
	planner := testPlanner()

	t.Run("nil callback auto-approves", func(t *testing.T) {
		p := twoStepPlan(t)
		reviewer := NewReviewer(planner, nil, nil)
		out, err := reviewer.Review(context.Background(), p)
		require.NoError(t, err)
		assert.Same(t, p, out)
	})

	t.Run("approve keeps the plan", func(t *testing.T) {
		p := twoStepPlan(t)
		reviewer := NewReviewer(planner, func(context.Context, *Plan) (Decision, *Plan, error) {
			return DecisionApprove, nil, nil
		}, nil)
		out, err := reviewer.Review(context.Background(), p)
		require.NoError(t, err)
		assert.Same(t, p, out)
	})

	t.Run("reject aborts", func(t *testing.T) {
		reviewer := NewReviewer(planner, func(context.Context, *Plan) (Decision, *Plan, error) {
			return DecisionReject, nil, nil
		}, nil)
		_, err := reviewer.Review(context.Background(), twoStepPlan(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rejected")
	})

	t.Run("modify returns the validated replacement", func(t *testing.T) {
		p := twoStepPlan(t)
		modified := twoStepPlan(t)
		reviewer := NewReviewer(planner, func(context.Context, *Plan) (Decision, *Plan, error) {
			return DecisionModify, modified, nil
		}, nil)
		out, err := reviewer.Review(context.Background(), p)
		require.NoError(t, err)
		assert.Same(t, modified, out)
	})

	t.Run("invalid modified plan is refused", func(t *testing.T) {
		bad := &Plan{ID: "bad", Steps: []Step{{ID: "a", Dependencies: []string{"ghost"}}}}
		reviewer := NewReviewer(planner, func(context.Context, *Plan) (Decision, *Plan, error) {
			return DecisionModify, bad, nil
		}, nil)
		_, err := reviewer.Review(context.Background(), twoStepPlan(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid modified plan")
	})

	t.Run("callback errors propagate", func(t *testing.T) {
		reviewer := NewReviewer(planner, func(context.Context, *Plan) (Decision, *Plan, error) {
			return "", nil, errors.New("boom")
		}, nil)
		_, err := reviewer.Review(context.Background(), twoStepPlan(t))
		assert.Error(t, err)
	})
}

func TestPlanEditing(t *testing.T) {
	t.Run("modify step", func(t *testing.T) {
		p := twoStepPlan(t)
		require.NoError(t, ModifyStep(p, "a", func(s *Step) error {
			s.Gated = true
			return nil
		}))
		assert.True(t, FindStep(p, "a").Gated)
		assert.Error(t, ModifyStep(p, "ghost", func(*Step) error { return nil }))
	})

	t.Run("add step enforces uniqueness and dependencies", func(t *testing.T) {
		p := twoStepPlan(t)
		require.NoError(t, AddStep(p, Step{ID: "c", Dependencies: []string{"b"}}))
		assert.Error(t, AddStep(p, Step{ID: "c"}))
		assert.Error(t, AddStep(p, Step{ID: "d", Dependencies: []string{"ghost"}}))
	})

	t.Run("remove step refuses depended-on steps", func(t *testing.T) {
		p := twoStepPlan(t)
		assert.Error(t, RemoveStep(p, "a"))
		require.NoError(t, RemoveStep(p, "b"))
		assert.Nil(t, FindStep(p, "b"))
		assert.Error(t, RemoveStep(p, "ghost"))
	})
}
