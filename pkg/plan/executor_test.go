package plan

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExecutor() (*Planner, *Executor) {
	planner := testPlanner()
	executor := NewExecutor(planner, zerolog.New(os.Stdout).Level(zerolog.Disabled), nil)
	executor.SetBackoff(time.Millisecond)
	return planner, executor
}

func TestExecutor_Execute(t *testing.T) {
	t.Run("runs steps in dependency order", func(t *testing.T) {
		planner, executor := testExecutor()
		p, err := planner.Generate("ordered", []Step{
			{ID: "a"},
			{ID: "b", Dependencies: []string{"a"}},
			{ID: "c", Dependencies: []string{"b"}},
		})
		require.NoError(t, err)

		var order []string
		err = executor.Execute(context.Background(), p, func(_ context.Context, s *Step) (string, error) {
			order = append(order, s.ID)
			return "done " + s.ID, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, order)

		for _, s := range p.Steps {
			assert.Equal(t, StepStatusCompleted, s.Status)
			require.NotNil(t, s.Result)
			assert.True(t, s.Result.Success)
			assert.Equal(t, "done "+s.ID, s.Result.Output)
		}
	})

	t.Run("parallel level runs every step", func(t *testing.T) {
		planner, executor := testExecutor()
		p, err := planner.Generate("parallel", []Step{
			{ID: "a"}, {ID: "b"}, {ID: "c"},
		})
		require.NoError(t, err)

		var mu sync.Mutex
		ran := map[string]bool{}
		err = executor.Execute(context.Background(), p, func(_ context.Context, s *Step) (string, error) {
			mu.Lock()
			ran[s.ID] = true
			mu.Unlock()
			return "", nil
		})
		require.NoError(t, err)
		assert.Len(t, ran, 3)
	})

	t.Run("abort strategy stops at the first failure", func(t *testing.T) {
		planner, executor := testExecutor()
		p, err := planner.Generate("abort", []Step{
			{ID: "a"},
			{ID: "b", Dependencies: []string{"a"}},
		})
		require.NoError(t, err)

		err = executor.Execute(context.Background(), p, func(_ context.Context, s *Step) (string, error) {
			if s.ID == "a" {
				return "", errors.New("boom")
			}
			return "", nil
		})
		require.Error(t, err)
		assert.Equal(t, StepStatusFailed, FindStep(p, "a").Status)
		assert.Equal(t, StepStatusPending, FindStep(p, "b").Status)
	})

	t.Run("continue strategy keeps going", func(t *testing.T) {
		planner, executor := testExecutor()
		executor.SetFailureStrategy(FailContinue)
		p, err := planner.Generate("continue", []Step{
			{ID: "a"},
			{ID: "b", Dependencies: []string{"a"}},
		})
		require.NoError(t, err)

		err = executor.Execute(context.Background(), p, func(_ context.Context, s *Step) (string, error) {
			if s.ID == "a" {
				return "", errors.New("boom")
			}
			return "", nil
		})
		require.NoError(t, err)
		assert.Equal(t, StepStatusFailed, FindStep(p, "a").Status)
		assert.Equal(t, StepStatusCompleted, FindStep(p, "b").Status)
	})

	t.Run("retry strategy retries with backoff then succeeds", func(t *testing.T) {
		planner, executor := testExecutor()
		executor.SetFailureStrategy(FailRetry)
		p, err := planner.Generate("retry", []Step{{ID: "a"}})
		require.NoError(t, err)

		attempts := 0
		err = executor.Execute(context.Background(), p, func(_ context.Context, _ *Step) (string, error) {
			attempts++
			if attempts < 3 {
				return "", errors.New("flaky")
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, 3, FindStep(p, "a").Attempts)
		assert.Equal(t, StepStatusCompleted, FindStep(p, "a").Status)
	})

	t.Run("retry strategy gives up after max retries", func(t *testing.T) {
		planner, executor := testExecutor()
		executor.SetFailureStrategy(FailRetry)
		executor.SetMaxRetries(2)
		p, err := planner.Generate("retry-exhausted", []Step{{ID: "a"}})
		require.NoError(t, err)

		attempts := 0
		err = executor.Execute(context.Background(), p, func(_ context.Context, _ *Step) (string, error) {
			attempts++
			return "", errors.New("always")
		})
		require.Error(t, err)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, StepStatusFailed, FindStep(p, "a").Status)
		assert.Equal(t, "always", FindStep(p, "a").Result.Error)
	})
}

func TestExecutor_Gates(t *testing.T) {
	gatedPlan := func(t *testing.T, planner *Planner) *Plan {
		t.Helper()
		p, err := planner.Generate("gated", []Step{
			{ID: "safe"},
			{ID: "risky", Gated: true, Dependencies: []string{"safe"}},
		})
		require.NoError(t, err)
		return p
	}

	t.Run("gated step without a gate is an error", func(t *testing.T) {
		planner, executor := testExecutor()
		p := gatedPlan(t, planner)
		err := executor.Execute(context.Background(), p, func(_ context.Context, _ *Step) (string, error) {
			return "", nil
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no gate is configured")
	})

	t.Run("approved gate lets the step run", func(t *testing.T) {
		planner, executor := testExecutor()
		var gated []string
		executor.SetGate(func(_ context.Context, _ *Plan, s *Step) (Decision, error) {
			gated = append(gated, s.ID)
			return DecisionApprove, nil
		})
		p := gatedPlan(t, planner)
		err := executor.Execute(context.Background(), p, func(_ context.Context, _ *Step) (string, error) {
			return "", nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"risky"}, gated)
		assert.Equal(t, StepStatusCompleted, FindStep(p, "risky").Status)
	})

	t.Run("rejected gate aborts the plan", func(t *testing.T) {
		planner, executor := testExecutor()
		executor.SetGate(func(_ context.Context, _ *Plan, _ *Step) (Decision, error) {
			return DecisionReject, nil
		})
		p := gatedPlan(t, planner)
		err := executor.Execute(context.Background(), p, func(_ context.Context, _ *Step) (string, error) {
			return "", nil
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rejected")
		assert.Equal(t, StepStatusRejected, FindStep(p, "risky").Status)
	})

	t.Run("modify revalidates the plan", func(t *testing.T) {
		planner, executor := testExecutor()
		executor.SetGate(func(_ context.Context, _ *Plan, s *Step) (Decision, error) {
			s.Description = "reviewed"
			return DecisionModify, nil
		})
		p := gatedPlan(t, planner)
		err := executor.Execute(context.Background(), p, func(_ context.Context, _ *Step) (string, error) {
			return "", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "reviewed", FindStep(p, "risky").Description)
	})
}

func TestExecutor_Progress(t *testing.T) {
	planner, executor := testExecutor()

	var mu sync.Mutex
	var seen []string
	executor.SetProgress(func(_ *Plan, s *Step) {
		mu.Lock()
		seen = append(seen, s.ID+":"+string(s.Status))
		mu.Unlock()
	})

	p, err := planner.Generate("observed", []Step{
		{ID: "a"},
		{ID: "b", Dependencies: []string{"a"}},
	})
	require.NoError(t, err)

	err = executor.Execute(context.Background(), p, func(_ context.Context, s *Step) (string, error) {
		if s.ID == "b" {
			return "", errors.New("boom")
		}
		return "", nil
	})
	require.Error(t, err)

	assert.Equal(t, []string{
		"a:" + string(StepStatusRunning),
		"a:" + string(StepStatusCompleted),
		"b:" + string(StepStatusRunning),
		"b:" + string(StepStatusFailed),
	}, seen)
}

func TestExecutor_DryRun(t *testing.T) {
	planner, executor := testExecutor()
	executor.SetDryRun(true)

	var gated []string
	executor.SetGate(func(_ context.Context, _ *Plan, s *Step) (Decision, error) {
		gated = append(gated, s.ID)
		return DecisionApprove, nil
	})

	p, err := planner.Generate("dry", []Step{
		{ID: "a"},
		{ID: "b", Gated: true, Dependencies: []string{"a"}},
	})
	require.NoError(t, err)

	invoked := false
	err = executor.Execute(context.Background(), p, func(_ context.Context, _ *Step) (string, error) {
		invoked = true
		return "", nil
	})
	require.NoError(t, err)

	assert.False(t, invoked, "dry-run must not invoke the step function")
	assert.Equal(t, []string{"b"}, gated, "gates still fire in dry-run")
	for _, s := range p.Steps {
		assert.Equal(t, StepStatusSimulated, s.Status)
		require.NotNil(t, s.Result)
		assert.True(t, s.Result.Simulated)
	}
}
