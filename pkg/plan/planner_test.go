package plan

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlanner() *Planner {
	return NewPlanner(zerolog.New(os.Stdout).Level(zerolog.Disabled))
}

func TestPlanner_Generate(t *testing.T) {
	planner := testPlanner()

	t.Run("assigns ids and pending status", func(t *testing.T) {
		p, err := planner.Generate("ship feature", []Step{
			{Description: "write code"},
			{Description: "write tests"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "step-1", p.Steps[0].ID)
		assert.Equal(t, "step-2", p.Steps[1].ID)
		assert.Equal(t, StepStatusPending, p.Steps[0].Status)
		assert.False(t, p.CreatedAt.IsZero())
	})

	t.Run("empty description fails", func(t *testing.T) {
		_, err := planner.Generate("", []Step{{ID: "a"}})
		assert.Error(t, err)
	})

	t.Run("no steps fails", func(t *testing.T) {
		_, err := planner.Generate("empty", nil)
		assert.Error(t, err)
	})

	t.Run("duplicate step ids fail", func(t *testing.T) {
		_, err := planner.Generate("dupes", []Step{{ID: "a"}, {ID: "a"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate step id")
	})

	t.Run("unknown dependency fails", func(t *testing.T) {
		_, err := planner.Generate("bad dep", []Step{
			{ID: "a", Dependencies: []string{"ghost"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-existent step")
	})

	t.Run("cycle fails", func(t *testing.T) {
		_, err := planner.Generate("cycle", []Step{
			{ID: "a", Dependencies: []string{"b"}},
			{ID: "b", Dependencies: []string{"a"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "circular dependency")
	})
}

func TestPlanner_ExecutionOrder(t *testing.T) {
	planner := testPlanner()

	t.Run("independent steps share a level", func(t *testing.T) {
		p, err := planner.Generate("parallel", []Step{
			{ID: "b"},
			{ID: "a"},
		})
		require.NoError(t, err)

		levels, err := planner.ExecutionOrder(p)
		require.NoError(t, err)
		require.Len(t, levels, 1)
		assert.Equal(t, []string{"a", "b"}, levels[0])
	})

	t.Run("dependencies split levels", func(t *testing.T) {
		p, err := planner.Generate("diamond", []Step{
			{ID: "root"},
			{ID: "left", Dependencies: []string{"root"}},
			{ID: "right", Dependencies: []string{"root"}},
			{ID: "merge", Dependencies: []string{"left", "right"}},
		})
		require.NoError(t, err)

		levels, err := planner.ExecutionOrder(p)
		require.NoError(t, err)
		require.Len(t, levels, 3)
		assert.Equal(t, []string{"root"}, levels[0])
		assert.Equal(t, []string{"left", "right"}, levels[1])
		assert.Equal(t, []string{"merge"}, levels[2])
	})

	t.Run("cycle introduced after generation is caught", func(t *testing.T) {
		p := &Plan{
			ID: "p",
			Steps: []Step{
				{ID: "a", Dependencies: []string{"b"}},
				{ID: "b", Dependencies: []string{"a"}},
			},
		}
		_, err := planner.ExecutionOrder(p)
		assert.Error(t, err)
	})
}
