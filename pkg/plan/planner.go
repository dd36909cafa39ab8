package plan

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Planner builds and validates plans.
type Planner struct {
	logger zerolog.Logger
}

// NewPlanner creates a planner.
func NewPlanner(logger zerolog.Logger) *Planner {
	return &Planner{
		logger: logger.With().Str("component", "planner").Logger(),
	}
}

// Generate assembles a plan from the given steps, assigning ids where
// missing, and validates it.
func (p *Planner) Generate(description string, steps []Step) (*Plan, error) {
	if description == "" {
		return nil, fmt.Errorf("plan description cannot be empty")
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("plan must have at least one step")
	}

	for i := range steps {
		if steps[i].ID == "" {
			steps[i].ID = fmt.Sprintf("step-%d", i+1)
		}
		if steps[i].Status == "" {
			steps[i].Status = StepStatusPending
		}
	}

	if err := p.validateSteps(steps); err != nil {
		return nil, fmt.Errorf("invalid steps: %w", err)
	}

	plan := &Plan{
		ID:          uuid.New().String(),
		Description: description,
		Steps:       steps,
		CreatedAt:   time.Now(),
	}
	p.logger.Debug().Str("plan", plan.ID).Int("steps", len(steps)).Msg("Plan generated")
	return plan, nil
}

// Validate checks a plan's structural invariants: non-empty unique step
// ids, dependencies referencing existing steps, no cycles.
func (p *Planner) Validate(plan *Plan) error {
	if plan.ID == "" {
		return fmt.Errorf("plan id is empty")
	}
	if len(plan.Steps) == 0 {
		return fmt.Errorf("plan has no steps")
	}
	return p.validateSteps(plan.Steps)
}

func (p *Planner) validateSteps(steps []Step) error {
	ids := make(map[string]bool, len(steps))
	for _, step := range steps {
		if step.ID == "" {
			return fmt.Errorf("step has empty id")
		}
		if ids[step.ID] {
			return fmt.Errorf("duplicate step id: %s", step.ID)
		}
		ids[step.ID] = true
	}

	for _, step := range steps {
		for _, dep := range step.Dependencies {
			if !ids[dep] {
				return fmt.Errorf("step %s depends on non-existent step: %s", step.ID, dep)
			}
		}
	}

	return p.checkCycles(steps)
}

func (p *Planner) checkCycles(steps []Step) error {
	graph := make(map[string][]string, len(steps))
	for _, step := range steps {
		graph[step.ID] = step.Dependencies
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(string) bool
	visit = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, dep := range graph[id] {
			if !visited[dep] {
				if visit(dep) {
					return true
				}
			} else if onStack[dep] {
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for _, step := range steps {
		if !visited[step.ID] {
			if visit(step.ID) {
				return fmt.Errorf("circular dependency detected involving step: %s", step.ID)
			}
		}
	}
	return nil
}

// ExecutionOrder returns the plan's steps grouped into dependency levels.
// Steps within a level have no ordering constraints between them and may
// run in parallel; levels run in sequence. Ids within a level are sorted
// for determinism.
func (p *Planner) ExecutionOrder(plan *Plan) ([][]string, error) {
	inDegree := make(map[string]int, len(plan.Steps))
	dependents := make(map[string][]string)

	for _, step := range plan.Steps {
		if _, exists := inDegree[step.ID]; !exists {
			inDegree[step.ID] = 0
		}
		for _, dep := range step.Dependencies {
			dependents[dep] = append(dependents[dep], step.ID)
			inDegree[step.ID]++
		}
	}

	var queue []string
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	var levels [][]string
	total := 0
	for len(queue) > 0 {
		sort.Strings(queue)
		level := make([]string, len(queue))
		copy(level, queue)
		levels = append(levels, level)
		total += len(level)

		var next []string
		for _, id := range queue {
			for _, dependent := range dependents[id] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		queue = next
	}

	if total != len(plan.Steps) {
		return nil, fmt.Errorf("cannot determine execution order: circular dependencies")
	}
	return levels, nil
}

// FindStep returns the step with the given id, or nil.
func FindStep(plan *Plan, stepID string) *Step {
	for i := range plan.Steps {
		if plan.Steps[i].ID == stepID {
			return &plan.Steps[i]
		}
	}
	return nil
}
