package plan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentdeck/agentdeck/internal/metrics"
)

// StepFunc executes one step and returns its output.
type StepFunc func(ctx context.Context, step *Step) (string, error)

// ProgressFunc observes step status transitions during execution. Callbacks
// must not block; the hub forwards them to the event stream.
type ProgressFunc func(plan *Plan, step *Step)

// Executor runs plans level by level; steps within a level run in
// parallel. Gated steps pass through the gate callback before they run.
type Executor struct {
	planner *Planner
	logger  zerolog.Logger
	metrics *metrics.Metrics

	maxRetries int
	backoff    time.Duration
	strategy   FailureStrategy
	gate       GateCallback
	dryRun     bool
	progress   ProgressFunc
}

// NewExecutor creates an executor with abort-on-failure semantics and up
// to three retries when the retry strategy is selected.
func NewExecutor(planner *Planner, logger zerolog.Logger, m *metrics.Metrics) *Executor {
	return &Executor{
		planner:    planner,
		logger:     logger.With().Str("component", "plan-executor").Logger(),
		metrics:    m,
		maxRetries: 3,
		backoff:    time.Second,
		strategy:   FailAbort,
	}
}

// SetMaxRetries bounds retry attempts for the retry strategy.
func (e *Executor) SetMaxRetries(n int) { e.maxRetries = n }

// SetBackoff sets the base backoff between retries.
func (e *Executor) SetBackoff(d time.Duration) { e.backoff = d }

// SetFailureStrategy selects the failure handling strategy.
func (e *Executor) SetFailureStrategy(s FailureStrategy) { e.strategy = s }

// SetGate installs the approval gate for gated steps. Without a gate,
// executing a plan containing gated steps is an error.
func (e *Executor) SetGate(gate GateCallback) { e.gate = gate }

// SetDryRun toggles dry-run mode: the full order is walked and every step
// is marked simulated instead of invoking the step function. Gates still
// fire so the operator sees what would be asked.
func (e *Executor) SetDryRun(dryRun bool) { e.dryRun = dryRun }

// SetProgress installs the step progress observer.
func (e *Executor) SetProgress(fn ProgressFunc) { e.progress = fn }

// Execute runs the plan.
func (e *Executor) Execute(ctx context.Context, plan *Plan, fn StepFunc) error {
	levels, err := e.planner.ExecutionOrder(plan)
	if err != nil {
		return fmt.Errorf("failed to get execution order: %w", err)
	}

	for _, level := range levels {
		// Gates run sequentially before the level launches so approval
		// prompts never interleave.
		for _, id := range level {
			step := FindStep(plan, id)
			if err := e.passGate(ctx, plan, step); err != nil {
				return err
			}
		}

		if err := e.executeLevel(ctx, plan, level, fn); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) passGate(ctx context.Context, plan *Plan, step *Step) error {
	if !step.Gated {
		return nil
	}
	if e.gate == nil {
		return fmt.Errorf("step %s requires approval but no gate is configured", step.ID)
	}

	decision, err := e.gate(ctx, plan, step)
	if err != nil {
		return fmt.Errorf("gate for step %s failed: %w", step.ID, err)
	}
	if e.metrics != nil {
		e.metrics.PlanReviewsTotal.WithLabelValues(string(decision)).Inc()
	}

	switch decision {
	case DecisionApprove:
		return nil
	case DecisionModify:
		if err := e.planner.Validate(plan); err != nil {
			return fmt.Errorf("plan invalid after step %s was modified: %w", step.ID, err)
		}
		return nil
	case DecisionReject:
		step.Status = StepStatusRejected
		e.countStep(StepStatusRejected)
		e.notify(plan, step)
		return fmt.Errorf("step %s rejected, plan %s aborted", step.ID, plan.ID)
	default:
		return fmt.Errorf("invalid gate decision for step %s: %s", step.ID, decision)
	}
}

func (e *Executor) executeLevel(ctx context.Context, plan *Plan, level []string, fn StepFunc) error {
	if len(level) == 1 {
		return e.executeStep(ctx, plan, FindStep(plan, level[0]), fn)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(level))
	for _, id := range level {
		step := FindStep(plan, id)
		wg.Add(1)
		go func(s *Step) {
			defer wg.Done()
			if err := e.executeStep(ctx, plan, s, fn); err != nil {
				errs <- fmt.Errorf("step %s failed: %w", s.ID, err)
			}
		}(step)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		// FailContinue errors never reach here; executeStep swallows them.
		return err
	}
	return nil
}

func (e *Executor) executeStep(ctx context.Context, plan *Plan, step *Step, fn StepFunc) error {
	if e.dryRun {
		step.Status = StepStatusSimulated
		step.Result = &StepResult{
			Success:   true,
			Simulated: true,
			Timestamp: time.Now(),
		}
		e.countStep(StepStatusSimulated)
		e.notify(plan, step)
		e.logger.Debug().Str("step", step.ID).Msg("Step simulated")
		return nil
	}

	step.Status = StepStatusRunning
	e.notify(plan, step)
	start := time.Now()

	maxAttempts := 1
	if e.strategy == FailRetry {
		maxAttempts = e.maxRetries + 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		step.Attempts = attempt + 1

		output, err := fn(ctx, step)
		if err == nil {
			step.Status = StepStatusCompleted
			step.Result = &StepResult{
				Success:   true,
				Output:    output,
				Duration:  time.Since(start),
				Timestamp: time.Now(),
			}
			e.countStep(StepStatusCompleted)
			e.notify(plan, step)
			return nil
		}
		lastErr = err
		e.logger.Warn().Err(err).Str("step", step.ID).Int("attempt", step.Attempts).Msg("Step failed")

		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-time.After(e.backoff * (1 << attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	step.Status = StepStatusFailed
	step.Result = &StepResult{
		Success:   false,
		Error:     lastErr.Error(),
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	}
	e.countStep(StepStatusFailed)
	e.notify(plan, step)

	if e.strategy == FailContinue {
		return nil
	}
	return lastErr
}

func (e *Executor) notify(plan *Plan, step *Step) {
	if e.progress != nil {
		e.progress(plan, step)
	}
}

func (e *Executor) countStep(status StepStatus) {
	if e.metrics != nil {
		e.metrics.PlanStepsTotal.WithLabelValues(string(status)).Inc()
	}
}
