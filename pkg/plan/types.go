package plan

import "time"

// Plan is a reviewed, dependency-ordered set of change-request steps.
type Plan struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Steps       []Step    `json:"steps"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Step is a single unit of work in a plan. A gated step must pass a manual
// approval gate before it runs.
type Step struct {
	ID           string      `json:"id"`
	Description  string      `json:"description"`
	Dependencies []string    `json:"dependencies"`
	Gated        bool        `json:"gated"`
	Status       StepStatus  `json:"status"`
	Result       *StepResult `json:"result,omitempty"`
	Attempts     int         `json:"attempts"`
}

// StepStatus is the execution status of a step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSimulated StepStatus = "simulated"
	StepStatusRejected  StepStatus = "rejected"
)

// StepResult captures the outcome of one step execution.
type StepResult struct {
	Success   bool          `json:"success"`
	Output    string        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	Simulated bool          `json:"simulated,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// FailureStrategy defines how the executor reacts when a step fails.
type FailureStrategy string

const (
	// FailAbort stops the plan at the first failed step.
	FailAbort FailureStrategy = "abort"
	// FailContinue records the failure and keeps executing.
	FailContinue FailureStrategy = "continue"
	// FailRetry retries the step with exponential backoff before giving up.
	FailRetry FailureStrategy = "retry"
)
