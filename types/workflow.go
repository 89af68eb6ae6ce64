package types

import "time"

// WorkflowState is the closed lifecycle state set for a Workflow.
type WorkflowState string

const (
	WorkflowPending   WorkflowState = "PENDING"
	WorkflowRunning   WorkflowState = "RUNNING"
	WorkflowCompleted WorkflowState = "COMPLETED"
	WorkflowFailed    WorkflowState = "FAILED"
	WorkflowCancelled WorkflowState = "CANCELLED"
	WorkflowPaused    WorkflowState = "PAUSED"
)

// Terminal reports whether s is one of the workflow terminal states.
func (s WorkflowState) Terminal() bool {
	return s == WorkflowCompleted || s == WorkflowFailed || s == WorkflowCancelled
}

// validTransitions enumerates the declared transition table.
// cleanupWorkflow is handled separately (requires a terminal state, not
// a transition).
var validTransitions = map[WorkflowState]map[WorkflowState]bool{
	WorkflowPending: {
		WorkflowRunning:   true,
		WorkflowCancelled: true,
	},
	WorkflowRunning: {
		WorkflowCompleted: true,
		WorkflowFailed:    true,
		WorkflowCancelled: true,
		WorkflowPaused:    true,
	},
	WorkflowPaused: {
		WorkflowRunning:   true,
		WorkflowCancelled: true,
	},
}

// CanTransition reports whether (from, to) is in the declared table.
func CanTransition(from, to WorkflowState) bool {
	next, ok := validTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// WorkflowEvent is one entry in a Workflow's ordered event log.
type WorkflowEvent struct {
	Name      string
	Payload   any
	Timestamp time.Time
}

// Workflow is a named, stateful coordination of one or more agents.
type Workflow struct {
	WorkflowID     string
	State          WorkflowState
	Config         map[string]any
	StartedAt      time.Time
	CompletedAt    *time.Time
	Events         []WorkflowEvent
	AssignedAgents map[string]bool
	LastUpdatedAt  time.Time
}

// ExecutionResult is the terminal record for one orchestrator decision.
type ExecutionResult struct {
	DecisionID string
	StrategyID string
	Action     string
	Context    map[string]any
	Result     any
	Success    bool
	Metrics    map[string]any
	Timestamp  time.Time
}
