// Package orchestrator is the Orchestrator (C9): agent registry,
// workflow lifecycle, event fan-out, and pending-decision tracking.
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flipsync/fabric/types"
)

// Agent is the participant interface the orchestrator dispatches
// workflow events to. Concrete agents (conversation.Agent or a
// domain-specific worker) adapt to this shape.
type Agent interface {
	ID() string
	ProcessEvent(ctx context.Context, event types.WorkflowEvent) error
}

// DecisionEngine scores one decision point for processContext. Supplied
// by the caller; the orchestrator has no built-in policy.
type DecisionEngine interface {
	Decide(ctx context.Context, decisionContext map[string]any, availableActions []string, constraints map[string]any) (action string, confidence float64, err error)
}

// LearningHook receives completed executions for offline learning.
// Optional; nil disables the call.
type LearningHook interface {
	Learn(result types.ExecutionResult)
}

// Strategy groups decision requests sharing the same tag set. A default
// strategy is created automatically the first time processContext sees
// an unmatched tag set.
type Strategy struct {
	ID   string
	Tags []string
}

// Decision is the tracked-pending record returned by processContext.
type Decision struct {
	DecisionID string
	StrategyID string
	Action     string
	Confidence float64
	Context    map[string]any
	CreatedAt  time.Time
}

// Metrics is a point-in-time snapshot of orchestrator state.
type Metrics struct {
	RegisteredAgents int
	Workflows        map[types.WorkflowState]int
	PendingDecisions int
	Strategies       int
}

// Orchestrator implements C9. The zero value is not usable; construct
// with New.
type Orchestrator struct {
	mu         sync.RWMutex
	agents     map[string]Agent
	workflows  map[string]*types.Workflow
	strategies map[string]*Strategy
	pending    map[string]Decision

	decisionEngine DecisionEngine
	learningHook   LearningHook
	logger         *zap.Logger
}

// New builds an Orchestrator. decisionEngine and learningHook may be
// nil; processContext/recordExecution degrade gracefully without them.
func New(decisionEngine DecisionEngine, learningHook LearningHook, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		agents:         make(map[string]Agent),
		workflows:      make(map[string]*types.Workflow),
		strategies:     make(map[string]*Strategy),
		pending:        make(map[string]Decision),
		decisionEngine: decisionEngine,
		learningHook:   learningHook,
		logger:         logger.With(zap.String("component", "orchestrator")),
	}
}

// RegisterAgent adds agent under agentID. Fails with DUPLICATE if the
// id is already registered.
func (o *Orchestrator) RegisterAgent(agentID string, agent Agent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.agents[agentID]; exists {
		return types.NewError(types.ErrDuplicate, "agent already registered: "+agentID).WithComponent("orchestrator")
	}
	o.agents[agentID] = agent
	return nil
}

// UnregisterAgent removes agentID from the registry and from every
// workflow's assigned set. Reports whether the agent existed.
func (o *Orchestrator) UnregisterAgent(agentID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.agents[agentID]; !exists {
		return false
	}
	delete(o.agents, agentID)
	for _, wf := range o.workflows {
		delete(wf.AssignedAgents, agentID)
	}
	return true
}

// StartWorkflow creates a workflow in state PENDING, assigns agents per
// config's boolean role flags, transitions to RUNNING once assignment
// completes, and returns its id. If workflowID is empty, one is
// generated. Fails with DUPLICATE if workflowID collides.
func (o *Orchestrator) StartWorkflow(config map[string]any, workflowID string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if workflowID == "" {
		workflowID = uuid.NewString()
	}
	if _, exists := o.workflows[workflowID]; exists {
		return "", types.NewError(types.ErrDuplicate, "workflow already exists: "+workflowID).WithComponent("orchestrator")
	}

	now := time.Now()
	wf := &types.Workflow{
		WorkflowID:     workflowID,
		State:          types.WorkflowPending,
		Config:         config,
		StartedAt:      now,
		LastUpdatedAt:  now,
		AssignedAgents: make(map[string]bool),
	}
	o.assignAgentsLocked(wf, config)
	wf.State = types.WorkflowRunning
	wf.LastUpdatedAt = time.Now()
	o.workflows[workflowID] = wf

	return workflowID, nil
}

// assignAgentsLocked inspects config's boolean flags of the form
// "<agentTypePrefix>": true and, for each, assigns one registered agent
// whose id begins with that prefix; when several match, which one is
// chosen is not defined (map iteration order). A flag with no matching agent
// is skipped with a warning; the workflow still starts.
func (o *Orchestrator) assignAgentsLocked(wf *types.Workflow, config map[string]any) {
	for flag, raw := range config {
		enabled, ok := raw.(bool)
		if !ok || !enabled {
			continue
		}
		agentID, found := o.firstAgentWithPrefixLocked(flag)
		if !found {
			o.logger.Warn("no agent found for workflow role flag, skipping", zap.String("flag", flag), zap.String("workflow_id", wf.WorkflowID))
			continue
		}
		wf.AssignedAgents[agentID] = true
	}
}

func (o *Orchestrator) firstAgentWithPrefixLocked(prefix string) (string, bool) {
	for agentID := range o.agents {
		if strings.HasPrefix(agentID, prefix) {
			return agentID, true
		}
	}
	return "", false
}

// UpdateWorkflowState applies the state transition if declared legal.
// Fails with NOT_FOUND if workflowID is unknown; returns false (no
// error) if the transition itself is illegal.
func (o *Orchestrator) UpdateWorkflowState(workflowID string, newState types.WorkflowState) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	wf, ok := o.workflows[workflowID]
	if !ok {
		return false, types.NewError(types.ErrNotFound, "workflow not found: "+workflowID).WithComponent("orchestrator")
	}
	if !types.CanTransition(wf.State, newState) {
		return false, nil
	}
	wf.State = newState
	wf.LastUpdatedAt = time.Now()
	if newState.Terminal() {
		completedAt := time.Now()
		wf.CompletedAt = &completedAt
	}
	return true, nil
}

// CancelWorkflow transitions workflowID to CANCELLED if legal.
func (o *Orchestrator) CancelWorkflow(workflowID string) (bool, error) {
	return o.UpdateWorkflowState(workflowID, types.WorkflowCancelled)
}

// CleanupWorkflow removes workflowID's record. Requires a terminal
// state; fails with NOT_FOUND if unknown, VALIDATION_ERROR if not yet
// terminal.
func (o *Orchestrator) CleanupWorkflow(workflowID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	wf, ok := o.workflows[workflowID]
	if !ok {
		return types.NewError(types.ErrNotFound, "workflow not found: "+workflowID).WithComponent("orchestrator")
	}
	if !wf.State.Terminal() {
		return types.NewError(types.ErrValidation, "workflow is not in a terminal state: "+workflowID).WithComponent("orchestrator")
	}
	delete(o.workflows, workflowID)
	return nil
}

// ProcessEvent requires workflowID to be RUNNING. It appends event to
// the workflow's log and dispatches it to every assigned agent
// concurrently; cross-agent order is unspecified. The first agent error
// is returned after all dispatches complete, but does not by itself
// transition the workflow state.
func (o *Orchestrator) ProcessEvent(ctx context.Context, workflowID string, event types.WorkflowEvent) error {
	o.mu.Lock()
	wf, ok := o.workflows[workflowID]
	if !ok {
		o.mu.Unlock()
		return types.NewError(types.ErrNotFound, "workflow not found: "+workflowID).WithComponent("orchestrator")
	}
	if wf.State != types.WorkflowRunning {
		o.mu.Unlock()
		return types.NewError(types.ErrValidation, "workflow is not running: "+workflowID).WithComponent("orchestrator")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	wf.Events = append(wf.Events, event)

	assigned := make([]Agent, 0, len(wf.AssignedAgents))
	for agentID := range wf.AssignedAgents {
		if agent, exists := o.agents[agentID]; exists {
			assigned = append(assigned, agent)
		}
	}
	o.mu.Unlock()

	group, groupCtx := errgroup.WithContext(ctx)
	for _, agent := range assigned {
		agent := agent
		group.Go(func() error {
			return agent.ProcessEvent(groupCtx, event)
		})
	}
	return group.Wait()
}

// ProcessContext selects (or creates a default) strategy for tags,
// invokes the DecisionEngine, and tracks the resulting decision as
// pending until RecordExecution resolves it.
func (o *Orchestrator) ProcessContext(ctx context.Context, decisionContext map[string]any, availableActions []string, constraints map[string]any, tags []string) (Decision, error) {
	if o.decisionEngine == nil {
		return Decision{}, types.NewError(types.ErrValidation, "no decision engine configured").WithComponent("orchestrator")
	}

	strategy := o.selectOrCreateStrategy(tags)

	action, confidence, err := o.decisionEngine.Decide(ctx, decisionContext, availableActions, constraints)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{
		DecisionID: uuid.NewString(),
		StrategyID: strategy.ID,
		Action:     action,
		Confidence: confidence,
		Context:    decisionContext,
		CreatedAt:  time.Now(),
	}

	o.mu.Lock()
	o.pending[decision.DecisionID] = decision
	o.mu.Unlock()

	return decision, nil
}

func (o *Orchestrator) selectOrCreateStrategy(tags []string) *Strategy {
	key := strings.Join(tags, ",")

	o.mu.Lock()
	defer o.mu.Unlock()
	if strategy, ok := o.strategies[key]; ok {
		return strategy
	}
	strategy := &Strategy{ID: uuid.NewString(), Tags: tags}
	o.strategies[key] = strategy
	return strategy
}

// RecordExecution removes result's decision from the pending set and
// forwards it to the learning hook, if configured.
func (o *Orchestrator) RecordExecution(result types.ExecutionResult) {
	o.mu.Lock()
	delete(o.pending, result.DecisionID)
	o.mu.Unlock()

	if o.learningHook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("learning hook panicked, dropping execution record", zap.Any("recover", r))
		}
	}()
	o.learningHook.Learn(result)
}

// GetMetrics returns a snapshot of orchestrator state.
func (o *Orchestrator) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	byState := make(map[types.WorkflowState]int)
	for _, wf := range o.workflows {
		byState[wf.State]++
	}

	return Metrics{
		RegisteredAgents: len(o.agents),
		Workflows:        byState,
		PendingDecisions: len(o.pending),
		Strategies:       len(o.strategies),
	}
}
