// Package conversation is the Conversational Agent (C7): one
// specialized agent instance that turns a user message into an
// AgentResponse via the LLM Client, with per-conversation context,
// role-specific post-processing, and graceful shutdown.
package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flipsync/fabric/external"
	"github.com/flipsync/fabric/llm"
	"github.com/flipsync/fabric/types"
)

// lifecycleState is the per-instance state machine: IDLE -> PROCESSING
// -> (IDLE | ERROR), plus terminal OFFLINE after Shutdown.
type lifecycleState string

const (
	stateIdle       lifecycleState = "IDLE"
	stateProcessing lifecycleState = "PROCESSING"
	stateError      lifecycleState = "ERROR"
	stateOffline    lifecycleState = "OFFLINE"
)

// DefaultDrainWindow bounds how long Shutdown waits for in-flight Handle
// calls to finish before returning anyway.
const DefaultDrainWindow = 30 * time.Second

const maxContextMessages = 10

var uncertaintyMarkers = []string{"not sure", "might be", "possibly", "perhaps"}
var followupCues = []string{"would you like", "do you want", "shall i", "more information"}

// Generator is the subset of llm.Client (or a cache.CachedClient
// wrapping one) this agent calls.
type Generator interface {
	GenerateResponse(ctx context.Context, req types.LLMRequest, opts llm.GenerateOptions) (types.LLMResponse, error)
}

// PromptCatalog is the subset of agentcatalog.Catalog this agent needs.
type PromptCatalog interface {
	SystemPromptFor(role types.AgentRole) string
}

// PostProcessFunc adapts raw LLM content for a specific role (e.g.
// appending standard advisories). The default is the identity function.
type PostProcessFunc func(content string) string

// Agent implements C7 for exactly one AgentRole.
type Agent struct {
	AgentID string
	Role    types.AgentRole

	client      Generator
	catalog     PromptCatalog
	repo        external.AgentRepository
	postProcess PostProcessFunc
	logger      *zap.Logger
	model       string
	drainWindow time.Duration

	mu       sync.Mutex
	state    lifecycleState
	inFlight sync.WaitGroup

	contextsMu sync.Mutex
	contexts   map[string]*types.ConversationContext
}

// Config configures a new Agent.
type Config struct {
	AgentID     string
	Role        types.AgentRole
	Client      Generator
	Catalog     PromptCatalog
	Repo        external.AgentRepository // optional
	PostProcess PostProcessFunc          // optional, defaults to identity
	Model       string
	DrainWindow time.Duration // optional, defaults to DefaultDrainWindow
	Logger      *zap.Logger
}

// NewAgent constructs an Agent in state IDLE.
func NewAgent(cfg Config) *Agent {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	postProcess := cfg.PostProcess
	if postProcess == nil {
		postProcess = func(content string) string { return content }
	}
	drain := cfg.DrainWindow
	if drain <= 0 {
		drain = DefaultDrainWindow
	}
	return &Agent{
		AgentID:     cfg.AgentID,
		Role:        cfg.Role,
		client:      cfg.Client,
		catalog:     cfg.Catalog,
		repo:        cfg.Repo,
		postProcess: postProcess,
		model:       cfg.Model,
		drainWindow: drain,
		logger:      logger.With(zap.String("component", "conversation.agent"), zap.String("agent_id", cfg.AgentID), zap.String("role", string(cfg.Role))),
		state:       stateIdle,
		contexts:    make(map[string]*types.ConversationContext),
	}
}

// State reports the agent's current lifecycle state.
func (a *Agent) State() lifecycleState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// contextFor returns (creating if absent) the ConversationContext for
// conversationID.
func (a *Agent) contextFor(conversationID, userID string) *types.ConversationContext {
	a.contextsMu.Lock()
	defer a.contextsMu.Unlock()
	ctx, ok := a.contexts[conversationID]
	if !ok {
		ctx = types.NewConversationContext(conversationID, userID)
		a.contexts[conversationID] = ctx
	}
	return ctx
}

// Handle turns one user message into an AgentResponse. It implements
// the per-message algorithm: append to context, compose the system prompt,
// build a bounded conversation window, call the LLM, post-process,
// score confidence, detect a followup cue, and best-effort log the
// interaction.
func (a *Agent) Handle(ctx context.Context, message, userID, conversationID string, history []types.ConversationMessage) (types.AgentResponse, error) {
	a.mu.Lock()
	if a.state == stateOffline {
		a.mu.Unlock()
		return types.AgentResponse{}, types.NewError(types.ErrShutdown, "agent is offline").WithComponent("conversation")
	}
	a.state = stateProcessing
	a.inFlight.Add(1)
	a.mu.Unlock()
	defer a.inFlight.Done()

	start := time.Now()
	resp, err := a.handle(ctx, message, userID, conversationID, history)

	a.mu.Lock()
	if err != nil {
		a.state = stateError
	} else {
		a.state = stateIdle
	}
	a.mu.Unlock()

	if err == nil {
		resp.ResponseTimeSec = time.Since(start).Seconds()
	}
	return resp, err
}

func (a *Agent) handle(ctx context.Context, message, userID, conversationID string, history []types.ConversationMessage) (types.AgentResponse, error) {
	convCtx := a.contextFor(conversationID, userID)
	convCtx.Append(types.ConversationMessage{Role: types.MessageRoleUser, Content: message, Timestamp: time.Now()})

	systemPrompt := a.catalog.SystemPromptFor(a.Role)

	window := history
	if window == nil {
		window = convCtx.Tail(maxContextMessages)
	} else if len(window) > maxContextMessages {
		window = window[len(window)-maxContextMessages:]
	}
	prompt := renderPrompt(window, message)

	llmResp, err := a.client.GenerateResponse(ctx, types.LLMRequest{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Model:        a.model,
	}, llm.GenerateOptions{Category: types.CategoryConversation, AgentID: a.AgentID, WorkflowID: conversationID})
	if err != nil {
		a.logger.Warn("llm call failed", zap.Error(err))
		return types.AgentResponse{}, err
	}

	content := a.postProcess(llmResp.Content)
	convCtx.Append(types.ConversationMessage{Role: types.MessageRoleAssistant, Content: content, Timestamp: time.Now()})

	confidence := scoreConfidence(content)
	requiresFollowup := hasFollowupCue(content)

	a.logInteraction(ctx, message, content, confidence, requiresFollowup)

	return types.AgentResponse{
		Content:          content,
		AgentType:        a.Role,
		Confidence:       confidence,
		Metadata:         llmResp.Metadata,
		RequiresFollowup: requiresFollowup,
	}, nil
}

func (a *Agent) logInteraction(ctx context.Context, message, response string, confidence float64, requiresFollowup bool) {
	if a.repo == nil {
		return
	}
	params := map[string]any{"message": message, "response": response, "requires_followup": requiresFollowup}
	if err := a.repo.LogAgentDecision(ctx, nil, a.AgentID, string(a.Role), "conversation_turn", params, confidence, "", false); err != nil {
		a.logger.Warn("failed to log agent interaction, swallowed", zap.Error(err))
	}
}

// Shutdown marks the agent OFFLINE (rejecting new Handle calls) and
// waits up to the configured drain window for in-flight calls to
// finish, then returns regardless.
func (a *Agent) Shutdown(ctx context.Context) {
	a.mu.Lock()
	a.state = stateOffline
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(a.drainWindow):
		a.logger.Warn("shutdown drain window elapsed with calls still in flight")
	case <-ctx.Done():
	}
}

func renderPrompt(window []types.ConversationMessage, latest string) string {
	var b strings.Builder
	for _, msg := range window {
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString("user: ")
	b.WriteString(latest)
	return b.String()
}

func scoreConfidence(content string) float64 {
	score := 0.8
	switch {
	case len(content) < 20:
		score -= 0.2
	case len(content) > 500:
		score += 0.1
	}
	lower := strings.ToLower(content)
	for _, marker := range uncertaintyMarkers {
		if strings.Contains(lower, marker) {
			score -= 0.2
			break
		}
	}
	return types.Clamp(score, 0.1, 1.0)
}

func hasFollowupCue(content string) bool {
	lower := strings.ToLower(content)
	for _, cue := range followupCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}
