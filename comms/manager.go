// Package comms is the Communication Manager (C8): the single entry
// point that classifies a user message, delegates to the right
// conversational agent, and never lets a downstream failure escape as
// an error — callers always get an AgentResponse.
package comms

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/flipsync/fabric/conversation"
	"github.com/flipsync/fabric/intent"
	"github.com/flipsync/fabric/types"
)

// apologyContent is returned whenever routing or handling fails for any
// reason; the caller is never shown the underlying error.
const apologyContent = "I apologize, but I'm having trouble processing that request right now. Please try again in a moment."

// outboxCapacity bounds the inter-agent message queue SendAgentMessage
// feeds; the orchestrator drains it for fan-out.
const outboxCapacity = 256

// AgentFactory lazily constructs the conversational agent for role on
// first use, so Manager construction never pays for client setup (C1)
// for roles a process never actually routes to.
type AgentFactory func(role types.AgentRole) *conversation.Agent

// AgentMessage is one inter-agent message queued for orchestrator
// fan-out via SendAgentMessage.
type AgentMessage struct {
	FromRole types.AgentRole
	ToRole   types.AgentRole
	Content  string
	Metadata map[string]any
}

// Manager implements C8.
type Manager struct {
	mu      sync.Mutex
	agents  map[types.AgentRole]*conversation.Agent
	factory AgentFactory
	outbox  chan AgentMessage
	logger  *zap.Logger
}

// NewManager builds a Manager. Agents are constructed lazily via
// factory on first routeUserMessage to that role.
func NewManager(factory AgentFactory, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		agents:  make(map[types.AgentRole]*conversation.Agent),
		factory: factory,
		outbox:  make(chan AgentMessage, outboxCapacity),
		logger:  logger.With(zap.String("component", "comms.manager")),
	}
}

// agentFor returns (lazily constructing) the agent for role.
func (m *Manager) agentFor(role types.AgentRole) *conversation.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if agent, ok := m.agents[role]; ok {
		return agent
	}
	agent := m.factory(role)
	m.agents[role] = agent
	return agent
}

// RouteUserMessage classifies message, delegates to the target agent,
// and never returns an error: any failure along the way yields the
// apology fallback response with AgentType=ERROR.
func (m *Manager) RouteUserMessage(ctx context.Context, message, userID, conversationID string, history []types.ConversationMessage, classifierContext map[string]any) types.AgentResponse {
	result := intent.Classify(message, classifierContext)

	agent := m.agentFor(result.TargetRole)
	if agent == nil {
		m.logger.Warn("no agent available for target role, falling back to liaison", zap.String("role", string(result.TargetRole)))
		agent = m.agentFor(types.RoleLiaison)
	}

	resp, err := agent.Handle(ctx, message, userID, conversationID, history)
	if err != nil {
		m.logger.Warn("agent handling failed, returning apology fallback", zap.Error(err), zap.String("role", string(result.TargetRole)))
		return types.AgentResponse{
			Content:    apologyContent,
			AgentType:  types.RoleError,
			Confidence: 0.0,
		}
	}
	return resp
}

// SendAgentMessage enqueues msg for the orchestrator's event fan-out.
// Returns false if the outbox is full; the caller decides whether that
// is retried or dropped.
func (m *Manager) SendAgentMessage(msg AgentMessage) bool {
	select {
	case m.outbox <- msg:
		return true
	default:
		m.logger.Warn("outbox full, dropping agent message", zap.String("to", string(msg.ToRole)))
		return false
	}
}

// Outbox exposes the queued message channel for the orchestrator to
// drain. Read-only from the consumer's perspective.
func (m *Manager) Outbox() <-chan AgentMessage {
	return m.outbox
}
