// Package local implements llm.Provider against an HTTP-accessible
// local model server. Permitted only in non-production configurations;
// the caller enforces that gate, not this package.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flipsync/fabric/types"
)

// Config configures the local provider.
type Config struct {
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
}

// Provider implements llm.Provider against a local HTTP model server
// exposing an OpenAI-compatible /v1/chat/completions endpoint.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "llm.provider.local")),
	}
}

func (p *Provider) Name() string { return "local" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, req types.LLMRequest) (types.LLMResponse, error) {
	if p.cfg.BaseURL == "" {
		return types.LLMResponse{}, types.NewError(types.ErrAuth, "local: no LOCAL_LLM_BASE_URL/HOST configured").WithComponent("local")
	}

	model := req.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}

	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return types.LLMResponse{}, types.NewError(types.ErrProtocol, "local: failed to marshal request").WithComponent("local").WithCause(err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return types.LLMResponse{}, types.NewError(types.ErrTransport, "local: failed to build request").WithComponent("local").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return types.LLMResponse{}, types.NewError(types.ErrTimeout, "local: request timed out").WithComponent("local").WithCause(err)
		}
		return types.LLMResponse{}, types.NewError(types.ErrTransport, "local: request failed").WithComponent("local").WithRetryable(true).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return types.LLMResponse{}, types.NewError(types.ErrTransport, fmt.Sprintf("local: upstream error %d: %s", resp.StatusCode, string(msg))).WithComponent("local").WithRetryable(resp.StatusCode >= 500)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return types.LLMResponse{}, types.NewError(types.ErrProtocol, "local: malformed response body").WithComponent("local").WithCause(err)
	}
	if len(parsed.Choices) == 0 {
		return types.LLMResponse{}, types.NewError(types.ErrProtocol, "local: response had no choices").WithComponent("local")
	}

	return types.LLMResponse{
		Content:    parsed.Choices[0].Message.Content,
		Provider:   p.Name(),
		Model:      parsed.Model,
		TokensUsed: parsed.Usage.TotalTokens,
		Confidence: 0.8,
	}, nil
}
