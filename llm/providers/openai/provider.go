// Package openai implements llm.Provider against the OpenAI Chat
// Completions API over a plain HTTP/JSON transport.
package openai

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

// Config configures the OpenAI provider.
type Config struct {
	APIKey       string
	ProjectID    string
	BaseURL      string // defaults to https://api.openai.com
	DefaultModel string
	Timeout      time.Duration
}

// Provider implements llm.Provider for OpenAI.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New constructs an OpenAI provider. APIKey must be non-empty; the
// caller (config.Load) is responsible for enforcing that in production.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
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
		logger: logger.With(zap.String("component", "llm.provider.openai")),
	}
}

func (p *Provider) Name() string { return "openai" }

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

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, req types.LLMRequest) (types.LLMResponse, error) {
	if p.cfg.APIKey == "" {
		return types.LLMResponse{}, types.NewError(types.ErrAuth, "openai: missing API key").WithComponent("openai")
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

	body := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return types.LLMResponse{}, types.NewError(types.ErrProtocol, "openai: failed to marshal request").WithComponent("openai").WithCause(err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return types.LLMResponse{}, types.NewError(types.ErrTransport, "openai: failed to build request").WithComponent("openai").WithCause(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.ProjectID != "" {
		httpReq.Header.Set("OpenAI-Project", p.cfg.ProjectID)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return types.LLMResponse{}, types.NewError(types.ErrTimeout, "openai: request timed out").WithComponent("openai").WithCause(err)
		}
		return types.LLMResponse{}, types.NewError(types.ErrTransport, "openai: request failed").WithComponent("openai").WithRetryable(true).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return types.LLMResponse{}, types.NewError(types.ErrAuth, fmt.Sprintf("openai: auth failed (status %d)", resp.StatusCode)).WithComponent("openai")
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return types.LLMResponse{}, types.NewError(types.ErrRateLimit, "openai: rate limited").WithComponent("openai").WithRetryable(true)
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return types.LLMResponse{}, types.NewError(types.ErrTransport, fmt.Sprintf("openai: upstream error %d: %s", resp.StatusCode, string(msg))).WithComponent("openai").WithRetryable(resp.StatusCode >= 500)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return types.LLMResponse{}, types.NewError(types.ErrProtocol, "openai: malformed response body").WithComponent("openai").WithCause(err)
	}
	if len(parsed.Choices) == 0 {
		return types.LLMResponse{}, types.NewError(types.ErrProtocol, "openai: response had no choices").WithComponent("openai")
	}

	return types.LLMResponse{
		Content:    parsed.Choices[0].Message.Content,
		Provider:   p.Name(),
		Model:      parsed.Model,
		TokensUsed: parsed.Usage.TotalTokens,
		Metadata: map[string]any{
			"finish_reason": parsed.Choices[0].FinishReason,
			"response_id":   parsed.ID,
		},
		Confidence: 1.0,
	}, nil
}
