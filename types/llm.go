package types

import "time"

// LLMRequest is the uniform request shape the LLM Client (C1) accepts,
// independent of provider.
type LLMRequest struct {
	Prompt       string
	SystemPrompt string
	Model        string
	Temperature  float32
	MaxTokens    int
	Timeout      time.Duration
}

// LLMResponse is the uniform response shape returned by C1.
type LLMResponse struct {
	Content         string
	Provider        string
	Model           string
	ResponseTimeSec float64
	TokensUsed      int
	Metadata        map[string]any
	Confidence      float64
}
