package llm

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokenEstimator estimates token counts for providers that don't report
// usage. It prefers tiktoken's BPE encoding and falls back to a simple
// word count of the content when a model's encoding can't be resolved.
type tokenEstimator struct {
	mu    sync.Mutex
	cache map[string]*tiktoken.Tiktoken
}

func newTokenEstimator() *tokenEstimator {
	return &tokenEstimator{cache: make(map[string]*tiktoken.Tiktoken)}
}

func (e *tokenEstimator) Estimate(model, text string) int {
	if text == "" {
		return 0
	}
	enc := e.encodingFor(model)
	if enc == nil {
		return wordCount(text)
	}
	tokens := enc.Encode(text, nil, nil)
	return len(tokens)
}

func (e *tokenEstimator) encodingFor(model string) *tiktoken.Tiktoken {
	e.mu.Lock()
	defer e.mu.Unlock()
	if enc, ok := e.cache[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		e.cache[model] = nil
		return nil
	}
	e.cache[model] = enc
	return enc
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
