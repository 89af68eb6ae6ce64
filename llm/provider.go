// Package llm is the LLM Client (C1): a uniform request/response
// surface over exactly one configured provider, with a deterministic
// error taxonomy and no internal retries.
package llm

import (
	"context"

	"github.com/flipsync/fabric/types"
)

// Provider is the interface a concrete LLM backend implements. Exactly
// one Provider is addressed per Client, chosen at construction time.
type Provider interface {
	// Name returns the provider's identifier (e.g. "openai", "local").
	Name() string

	// Generate performs one completion call. It must enforce req.Timeout
	// end-to-end and return a *types.Error with the appropriate Code on
	// failure (TIMEOUT, TRANSPORT, RATE_LIMIT, AUTH, PROTOCOL).
	Generate(ctx context.Context, req types.LLMRequest) (types.LLMResponse, error)
}

// PerfSink receives exactly one PerfSample per Client.GenerateResponse call,
// success or failure. Implemented by perf.Monitor; declared here to
// avoid an import cycle between llm and perf.
type PerfSink interface {
	Record(sample types.PerfSample)
}

// CostSink receives a CostEntry when usage information is available.
// Implemented by cost.Tracker.
type CostSink interface {
	Record(entry types.CostEntry)
}
