package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/flipsync/fabric/types"
)

// PricingFunc computes the USD cost of a call given its model and token
// usage. Supplied by the caller; pricing tables are a configuration
// concern, not part of the client's contract.
type PricingFunc func(model string, tokensUsed int) float64

// ClientConfig configures a Client.
type ClientConfig struct {
	Provider Provider
	Perf     PerfSink // optional
	Cost     CostSink // optional
	Pricing  PricingFunc
	Logger   *zap.Logger
}

// Client is the LLM Client (C1): it calls exactly one Provider, enforces
// the request timeout end-to-end, and emits performance/cost side
// effects without letting their failures affect the caller.
type Client struct {
	provider Provider
	perf     PerfSink
	cost     CostSink
	pricing  PricingFunc
	logger   *zap.Logger
	tokens   *tokenEstimator
}

var tracer = otel.Tracer("github.com/flipsync/fabric/llm")

// NewClient constructs a Client bound to exactly one Provider.
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		provider: cfg.Provider,
		perf:     cfg.Perf,
		cost:     cfg.Cost,
		pricing:  cfg.Pricing,
		logger:   logger.With(zap.String("component", "llm.client"), zap.String("provider", cfg.Provider.Name())),
		tokens:   newTokenEstimator(),
	}
}

// GenerateOptions carries the caller-chosen cost-accounting context for
// one GenerateResponse call.
type GenerateOptions struct {
	Category   types.CostCategory
	AgentID    string
	WorkflowID string
}

// GenerateResponse performs exactly one call to the configured Provider.
// It always emits one PerfSample (success or failure) and, when token
// usage is available, at most one CostEntry. Neither side effect's
// failure propagates to the caller.
func (c *Client) GenerateResponse(ctx context.Context, req types.LLMRequest, opts GenerateOptions) (types.LLMResponse, error) {
	ctx, span := tracer.Start(ctx, "llm.GenerateResponse")
	defer span.End()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.provider.Generate(callCtx, req)
	elapsed := time.Since(start)

	sample := types.PerfSample{
		Timestamp:       start,
		Model:           req.Model,
		ResponseTimeSec: elapsed.Seconds(),
		PromptLen:       len(req.Prompt),
		Success:         err == nil,
	}

	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			err = types.NewError(types.ErrTimeout, "llm call exceeded timeout").WithComponent("llm").WithCause(err)
		}
		sample.ErrorKind = types.CodeOf(err)
		if sample.ErrorKind == "" {
			sample.ErrorKind = types.ErrTransport
		}
		c.recordPerf(sample)
		return types.LLMResponse{}, err
	}

	if resp.TokensUsed == 0 {
		resp.TokensUsed = c.tokens.Estimate(req.Model, resp.Content)
	}
	if resp.ResponseTimeSec == 0 {
		resp.ResponseTimeSec = elapsed.Seconds()
	}

	sample.ResponseLen = len(resp.Content)
	c.recordPerf(sample)
	c.recordCost(resp, opts)

	return resp, nil
}

func (c *Client) recordPerf(sample types.PerfSample) {
	if c.perf == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("perf sink panicked, dropping sample", zap.Any("recover", r))
		}
	}()
	c.perf.Record(sample)
}

func (c *Client) recordCost(resp types.LLMResponse, opts GenerateOptions) {
	if c.cost == nil || c.pricing == nil || resp.TokensUsed == 0 {
		return
	}
	category := opts.Category
	if category == "" {
		category = types.CategoryTextGeneration
	}
	entry := types.CostEntry{
		Timestamp:       time.Now(),
		Category:        category,
		Model:           resp.Model,
		Operation:       "generate",
		CostUSD:         c.pricing(resp.Model, resp.TokensUsed),
		AgentID:         opts.AgentID,
		WorkflowID:      opts.WorkflowID,
		TokensUsed:      resp.TokensUsed,
		ResponseTimeSec: resp.ResponseTimeSec,
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("cost sink panicked, dropping entry", zap.Any("recover", r))
		}
	}()
	c.cost.Record(entry)
}
