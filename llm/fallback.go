package llm

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/flipsync/fabric/types"
)

// FallbackProvider wraps a primary Provider with a circuit breaker and,
// once the breaker trips, routes calls to a secondary Provider instead.
// The LLM Client itself never retries, so fallback lives at this layer,
// not in Client.GenerateResponse.
type FallbackProvider struct {
	primary   Provider
	secondary Provider
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

// NewFallbackProvider builds a FallbackProvider. secondary may be nil,
// in which case the breaker still trips but calls simply fail once open
// (equivalent to a primary-only Client with circuit protection).
func NewFallbackProvider(primary, secondary Provider, logger *zap.Logger) *FallbackProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := gobreaker.Settings{
		Name:        "llm-provider-" + primary.Name(),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("llm provider circuit breaker state change",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &FallbackProvider{
		primary:   primary,
		secondary: secondary,
		breaker:   gobreaker.NewCircuitBreaker(settings),
		logger:    logger.With(zap.String("component", "llm.fallback")),
	}
}

func (f *FallbackProvider) Name() string { return f.primary.Name() }

// Generate implements Provider. It attempts the primary through the
// breaker; when the breaker is open or the primary call fails with a
// TRANSPORT, RATE_LIMIT or TIMEOUT error, it falls back to secondary
// (when configured). Other error codes are returned as-is.
func (f *FallbackProvider) Generate(ctx context.Context, req types.LLMRequest) (types.LLMResponse, error) {
	result, err := f.breaker.Execute(func() (any, error) {
		return f.primary.Generate(ctx, req)
	})
	if err == nil {
		return result.(types.LLMResponse), nil
	}

	if f.secondary == nil {
		return types.LLMResponse{}, err
	}

	code := types.CodeOf(err)
	if err == gobreaker.ErrOpenState || code == types.ErrTransport || code == types.ErrRateLimit || code == types.ErrTimeout {
		f.logger.Warn("falling back to secondary provider", zap.Error(err), zap.String("secondary", f.secondary.Name()))
		resp, fbErr := f.secondary.Generate(ctx, req)
		if fbErr == nil {
			if resp.Metadata == nil {
				resp.Metadata = map[string]any{}
			}
			resp.Metadata["fallback_from"] = f.primary.Name()
		}
		return resp, fbErr
	}

	return types.LLMResponse{}, err
}
