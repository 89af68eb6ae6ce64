package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/flipsync/fabric/llm"
	"github.com/flipsync/fabric/types"
)

// Generator is the subset of llm.Client this package wraps. Declared
// locally so cache does not need to import the concrete *llm.Client
// type (only its behavior).
type Generator interface {
	GenerateResponse(ctx context.Context, req types.LLMRequest, opts llm.GenerateOptions) (types.LLMResponse, error)
}

// CachedClient wraps a Generator with a ResponseCache: lookup first,
// call through on miss, store on success, and on error optionally
// return a stale cached entry flagged "cached-stale".
type CachedClient struct {
	cache  ResponseCache
	client Generator
	ttlSec int
	suffix string
	logger *zap.Logger
}

// NewCachedClient builds a CachedClient. ttlSec is the default TTL used
// for stores; suffix is mixed into the fingerprint (e.g. a prompt
// template version) to let callers invalidate without a real content
// change.
func NewCachedClient(cache ResponseCache, client Generator, ttlSec int, suffix string, logger *zap.Logger) *CachedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedClient{cache: cache, client: client, ttlSec: ttlSec, suffix: suffix, logger: logger.With(zap.String("component", "cache.wrap"))}
}

// GenerateResponse looks up a cached response first, calls through to
// the wrapped client on a miss, stores a successful response, and on
// an error falls back to a stale cached entry if one is present.
func (c *CachedClient) GenerateResponse(ctx context.Context, req types.LLMRequest, opts llm.GenerateOptions) (types.LLMResponse, error) {
	fp := Fingerprint(req.Prompt, req.SystemPrompt, req.Model, c.suffix)

	if entry, ok, err := c.cache.Lookup(ctx, fp); err == nil && ok {
		resp := entry.Response
		resp.Metadata = withFlag(resp.Metadata, "cached", true)
		return resp, nil
	} else if err != nil {
		c.logger.Warn("cache lookup failed, falling through to provider", zap.Error(err))
	}

	resp, err := c.client.GenerateResponse(ctx, req, opts)
	if err != nil {
		if stale, ok, staleErr := c.cache.LookupStale(ctx, fp); staleErr == nil && ok {
			staleResp := stale.Response
			staleResp.Metadata = withFlag(staleResp.Metadata, "cached-stale", true)
			return staleResp, nil
		}
		return types.LLMResponse{}, err
	}

	if storeErr := c.cache.Store(ctx, fp, resp, c.ttlSec); storeErr != nil {
		c.logger.Warn("cache store failed, swallowed", zap.Error(storeErr))
	}

	return resp, nil
}

func withFlag(meta map[string]any, key string, value any) map[string]any {
	if meta == nil {
		meta = make(map[string]any, 1)
	}
	meta[key] = value
	return meta
}
