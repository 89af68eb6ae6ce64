package creation

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"

	"github.com/flipsync/fabric/external"
)

// DefaultResearchRatePerHost is the minimum interval enforced between
// two requests to the same host by RateLimitedResearch: one request per
// second.
const DefaultResearchRatePerHost = rate.Limit(1)

// RateLimitedResearch wraps an external.ResearchService with a
// per-host token bucket so concurrent creation workflows never exceed
// one outbound request per second to the same research source.
type RateLimitedResearch struct {
	inner       external.ResearchService
	ratePerHost rate.Limit

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimitedResearch wraps inner. ratePerHost <= 0 defaults to
// DefaultResearchRatePerHost.
func NewRateLimitedResearch(inner external.ResearchService, ratePerHost rate.Limit) *RateLimitedResearch {
	if ratePerHost <= 0 {
		ratePerHost = DefaultResearchRatePerHost
	}
	return &RateLimitedResearch{
		inner:       inner,
		ratePerHost: ratePerHost,
		limiters:    make(map[string]*rate.Limiter),
	}
}

// Research waits for the marketplace's host bucket before delegating to
// the wrapped service.
func (r *RateLimitedResearch) Research(ctx context.Context, analysis external.VisionAnalysis, marketplace string) (*external.ResearchResult, error) {
	limiter := r.limiterFor(hostKey(marketplace))
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Research(ctx, analysis, marketplace)
}

func (r *RateLimitedResearch) limiterFor(host string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	limiter, ok := r.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(r.ratePerHost, 1)
		r.limiters[host] = limiter
	}
	return limiter
}

// hostKey normalizes marketplace into the bucket key. marketplace is
// usually a bare name ("ebay"); if it parses as a URL, the host is used
// so two marketplace clients hitting the same domain share one bucket.
func hostKey(marketplace string) string {
	if u, err := url.Parse(marketplace); err == nil && u.Host != "" {
		return u.Host
	}
	return marketplace
}
