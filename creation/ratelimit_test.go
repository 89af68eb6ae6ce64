package creation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/time/rate"

	"github.com/flipsync/fabric/external"
)

func TestRateLimitedResearch_ThrottlesSameHost(t *testing.T) {
	calls := 0
	inner := researchFunc(func(ctx context.Context, analysis external.VisionAnalysis, marketplace string) (*external.ResearchResult, error) {
		calls++
		return &external.ResearchResult{ResearchConfidence: 0.8}, nil
	})
	limited := NewRateLimitedResearch(inner, rate.Limit(100)) // fast for the test

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := limited.Research(context.Background(), external.VisionAnalysis{}, "ebay")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
	// Burst of 1 at 100/s: the 2nd and 3rd calls each wait ~10ms.
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRateLimitedResearch_SeparateHostsDoNotShareBucket(t *testing.T) {
	inner := researchFunc(func(ctx context.Context, analysis external.VisionAnalysis, marketplace string) (*external.ResearchResult, error) {
		return &external.ResearchResult{}, nil
	})
	limited := NewRateLimitedResearch(inner, rate.Limit(1))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err1 := limited.Research(ctx, external.VisionAnalysis{}, "ebay")
	_, err2 := limited.Research(ctx, external.VisionAnalysis{}, "amazon")
	require.NoError(t, err1)
	require.NoError(t, err2)
}

type researchFunc func(ctx context.Context, analysis external.VisionAnalysis, marketplace string) (*external.ResearchResult, error)

func (f researchFunc) Research(ctx context.Context, analysis external.VisionAnalysis, marketplace string) (*external.ResearchResult, error) {
	return f(ctx, analysis, marketplace)
}
