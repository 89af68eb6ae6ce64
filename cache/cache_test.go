package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipsync/fabric/llm"
	"github.com/flipsync/fabric/types"
)

func TestLocalCache_StoreThenLookupWithinTTL(t *testing.T) {
	c := NewLocalCache(10)
	ctx := context.Background()
	resp := types.LLMResponse{Content: "hi", Model: "gpt-4o-mini"}

	require.NoError(t, c.Store(ctx, "fp1", resp, 60))

	entry, ok, err := c.Lookup(ctx, "fp1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hi", entry.Response.Content)
}

func TestLocalCache_ExpiredEntryNotReturnedByLookup(t *testing.T) {
	c := NewLocalCache(10)
	ctx := context.Background()
	resp := types.LLMResponse{Content: "hi"}

	require.NoError(t, c.Store(ctx, "fp1", resp, 0))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := c.Lookup(ctx, "fp1")
	require.NoError(t, err)
	assert.False(t, ok)

	stale, ok, err := c.LookupStale(ctx, "fp1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hi", stale.Response.Content)
}

func TestLocalCache_LRUEviction(t *testing.T) {
	c := NewLocalCache(2)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "a", types.LLMResponse{Content: "a"}, 60))
	require.NoError(t, c.Store(ctx, "b", types.LLMResponse{Content: "b"}, 60))
	require.NoError(t, c.Store(ctx, "c", types.LLMResponse{Content: "c"}, 60))

	_, ok, _ := c.Lookup(ctx, "a")
	assert.False(t, ok, "oldest entry should have been evicted")

	_, ok, _ = c.Lookup(ctx, "c")
	assert.True(t, ok)
}

func TestFingerprint_StableAndSensitiveToInputs(t *testing.T) {
	fp1 := Fingerprint("prompt", "sys", "gpt-4o-mini", "")
	fp2 := Fingerprint("prompt", "sys", "gpt-4o-mini", "")
	assert.Equal(t, fp1, fp2)

	fp3 := Fingerprint("prompt", "sys", "gpt-4o", "")
	assert.NotEqual(t, fp1, fp3)
}

type fakeGenerator struct {
	resp  types.LLMResponse
	err   error
	calls int
}

func (f *fakeGenerator) GenerateResponse(ctx context.Context, req types.LLMRequest, opts llm.GenerateOptions) (types.LLMResponse, error) {
	f.calls++
	if f.err != nil {
		return types.LLMResponse{}, f.err
	}
	return f.resp, nil
}

func TestCachedClient_MissThenHit(t *testing.T) {
	local := NewLocalCache(10)
	gen := &fakeGenerator{resp: types.LLMResponse{Content: "result", Model: "gpt-4o-mini"}}
	cc := NewCachedClient(local, gen, 60, "", nil)

	req := types.LLMRequest{Prompt: "p", Model: "gpt-4o-mini"}
	resp1, err := cc.GenerateResponse(context.Background(), req, llm.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "result", resp1.Content)
	assert.Equal(t, 1, gen.calls)

	resp2, err := cc.GenerateResponse(context.Background(), req, llm.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "result", resp2.Content)
	assert.Equal(t, true, resp2.Metadata["cached"])
	assert.Equal(t, 1, gen.calls, "second call should be served from cache")
}

func TestCachedClient_StaleOnError(t *testing.T) {
	local := NewLocalCache(10)
	ctx := context.Background()
	require.NoError(t, local.Store(ctx, Fingerprint("p", "", "m", ""), types.LLMResponse{Content: "old"}, 0))
	time.Sleep(5 * time.Millisecond)

	gen := &fakeGenerator{err: types.NewError(types.ErrTransport, "down")}
	cc := NewCachedClient(local, gen, 60, "", nil)

	resp, err := cc.GenerateResponse(ctx, types.LLMRequest{Prompt: "p", Model: "m"}, llm.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "old", resp.Content)
	assert.Equal(t, true, resp.Metadata["cached-stale"])
}
