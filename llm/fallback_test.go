package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipsync/fabric/types"
)

func TestFallbackProvider_FallsBackOnTransportError(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: types.NewError(types.ErrTransport, "connection reset").WithRetryable(true)}
	secondary := &fakeProvider{name: "local", resp: types.LLMResponse{Content: "from local", Model: "local-model"}}

	fp := NewFallbackProvider(primary, secondary, nil)
	resp, err := fp.Generate(context.Background(), types.LLMRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "from local", resp.Content)
	assert.Equal(t, "openai", resp.Metadata["fallback_from"])
}

func TestFallbackProvider_NoFallbackOnAuthError(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: types.NewError(types.ErrAuth, "bad key")}
	secondary := &fakeProvider{name: "local", resp: types.LLMResponse{Content: "from local"}}

	fp := NewFallbackProvider(primary, secondary, nil)
	_, err := fp.Generate(context.Background(), types.LLMRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, types.ErrAuth, types.CodeOf(err))
}

func TestFallbackProvider_PrimarySuccessNoFallback(t *testing.T) {
	primary := &fakeProvider{name: "openai", resp: types.LLMResponse{Content: "from primary"}}
	secondary := &fakeProvider{name: "local", resp: types.LLMResponse{Content: "from local"}}

	fp := NewFallbackProvider(primary, secondary, nil)
	resp, err := fp.Generate(context.Background(), types.LLMRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "from primary", resp.Content)
}
