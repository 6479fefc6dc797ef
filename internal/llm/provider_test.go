package llm

import (
	"context"
	"errors"
	"testing"

	"learnhub_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_FIFOAndRecording(t *testing.T) {
	m := NewMockProvider("mock",
		MockResponse{Content: "first"},
		MockResponse{Err: &UpstreamError{Provider: "mock", Err: errors.New("boom")}},
	)

	out, err := m.Complete(context.Background(), Request{Capability: CapabilityChat, Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	_, err = m.Complete(context.Background(), Request{Capability: CapabilityChat, Prompt: "again"})
	var up *UpstreamError
	require.ErrorAs(t, err, &up)

	// 队列耗尽后继续调用也报上游错误
	_, err = m.Complete(context.Background(), Request{})
	require.ErrorAs(t, err, &up)

	assert.Equal(t, 3, m.CallCount())
	assert.Equal(t, "hi", m.Calls[0].Prompt)
}

func TestOpenAICompatProvider_Unconfigured(t *testing.T) {
	p := NewGroqProvider(config.ProviderConfig{})
	_, err := p.Complete(context.Background(), Request{Capability: CapabilityChat, Prompt: "hi"})
	assert.ErrorIs(t, err, ErrUnconfigured)
}

func TestOllamaProvider_Unconfigured(t *testing.T) {
	p := NewOllamaProvider(config.ProviderConfig{})
	_, err := p.Complete(context.Background(), Request{Capability: CapabilityChat, Prompt: "hi"})
	assert.ErrorIs(t, err, ErrUnconfigured)
}
