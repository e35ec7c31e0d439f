package llm

import (
	"context"
	"net/http"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAzureOpenAIClient_ConfigFaults(t *testing.T) {
	tests := []struct {
		name string
		cfg  AzureConfig
	}{
		{"missing endpoint", AzureConfig{APIKey: "key"}},
		{"missing api key", AzureConfig{Endpoint: "https://example.openai.azure.com"}},
		{"missing both", AzureConfig{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewAzureOpenAIClient(tt.cfg)
			assert.Nil(t, client)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotConfigured)
		})
	}
}

func TestNewAzureOpenAIClient_DefaultsDeployment(t *testing.T) {
	client, err := NewAzureOpenAIClient(AzureConfig{
		Endpoint: "https://example.openai.azure.com",
		APIKey:   "key",
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", client.deployment)
}

func TestNewOpenAIClient_RequiresAPIKey(t *testing.T) {
	client, err := NewOpenAIClient("", "gpt-4o-mini")
	assert.Nil(t, client)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestUpstreamError_MessageOmitsBody(t *testing.T) {
	err := &UpstreamError{StatusCode: 401, Body: "invalid api key sk-secret"}
	assert.Equal(t, "upstream chat completion failed with status 401", err.Error())
	assert.NotContains(t, err.Error(), "sk-secret")
}

func TestWrapOpenAIError(t *testing.T) {
	t.Run("context errors pass through", func(t *testing.T) {
		assert.ErrorIs(t, wrapOpenAIError(context.DeadlineExceeded), context.DeadlineExceeded)
		assert.ErrorIs(t, wrapOpenAIError(context.Canceled), context.Canceled)
	})

	t.Run("api error carries status", func(t *testing.T) {
		wrapped := wrapOpenAIError(&openai.APIError{
			HTTPStatusCode: http.StatusTooManyRequests,
			Message:        "rate limited",
		})
		var upstreamErr *UpstreamError
		require.ErrorAs(t, wrapped, &upstreamErr)
		assert.Equal(t, http.StatusTooManyRequests, upstreamErr.StatusCode)
		assert.Equal(t, "rate limited", upstreamErr.Body)
	})

	t.Run("transport error has no status", func(t *testing.T) {
		wrapped := wrapOpenAIError(assert.AnError)
		var upstreamErr *UpstreamError
		require.ErrorAs(t, wrapped, &upstreamErr)
		assert.Equal(t, 0, upstreamErr.StatusCode)
	})
}
