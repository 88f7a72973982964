package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/testforge/internal/config"
)

func TestNewClient(t *testing.T) {
	ctx := context.Background()
	logger := setupTestLogger(t)

	t.Run("Gemini", func(t *testing.T) {
		client, err := NewClient(ctx, getValidAIConfig(), logger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		gemini, ok := client.(*GeminiClient)
		require.True(t, ok, "The created client should be of type *GeminiClient")
		assert.Equal(t, "test-model", gemini.config.Model)
	})

	t.Run("Anthropic", func(t *testing.T) {
		cfg := getValidAIConfig()
		cfg.Provider = config.ProviderAnthropic
		client, err := NewClient(ctx, cfg, logger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		_, ok := client.(*AnthropicClient)
		assert.True(t, ok, "The created client should be of type *AnthropicClient")
	})

	t.Run("Unknown provider", func(t *testing.T) {
		cfg := getValidAIConfig()
		cfg.Provider = "openai"
		client, err := NewClient(ctx, cfg, logger)
		assert.Nil(t, client)
		assert.ErrorContains(t, err, "unknown or unsupported LLM provider configured: 'openai'")
	})

	t.Run("Missing key", func(t *testing.T) {
		cfg := getValidAIConfig()
		cfg.APIKey = ""
		_, err := NewClient(ctx, cfg, logger)
		assert.Error(t, err)
	})
}
