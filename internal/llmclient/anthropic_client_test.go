package llmclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/config"
)

const anthropicSuccessBody = `{
	"content": [{"type": "text", "text": "{\"test_scenarios\": []}"}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 12, "output_tokens": 7}
}`

func setupAnthropicClient(t *testing.T, handler http.HandlerFunc) (*AnthropicClient, *observer.ObservedLogs) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	loggerCore, observedLogs := observer.New(zap.InfoLevel)

	cfg := getValidAIConfig()
	cfg.Provider = config.ProviderAnthropic
	cfg.Endpoint = server.URL

	client, err := NewAnthropicClient(cfg, zap.New(loggerCore))
	require.NoError(t, err)
	client.backoffFactory = fastBackOff
	return client, observedLogs
}

func TestNewAnthropicClient(t *testing.T) {
	cfg := getValidAIConfig()
	cfg.Provider = config.ProviderAnthropic

	client, err := NewAnthropicClient(cfg, setupTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, defaultAnthropicEndpoint, client.endpoint)
	assert.Equal(t, cfg.APITimeout, client.httpClient.Timeout)

	cfg.APIKey = ""
	_, err = NewAnthropicClient(cfg, setupTestLogger(t))
	assert.ErrorContains(t, err, "API key is required")
}

func TestAnthropicGenerate_Success(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var payload anthropicRequestPayload
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "test-model", payload.Model)
		assert.Equal(t, 1024, payload.MaxTokens)
		assert.Equal(t, float32(0.7), payload.Temperature)
		assert.Equal(t, "System prompt instructions.", payload.System)
		require.Len(t, payload.Messages, 1)
		assert.Equal(t, anthropicMessage{Role: "user", Content: "User query."}, payload.Messages[0])

		_, _ = w.Write([]byte(anthropicSuccessBody))
	}

	client, observedLogs := setupAnthropicClient(t, handler)
	response, err := client.Generate(context.Background(), createTestRequest())

	require.NoError(t, err)
	assert.Equal(t, `{"test_scenarios": []}`, response)

	require.Equal(t, 1, observedLogs.Len())
	entry := observedLogs.All()[0]
	assert.Equal(t, "LLM generation complete (Anthropic)", entry.Message)
	assert.Equal(t, int64(12), entry.ContextMap()["prompt_tokens"])
	assert.Equal(t, "end_turn", entry.ContextMap()["stop_reason"])
}

func TestAnthropicGenerate_Retries(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		wantAttempts int32
		wantErr      bool
	}{
		{"Rate limited then success", http.StatusTooManyRequests, 2, false},
		{"Server error then success", http.StatusInternalServerError, 2, false},
		{"Bad request is permanent", http.StatusBadRequest, 1, true},
		{"Unauthorized is permanent", http.StatusUnauthorized, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			handler := func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&attempts, 1) == 1 {
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(`{"type": "error"}`))
					return
				}
				_, _ = w.Write([]byte(anthropicSuccessBody))
			}

			client, _ := setupAnthropicClient(t, handler)
			_, err := client.Generate(context.Background(), createTestRequest())

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, schemas.ErrCompletionFailed)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantAttempts, atomic.LoadInt32(&attempts))
		})
	}
}

func TestAnthropicGenerate_EmptyContent(t *testing.T) {
	client, _ := setupAnthropicClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content": [], "stop_reason": "max_tokens"}`))
	})

	_, err := client.Generate(context.Background(), createTestRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrCompletionFailed)
	assert.Contains(t, err.Error(), "max_tokens")
}
