package schemas

import "context"

// GenerationOptions holds per-request sampling parameters.
type GenerationOptions struct {
	Temperature     float32 `json:"temperature"`
	MaxTokens       int     `json:"max_tokens"`
	ForceJSONFormat bool    `json:"force_json_format"`
}

// GenerationRequest is a single instruction document sent to a completion endpoint.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Model        string            `json:"model,omitempty"`
	Options      GenerationOptions `json:"options"`
}

// LLMClient sends prompt text and receives completion text.
type LLMClient interface {
	// Generate produces a text completion based on the provided request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Close releases any resources held by the client.
	Close() error
}
