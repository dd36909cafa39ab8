package agent

import (
	"context"
	"fmt"
)

// Message is one chat turn relayed to a provider.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request contains the parameters for one completion call.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Response is a provider's completion.
type Response struct {
	Content string
	Usage   Usage
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Provider is a chat completion backend. The hub only relays turns; tool
// calls and streaming stay inside the shell.
type Provider interface {
	Complete(ctx context.Context, request Request) (*Response, error)
	Name() string
}

// New creates a provider by name.
func New(provider, apiKey string) (Provider, error) {
	switch provider {
	case "anthropic":
		return NewAnthropicProvider(apiKey), nil
	case "openai":
		return NewOpenAIProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
