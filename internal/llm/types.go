package llm

import (
	"context"
	"time"
)

// Provider identifies a text-completion backend
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Request is a single completion request. The generator treats the backend
// as a pure async text-completion function: prompt in, text out.
type Request struct {
	ID          string  `json:"id"`
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	Model       string  `json:"model,omitempty"` // explicit model override
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	TopP        float32 `json:"top_p,omitempty"`
}

// Response is the completion result from a provider
type Response struct {
	ID        string        `json:"id"`
	Provider  Provider      `json:"provider"`
	Content   string        `json:"content"`
	Usage     *Usage        `json:"usage,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Usage represents token usage for a completion
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Client is the interface every completion backend must implement
type Client interface {
	// Generate produces a completion for the request
	Generate(ctx context.Context, req *Request) (*Response, error)

	// GetProvider returns the provider identifier
	GetProvider() Provider

	// Health checks if the provider is reachable
	Health(ctx context.Context) error

	// GetUsage returns usage statistics
	GetUsage() *ProviderUsage
}

// ProviderUsage tracks usage statistics for a provider
type ProviderUsage struct {
	Provider     Provider  `json:"provider"`
	RequestCount int64     `json:"request_count"`
	TotalTokens  int64     `json:"total_tokens"`
	ErrorCount   int64     `json:"error_count"`
	AvgLatency   float64   `json:"avg_latency"`
	LastUsed     time.Time `json:"last_used"`
}

// RouterConfig configures how requests are routed to providers
type RouterConfig struct {
	// Fallback order when the primary provider fails
	FallbackOrder map[Provider][]Provider `json:"fallback_order"`

	// Rate limits per provider (requests per minute)
	RateLimits map[Provider]int `json:"rate_limits"`
}

// DefaultRouterConfig returns the default routing configuration
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		FallbackOrder: map[Provider][]Provider{
			ProviderAnthropic: {ProviderOpenAI},
			ProviderOpenAI:    {ProviderAnthropic},
		},
		RateLimits: map[Provider]int{
			ProviderAnthropic: 100, // requests per minute
			ProviderOpenAI:    80,  // requests per minute
		},
	}
}
