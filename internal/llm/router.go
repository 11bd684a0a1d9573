package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bentossell/fragg-sub002/internal/logging"
)

// Router routes completion requests to the first healthy provider, falling
// back down the configured chain when a provider fails or is rate limited.
type Router struct {
	clients     map[Provider]Client
	order       []Provider
	config      *RouterConfig
	rateLimits  map[Provider]*rateLimiter
	healthCheck map[Provider]bool
	mu          sync.RWMutex
	log         *zap.Logger
}

// rateLimiter tracks per-provider request budgets
type rateLimiter struct {
	tokens     int
	maxTokens  int
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRouter creates a router over the given clients. Order determines the
// primary provider preference.
func NewRouter(clients ...Client) *Router {
	config := DefaultRouterConfig()

	clientMap := make(map[Provider]Client)
	order := make([]Provider, 0, len(clients))
	for _, c := range clients {
		clientMap[c.GetProvider()] = c
		order = append(order, c.GetProvider())
	}

	rateLimits := make(map[Provider]*rateLimiter)
	for provider, limit := range config.RateLimits {
		rateLimits[provider] = &rateLimiter{
			tokens:     limit,
			maxTokens:  limit,
			lastRefill: time.Now(),
		}
	}

	r := &Router{
		clients:     clientMap,
		order:       order,
		config:      config,
		rateLimits:  rateLimits,
		healthCheck: make(map[Provider]bool),
		log:         logging.Named("llm"),
	}

	// Providers are assumed healthy until a generation or health probe says
	// otherwise
	for _, p := range order {
		r.healthCheck[p] = true
	}

	return r
}

// Generate routes a completion request, trying fallbacks on failure.
// The returned response is always from a completed provider call.
func (r *Router) Generate(ctx context.Context, req *Request) (*Response, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Temperature == 0 {
		req.Temperature = 0.7
	}

	primary, err := r.selectProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to select provider: %w", err)
	}

	tried := map[Provider]bool{}
	chain := append([]Provider{primary}, r.config.FallbackOrder[primary]...)

	var lastErr error
	for _, provider := range chain {
		if tried[provider] {
			continue
		}
		tried[provider] = true

		client, exists := r.clients[provider]
		if !exists {
			continue
		}
		if !r.checkRateLimit(provider) {
			r.log.Warn("provider rate limited, trying next", zap.String("provider", string(provider)))
			continue
		}

		resp, err := client.Generate(ctx, req)
		if err == nil {
			r.setHealth(provider, true)
			return resp, nil
		}

		r.log.Warn("provider failed, trying fallback",
			zap.String("provider", string(provider)),
			zap.Error(err))
		r.setHealth(provider, false)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured")
	}
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

// selectProvider picks the first healthy provider in preference order
func (r *Router) selectProvider() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return "", fmt.Errorf("no providers configured")
	}

	for _, p := range r.order {
		if r.healthCheck[p] {
			return p, nil
		}
	}

	// Every provider marked unhealthy: retry the primary anyway rather than
	// refusing the request
	return r.order[0], nil
}

// checkRateLimit checks if a provider is within its request budget
func (r *Router) checkRateLimit(provider Provider) bool {
	limiter, exists := r.rateLimits[provider]
	if !exists {
		return true
	}

	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	// Refill tokens based on time passed
	now := time.Now()
	timePassed := now.Sub(limiter.lastRefill)
	tokensToAdd := int(timePassed.Minutes()) * limiter.maxTokens

	if tokensToAdd > 0 {
		limiter.tokens = limiter.tokens + tokensToAdd
		if limiter.tokens > limiter.maxTokens {
			limiter.tokens = limiter.maxTokens
		}
		limiter.lastRefill = now
	}

	if limiter.tokens > 0 {
		limiter.tokens--
		return true
	}

	return false
}

func (r *Router) setHealth(provider Provider, healthy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.healthCheck[provider] = healthy
}

// GetHealthStatus returns the current health flags for all providers
func (r *Router) GetHealthStatus() map[Provider]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := make(map[Provider]bool)
	for provider := range r.clients {
		status[provider] = r.healthCheck[provider]
	}
	return status
}

// GetProviderUsage returns usage statistics for all providers
func (r *Router) GetProviderUsage() map[Provider]*ProviderUsage {
	usage := make(map[Provider]*ProviderUsage)
	for provider, client := range r.clients {
		usage[provider] = client.GetUsage()
	}
	return usage
}
