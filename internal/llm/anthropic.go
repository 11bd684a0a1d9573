package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// AnthropicClient implements the Anthropic messages API client
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	usage      *ProviderUsage
	usageMu    sync.RWMutex // Protects usage statistics
}

// Anthropic API request/response structures
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float32            `json:"temperature,omitempty"`
	TopP        float32            `json:"top_p,omitempty"`
	System      string             `json:"system,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropicClient creates a new Anthropic API client
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{
		apiKey:  apiKey,
		baseURL: "https://api.anthropic.com/v1/messages",
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		usage: &ProviderUsage{
			Provider: ProviderAnthropic,
			LastUsed: time.Now(),
		},
	}
}

// Generate implements the Client interface for Anthropic
func (c *AnthropicClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	model := "claude-sonnet-4-20250514"
	if req.Model != "" {
		model = req.Model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}

	apiReq := &anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		TopP:        req.TopP,
		System:      req.System,
	}

	resp, err := c.makeRequest(ctx, apiReq)
	if err != nil {
		c.incrementErrorCount()
		return &Response{
			ID:        req.ID,
			Provider:  ProviderAnthropic,
			Error:     err.Error(),
			Duration:  time.Since(startTime),
			CreatedAt: time.Now(),
		}, err
	}

	c.updateUsage(resp.Usage.InputTokens+resp.Usage.OutputTokens, time.Since(startTime))

	content := ""
	if len(resp.Content) > 0 && resp.Content[0].Type == "text" {
		content = resp.Content[0].Text
	}

	return &Response{
		ID:       req.ID,
		Provider: ProviderAnthropic,
		Content:  content,
		Usage: &Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		Duration:  time.Since(startTime),
		CreatedAt: time.Now(),
	}, nil
}

// makeRequest sends an HTTP request to the Anthropic API
func (c *AnthropicClient) makeRequest(ctx context.Context, req *anthropicRequest) (*anthropicResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case 429:
			return nil, fmt.Errorf("RATE_LIMIT: Anthropic API rate limit exceeded")
		case 401:
			return nil, fmt.Errorf("UNAUTHORIZED: invalid Anthropic API key")
		case 500, 502, 503, 504, 529:
			return nil, fmt.Errorf("SERVICE_ERROR: Anthropic service temporarily unavailable (status %d)", resp.StatusCode)
		default:
			return nil, fmt.Errorf("API_ERROR: Anthropic request failed with status %d: %s", resp.StatusCode, string(body))
		}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("Anthropic API error: %s", apiResp.Error.Message)
	}

	return &apiResp, nil
}

// GetProvider returns the provider identifier
func (c *AnthropicClient) GetProvider() Provider {
	return ProviderAnthropic
}

// Health checks if the Anthropic API is accessible
func (c *AnthropicClient) Health(ctx context.Context) error {
	testReq := &anthropicRequest{
		Model:     "claude-3-5-haiku-20241022",
		MaxTokens: 5,
		Messages: []anthropicMessage{
			{Role: "user", Content: "Hello"},
		},
	}

	_, err := c.makeRequest(ctx, testReq)
	return err
}

// GetUsage returns a snapshot of usage statistics
func (c *AnthropicClient) GetUsage() *ProviderUsage {
	c.usageMu.RLock()
	defer c.usageMu.RUnlock()

	snapshot := *c.usage
	return &snapshot
}

// updateUsage updates internal usage statistics (thread-safe)
func (c *AnthropicClient) updateUsage(totalTokens int, duration time.Duration) {
	c.usageMu.Lock()
	defer c.usageMu.Unlock()

	c.usage.RequestCount++
	c.usage.TotalTokens += int64(totalTokens)
	c.usage.LastUsed = time.Now()

	// Running average latency in milliseconds
	latencyMs := float64(duration.Milliseconds())
	n := float64(c.usage.RequestCount)
	c.usage.AvgLatency = (c.usage.AvgLatency*(n-1) + latencyMs) / n
}

// incrementErrorCount increments the error counter (thread-safe)
func (c *AnthropicClient) incrementErrorCount() {
	c.usageMu.Lock()
	defer c.usageMu.Unlock()
	c.usage.ErrorCount++
}
