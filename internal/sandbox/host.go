// Package sandbox talks to the remote execution host that runs generated
// apps inside template sandboxes.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bentossell/fragg-sub002/internal/logging"
)

// Host provisions sandboxes and runs commands inside them
type Host interface {
	Create(ctx context.Context, template string) (*Sandbox, error)
	WriteFile(ctx context.Context, sandboxID, path, content string) error
	RunCommand(ctx context.Context, sandboxID, command string) (*CommandResult, error)
	URL(sandboxID string, port int) (string, error)
	Kill(ctx context.Context, sandboxID string) error
}

// Sandbox is a provisioned execution environment
type Sandbox struct {
	ID       string    `json:"id"`
	Template string    `json:"template"`
	Host     string    `json:"host"`
	Created  time.Time `json:"created"`
}

// CommandResult captures one command execution inside a sandbox
type CommandResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// HTTPHost is a JSON-over-HTTP client for the execution host API
type HTTPHost struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

func NewHTTPHost(baseURL, apiKey string) *HTTPHost {
	return &HTTPHost{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: logging.Named("sandbox"),
	}
}

type createRequest struct {
	Template  string `json:"template"`
	RequestID string `json:"request_id"`
}

type commandRequest struct {
	Command string `json:"command"`
}

type writeFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type hostError struct {
	Error string `json:"error"`
}

func (h *HTTPHost) Create(ctx context.Context, template string) (*Sandbox, error) {
	body, err := h.do(ctx, http.MethodPost, "/v1/sandboxes", createRequest{
		Template:  template,
		RequestID: uuid.New().String(),
	})
	if err != nil {
		return nil, err
	}

	var sb Sandbox
	if err := json.Unmarshal(body, &sb); err != nil {
		return nil, fmt.Errorf("invalid sandbox response: %w", err)
	}
	h.log.Info("sandbox created",
		zap.String("id", sb.ID),
		zap.String("template", sb.Template))
	return &sb, nil
}

func (h *HTTPHost) WriteFile(ctx context.Context, sandboxID, path, content string) error {
	_, err := h.do(ctx, http.MethodPut,
		fmt.Sprintf("/v1/sandboxes/%s/files", sandboxID),
		writeFileRequest{Path: path, Content: content})
	return err
}

func (h *HTTPHost) RunCommand(ctx context.Context, sandboxID, command string) (*CommandResult, error) {
	body, err := h.do(ctx, http.MethodPost,
		fmt.Sprintf("/v1/sandboxes/%s/commands", sandboxID),
		commandRequest{Command: command})
	if err != nil {
		return nil, err
	}

	var res CommandResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("invalid command response: %w", err)
	}
	return &res, nil
}

func (h *HTTPHost) URL(sandboxID string, port int) (string, error) {
	if sandboxID == "" {
		return "", fmt.Errorf("sandbox id is required")
	}
	return fmt.Sprintf("https://%d-%s.%s", port, sandboxID, hostDomain(h.baseURL)), nil
}

func (h *HTTPHost) Kill(ctx context.Context, sandboxID string) error {
	_, err := h.do(ctx, http.MethodDelete,
		fmt.Sprintf("/v1/sandboxes/%s", sandboxID), nil)
	return err
}

func (h *HTTPHost) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execution host unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("execution host rejected credentials")
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("sandbox not found")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("execution host rate limited")
	default:
		var he hostError
		if json.Unmarshal(body, &he) == nil && he.Error != "" {
			return nil, fmt.Errorf("execution host error (%d): %s", resp.StatusCode, he.Error)
		}
		return nil, fmt.Errorf("execution host error (%d)", resp.StatusCode)
	}
}

// hostDomain strips the scheme from the base URL for preview URL assembly
func hostDomain(baseURL string) string {
	for _, prefix := range []string{"https://", "http://"} {
		if len(baseURL) > len(prefix) && baseURL[:len(prefix)] == prefix {
			return baseURL[len(prefix):]
		}
	}
	return baseURL
}

// WaitReady polls the sandbox URL until it answers or attempts run out.
// Fixed interval, bounded attempts; returns the last error on exhaustion.
func WaitReady(ctx context.Context, url string, attempts int, interval time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}

	client := &http.Client{Timeout: 5 * time.Second}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 500 {
			return nil
		}
		lastErr = fmt.Errorf("sandbox returned %d", resp.StatusCode)
	}
	return fmt.Errorf("sandbox not ready after %d attempts: %w", attempts, lastErr)
}
