package generator

import (
	"context"
	"strings"
	"sync"

	"github.com/bentossell/fragg-sub002/internal/llm"
)

// stubBackend is a scripted completion backend for tests. When fn is nil it
// returns canned agent output keyed on the request's system prompt.
type stubBackend struct {
	mu    sync.Mutex
	calls []llm.Request
	fn    func(req *llm.Request) (*llm.Response, error)
}

func (s *stubBackend) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	s.calls = append(s.calls, *req)
	s.mu.Unlock()

	if s.fn != nil {
		return s.fn(req)
	}
	return &llm.Response{Content: cannedOutput(req)}, nil
}

func (s *stubBackend) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func cannedOutput(req *llm.Request) string {
	switch {
	case strings.Contains(req.System, "HTML markup"):
		return "<!DOCTYPE html>\n<html>\n<head><title>Test</title></head>\n<body><h1>Hello</h1></body>\n</html>"
	case strings.Contains(req.System, "CSS"):
		return ".fade { transition: opacity 0.3s; }"
	case strings.Contains(req.System, "vanilla JavaScript"):
		return "document.querySelector('h1').addEventListener('click', () => {})"
	case strings.Contains(req.System, "React developer"):
		return "```tsx\nimport { useState } from 'react'\n\n" +
			"function Counter() {\n  const [count, setCount] = useState(0)\n" +
			"  return <button onClick={() => setCount(count + 1)}>{count}</button>\n}\n\n" +
			"export default Counter\n```"
	case strings.Contains(req.System, "API routes"):
		return ""
	case strings.Contains(req.System, "Python developer"):
		return "import streamlit as st\n\nst.title('Test')"
	default:
		return "<div>ok</div>"
	}
}

// collectSink records events in emission order
type collectSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *collectSink) Emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collectSink) byType(t EventType) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (c *collectSink) all() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}
