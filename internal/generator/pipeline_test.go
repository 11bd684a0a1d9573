package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bentossell/fragg-sub002/internal/llm"
)

func newTestGenerator(backend Backend) *Generator {
	return NewGenerator(backend, &Config{CacheCapacity: 10})
}

func TestGenerateAppHappyPath(t *testing.T) {
	backend := &stubBackend{}
	gen := newTestGenerator(backend)
	sink := &collectSink{}

	res := gen.GenerateApp(context.Background(), "s1", "build a simple counter app", "", sink)

	if res == nil {
		t.Fatal("result must never be nil")
	}
	if res.Template != "nextjs-developer" {
		t.Errorf("template = %s, want nextjs-developer", res.Template)
	}
	if res.Code == "" {
		t.Error("code must not be empty")
	}
	if res.Metadata.TotalAgents < 1 {
		t.Errorf("total agents = %d, want >= 1", res.Metadata.TotalAgents)
	}
	if len(res.Metadata.Errors) != 0 {
		t.Errorf("unexpected errors: %v", res.Metadata.Errors)
	}

	hasDep := func(name string) bool {
		for _, d := range res.Dependencies {
			if d == name {
				return true
			}
		}
		return false
	}
	for _, d := range []string{"next", "react", "react-dom"} {
		if !hasDep(d) {
			t.Errorf("dependencies missing %q: %v", d, res.Dependencies)
		}
	}

	completes := sink.byType(EventComplete)
	if len(completes) != 1 {
		t.Fatalf("want exactly one complete event, got %d", len(completes))
	}
	events := sink.all()
	if events[len(events)-1].Type != EventComplete {
		t.Error("complete must be the final event")
	}
	if events[0].Type != EventTriage {
		t.Errorf("first event = %s, want triage", events[0].Type)
	}
}

func TestGenerateAppCacheHit(t *testing.T) {
	backend := &stubBackend{}
	gen := newTestGenerator(backend)

	first := gen.GenerateApp(context.Background(), "s1", "a landing page for a bakery", "", NopSink{})
	callsAfterFirst := backend.callCount()

	sink := &collectSink{}
	second := gen.GenerateApp(context.Background(), "s2", "A Landing   Page for a bakery", "", sink)

	if backend.callCount() != callsAfterFirst {
		t.Error("a cache hit must not call the backend")
	}
	if second.Code != first.Code {
		t.Error("cached result must be byte-identical")
	}
	if second.Metadata.CacheHits < 1 {
		t.Errorf("cache hits = %d, want >= 1", second.Metadata.CacheHits)
	}
	if len(sink.byType(EventComplete)) != 1 {
		t.Error("cache hits still emit exactly one complete event")
	}
}

func TestGenerateAppAgentFailureIsFallback(t *testing.T) {
	backend := &stubBackend{
		fn: func(req *llm.Request) (*llm.Response, error) {
			if strings.Contains(req.System, "CSS") {
				return nil, errors.New("provider down")
			}
			return &llm.Response{Content: cannedOutput(req)}, nil
		},
	}
	gen := newTestGenerator(backend)
	sink := &collectSink{}

	res := gen.GenerateApp(context.Background(), "s1", "a landing page", "", sink)

	if res.Code == "" {
		t.Error("surviving agents should still produce an app")
	}
	if res.Metadata.Fallbacks < 1 {
		t.Errorf("fallbacks = %d, want >= 1", res.Metadata.Fallbacks)
	}
	if len(res.Metadata.Errors) == 0 {
		t.Error("agent failure should surface in metadata errors")
	}
	if len(sink.byType(EventComplete)) != 1 {
		t.Error("failures still emit exactly one complete event")
	}
}

func TestGenerateAppTotalBackendFailure(t *testing.T) {
	backend := &stubBackend{
		fn: func(req *llm.Request) (*llm.Response, error) {
			return nil, errors.New("all providers down")
		},
	}
	gen := newTestGenerator(backend)

	res := gen.GenerateApp(context.Background(), "s1", "a landing page", "", NopSink{})

	if res == nil {
		t.Fatal("result must never be nil")
	}
	if res.Code == "" {
		t.Error("total failure must still produce a runnable starter app")
	}
	if res.Metadata.Fallbacks < 1 {
		t.Errorf("fallbacks = %d, want >= 1", res.Metadata.Fallbacks)
	}
}

func TestGenerateAppIterationDiffPath(t *testing.T) {
	diffJSON := `[{"type": "replace", "searchPattern": "bg-blue-500", "content": "bg-red-500", "description": "recolor background"}]`
	backend := &stubBackend{
		fn: func(req *llm.Request) (*llm.Response, error) {
			if strings.Contains(req.Prompt, "JSON array of diff objects") {
				return &llm.Response{Content: diffJSON}, nil
			}
			return &llm.Response{Content: cannedOutput(req)}, nil
		},
	}
	gen := newTestGenerator(backend)

	existing := "<html><body class=\"bg-blue-500\"><h1>App</h1></body></html>"
	sink := &collectSink{}
	res := gen.GenerateApp(context.Background(), "s1", "change the background to red", existing, sink)

	if !res.Metadata.IsIteration {
		t.Error("edit request against existing code must be an iteration")
	}
	if !res.Metadata.DiffMode {
		t.Error("valid diffs should keep diff mode on")
	}
	if res.Metadata.AppliedDiffs != 1 {
		t.Errorf("applied diffs = %d, want 1", res.Metadata.AppliedDiffs)
	}
	if !strings.Contains(res.Code, "bg-red-500") || strings.Contains(res.Code, "bg-blue-500") {
		t.Errorf("diff was not applied:\n%s", res.Code)
	}
	if !strings.Contains(res.Code, "<h1>App</h1>") {
		t.Error("untouched code must be preserved")
	}
	if len(sink.byType(EventComplete)) != 1 {
		t.Error("iterations emit exactly one complete event")
	}
}

func TestGenerateWithDiffsFallsBackToRegeneration(t *testing.T) {
	regenerated := "<html><body class=\"bg-red-500\"><h1>App</h1></body></html>"
	backend := &stubBackend{
		fn: func(req *llm.Request) (*llm.Response, error) {
			if strings.Contains(req.Prompt, "JSON array of diff objects") {
				return &llm.Response{Content: "Sorry, I can't express that as diffs."}, nil
			}
			return &llm.Response{Content: "```html\n" + regenerated + "\n```"}, nil
		},
	}
	gen := newTestGenerator(backend)

	existing := "<html><body class=\"bg-blue-500\"><h1>App</h1></body></html>"
	res := gen.GenerateWithDiffs(context.Background(), "s1", "change the background to red", existing, NopSink{})

	if !res.Metadata.IsIteration {
		t.Error("fallback regeneration is still an iteration")
	}
	if res.Metadata.DiffMode {
		t.Error("fallback must report diff mode off")
	}
	if res.Metadata.Fallbacks != 1 {
		t.Errorf("fallbacks = %d, want 1", res.Metadata.Fallbacks)
	}
	if len(res.Metadata.Errors) == 0 {
		t.Error("the diff failure that triggered the fallback should surface in metadata errors")
	}
	if res.Code != regenerated {
		t.Errorf("code = %q, want regenerated output", res.Code)
	}
}

func TestGenerateAppRecoversFromBackendPanicOnIteration(t *testing.T) {
	backend := &stubBackend{
		fn: func(req *llm.Request) (*llm.Response, error) {
			panic("backend contract violation")
		},
	}
	gen := newTestGenerator(backend)
	sink := &collectSink{}

	existing := "<html><body class=\"bg-blue-500\"><h1>App</h1></body></html>"
	res := gen.GenerateApp(context.Background(), "s1", "change the background to red", existing, sink)

	if res == nil {
		t.Fatal("a panicking backend must still yield a result")
	}
	if res.Code == "" {
		t.Error("fallback result must carry a runnable starter app")
	}
	if res.Metadata.Fallbacks < 1 {
		t.Errorf("fallbacks = %d, want >= 1", res.Metadata.Fallbacks)
	}
	if len(res.Metadata.Errors) == 0 {
		t.Error("the panic should surface in metadata errors")
	}

	completes := sink.byType(EventComplete)
	if len(completes) != 1 {
		t.Fatalf("want exactly one complete event on the panic path, got %d", len(completes))
	}
	events := sink.all()
	if events[len(events)-1].Type != EventComplete {
		t.Error("complete must still be the final event")
	}
}

func TestGenerateWithDiffsRecoversFromBackendPanic(t *testing.T) {
	backend := &stubBackend{
		fn: func(req *llm.Request) (*llm.Response, error) {
			panic("backend contract violation")
		},
	}
	gen := newTestGenerator(backend)
	sink := &collectSink{}

	res := gen.GenerateWithDiffs(context.Background(), "s1", "make it red",
		"<html><body>original</body></html>", sink)

	if res == nil {
		t.Fatal("a panicking backend must still yield a result")
	}
	if len(sink.byType(EventComplete)) != 1 {
		t.Error("exactly one complete event on the panic path")
	}
}

func TestGenerateWithDiffsRegenerationFailureKeepsCode(t *testing.T) {
	backend := &stubBackend{
		fn: func(req *llm.Request) (*llm.Response, error) {
			return nil, errors.New("provider down")
		},
	}
	gen := newTestGenerator(backend)

	existing := "<html><body>original</body></html>"
	res := gen.GenerateWithDiffs(context.Background(), "s1", "make it nicer", existing, NopSink{})

	if res.Code != existing {
		t.Error("when regeneration fails the existing code is the result")
	}
	if len(res.Metadata.Errors) == 0 {
		t.Error("the regeneration failure should surface in metadata")
	}
}

func TestSessionIsolation(t *testing.T) {
	backend := &stubBackend{}
	gen := newTestGenerator(backend)

	gen.GenerateApp(context.Background(), "alice", "a landing page for a gym", "", NopSink{})
	gen.GenerateApp(context.Background(), "bob", "streamlit app for sales data", "", NopSink{})

	alice := gen.LastGenerated("alice")
	bob := gen.LastGenerated("bob")
	if alice == nil || bob == nil {
		t.Fatal("each session keeps its own last result")
	}
	if alice.Template == bob.Template {
		t.Errorf("sessions leaked: both templates are %s", alice.Template)
	}
	if gen.LastGenerated("carol") != nil {
		t.Error("unknown session must have no iteration context")
	}
}

func TestGenerateAppEmptySessionDefaults(t *testing.T) {
	backend := &stubBackend{}
	gen := newTestGenerator(backend)

	gen.GenerateApp(context.Background(), "", "a landing page", "", NopSink{})

	if gen.LastGenerated("") == nil {
		t.Error("empty session id should map to the default session")
	}
	if gen.LastGenerated("default") == nil {
		t.Error("empty and explicit default session should be the same slot")
	}
}

func TestCollectDependencies(t *testing.T) {
	results := []AgentResult{
		{Dependencies: []string{"react", "axios"}},
		{Dependencies: []string{"react"}},
	}
	deps := collectDependencies(results, StackNextJS)

	seen := map[string]int{}
	for _, d := range deps {
		seen[d]++
	}
	for d, n := range seen {
		if n > 1 {
			t.Errorf("dependency %q duplicated %d times", d, n)
		}
	}
	for _, d := range []string{"react", "axios", "next", "react-dom", "@types/react"} {
		if seen[d] == 0 {
			t.Errorf("missing dependency %q in %v", d, deps)
		}
	}
	for i := 1; i < len(deps); i++ {
		if deps[i-1] > deps[i] {
			t.Errorf("dependencies not sorted: %v", deps)
			break
		}
	}
}
