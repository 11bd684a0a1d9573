// Package generator implements the prompt-to-app orchestration core:
// triage, agent fan-out, assembly, result caching, and the iteration
// diff engine.
package generator

import (
	"sync"
	"time"

	"github.com/bentossell/fragg-sub002/internal/library"
)

// Stack identifies the target technology stack chosen by triage
type Stack string

const (
	StackStaticHTML Stack = "static-html"
	StackNextJS     Stack = "nextjs-react"
	StackStreamlit  Stack = "streamlit-python"
	StackGradio     Stack = "gradio-python"
	StackOther      Stack = "other"
)

// Complexity is the triage estimate of how involved the request is
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// OutputKind discriminates agent output for assembler routing.
// Closed set: the assembler's dispatch is exhaustive over these.
type OutputKind string

const (
	KindHTML      OutputKind = "html"
	KindCSS       OutputKind = "css"
	KindJS        OutputKind = "js"
	KindComponent OutputKind = "component"
	KindBackend   OutputKind = "backend"
	KindScript    OutputKind = "script"
)

// templateForStack maps each stack to a template id the execution host
// recognizes. Every stack resolves; unknown stacks use the static template.
var templateForStack = map[Stack]string{
	StackStaticHTML: "static",
	StackNextJS:     "nextjs-developer",
	StackStreamlit:  "streamlit-developer",
	StackGradio:     "gradio-developer",
	StackOther:      "static",
}

// TemplateFor returns the execution-host template for a stack, never empty
func TemplateFor(stack Stack) string {
	if t, ok := templateForStack[stack]; ok {
		return t
	}
	return "static"
}

// Requirements holds the triage estimates for a request
type Requirements struct {
	Complexity Complexity `json:"complexity"`
}

// PromptContext carries free-text classification hints from triage
type PromptContext struct {
	Domain      string   `json:"domain"`
	Preferences []string `json:"preferences,omitempty"`
}

// TriageResult is the structured classification of a prompt
type TriageResult struct {
	Stack        Stack         `json:"stack"`
	Template     string        `json:"template"`
	Components   []string      `json:"components,omitempty"`
	Requirements Requirements  `json:"requirements"`
	Context      PromptContext `json:"context"`
}

// AgentContext is the shared context for one generation fan-out. It is
// created after triage and discarded after assembly; agents get a read-mostly
// view plus write access to the shared scratch space.
type AgentContext struct {
	Triage         TriageResult
	UserPrompt     string
	Components     []library.Entry
	TargetTemplate string

	sharedMu    sync.RWMutex
	sharedState map[string]any
}

// NewAgentContext builds the per-request context shared across agents
func NewAgentContext(triage TriageResult, prompt string, components []library.Entry) *AgentContext {
	return &AgentContext{
		Triage:         triage,
		UserPrompt:     prompt,
		Components:     components,
		TargetTemplate: triage.Template,
		sharedState:    make(map[string]any),
	}
}

// SetShared writes a value into the cross-agent scratch space
func (c *AgentContext) SetShared(key string, value any) {
	c.sharedMu.Lock()
	defer c.sharedMu.Unlock()
	c.sharedState[key] = value
}

// GetShared reads a value from the cross-agent scratch space
func (c *AgentContext) GetShared(key string) (any, bool) {
	c.sharedMu.RLock()
	defer c.sharedMu.RUnlock()
	v, ok := c.sharedState[key]
	return v, ok
}

// AgentResult is the outcome of one agent invocation. A failed agent still
// produces a well-formed result with empty code and populated Errors.
type AgentResult struct {
	AgentName     string        `json:"agent_name"`
	Kind          OutputKind    `json:"kind"`
	Code          string        `json:"code"`
	Dependencies  []string      `json:"dependencies,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`
	Errors        []string      `json:"errors,omitempty"`
}

// Succeeded reports whether the agent produced usable output
func (r *AgentResult) Succeeded() bool {
	return len(r.Errors) == 0 && r.Code != ""
}

// ResultMetadata is the diagnostic breakdown attached to every result
type ResultMetadata struct {
	TriageTime     time.Duration `json:"triage_time"`
	GenerationTime time.Duration `json:"generation_time"`
	AssemblyTime   time.Duration `json:"assembly_time"`
	TotalAgents    int           `json:"total_agents"`
	Errors         []string      `json:"errors,omitempty"`
	Fallbacks      int           `json:"fallbacks"`
	CacheHits      int           `json:"cache_hits"`
	IsIteration    bool          `json:"is_iteration"`
	DiffMode       bool          `json:"diff_mode"`
	AppliedDiffs   int           `json:"applied_diffs"`
}

// GenerationResult is the final output of one generation request.
// Immutable after construction; Clone before sharing across cache boundaries.
type GenerationResult struct {
	Code          string         `json:"code"`
	Template      string         `json:"template"`
	Dependencies  []string       `json:"dependencies"`
	ExecutionTime time.Duration  `json:"execution_time"`
	AgentResults  []AgentResult  `json:"agent_results,omitempty"`
	Metadata      ResultMetadata `json:"metadata"`
}

// Clone returns a deep copy safe to mutate independently
func (r *GenerationResult) Clone() *GenerationResult {
	out := *r
	out.Dependencies = append([]string(nil), r.Dependencies...)
	out.AgentResults = make([]AgentResult, len(r.AgentResults))
	for i, ar := range r.AgentResults {
		out.AgentResults[i] = ar
		out.AgentResults[i].Dependencies = append([]string(nil), ar.Dependencies...)
		out.AgentResults[i].Errors = append([]string(nil), ar.Errors...)
	}
	out.Metadata.Errors = append([]string(nil), r.Metadata.Errors...)
	return &out
}
