package generator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bentossell/fragg-sub002/internal/llm"
)

// Backend is the text-completion service agents generate through.
// *llm.Router satisfies it; tests substitute scripted stubs.
type Backend interface {
	Generate(ctx context.Context, req *llm.Request) (*llm.Response, error)
}

// Agent produces one code fragment for a single output concern
type Agent interface {
	Name() string
	Kind() OutputKind
	Generate(ctx context.Context, actx *AgentContext) (*AgentResult, error)
}

// llmAgent is the common agent implementation: build a concern-specific
// prompt, call the backend, extract code and dependencies.
type llmAgent struct {
	name     string
	kind     OutputKind
	backend  Backend
	system   string
	buildMsg func(actx *AgentContext) string
	baseDeps []string
}

func (a *llmAgent) Name() string     { return a.name }
func (a *llmAgent) Kind() OutputKind { return a.kind }

func (a *llmAgent) Generate(ctx context.Context, actx *AgentContext) (*AgentResult, error) {
	start := time.Now()

	resp, err := a.backend.Generate(ctx, &llm.Request{
		Prompt:      a.buildMsg(actx),
		System:      a.system,
		Temperature: 0.7,
		MaxTokens:   4000,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.name, err)
	}

	code := extractCode(resp.Content)
	deps := append([]string(nil), a.baseDeps...)
	deps = append(deps, extractDependencies(code, a.kind)...)

	return &AgentResult{
		AgentName:     a.name,
		Kind:          a.kind,
		Code:          code,
		Dependencies:  deps,
		ExecutionTime: time.Since(start),
	}, nil
}

// agentSetForStack returns the ordered agent list for a stack. Unknown
// stacks fall back to the minimal single-agent set.
func agentSetForStack(stack Stack, backend Backend) []Agent {
	switch stack {
	case StackStaticHTML:
		return []Agent{
			newHTMLAgent(backend),
			newCSSAgent(backend),
			newJSAgent(backend),
		}
	case StackNextJS:
		return []Agent{
			newComponentAgent(backend),
			newBackendAgent(backend),
		}
	case StackStreamlit:
		return []Agent{newScriptAgent(backend, "streamlit", []string{"streamlit"})}
	case StackGradio:
		return []Agent{newScriptAgent(backend, "gradio", []string{"gradio"})}
	default:
		return []Agent{newHTMLAgent(backend)}
	}
}

func newHTMLAgent(backend Backend) Agent {
	return &llmAgent{
		name:    "html",
		kind:    KindHTML,
		backend: backend,
		system: "You are an expert front-end developer. Output only HTML markup " +
			"using Tailwind utility classes. No explanations, no markdown prose.",
		buildMsg: func(actx *AgentContext) string {
			return fmt.Sprintf("Build the HTML page structure for: %s\n%s", actx.UserPrompt, contextNotes(actx))
		},
	}
}

func newCSSAgent(backend Backend) Agent {
	return &llmAgent{
		name:    "css",
		kind:    KindCSS,
		backend: backend,
		system: "You are an expert at CSS. Output only CSS rules that complement " +
			"Tailwind utilities (animations, custom properties). No explanations.",
		buildMsg: func(actx *AgentContext) string {
			return fmt.Sprintf("Write any custom CSS needed for: %s\nOutput an empty response if Tailwind covers everything.", actx.UserPrompt)
		},
	}
}

func newJSAgent(backend Backend) Agent {
	return &llmAgent{
		name:    "js",
		kind:    KindJS,
		backend: backend,
		system: "You are an expert at vanilla JavaScript. Output only browser " +
			"JavaScript, no framework code, no explanations.",
		buildMsg: func(actx *AgentContext) string {
			return fmt.Sprintf("Write the client-side JavaScript behavior for: %s", actx.UserPrompt)
		},
	}
}

func newComponentAgent(backend Backend) Agent {
	return &llmAgent{
		name:    "component",
		kind:    KindComponent,
		backend: backend,
		system: "You are an expert React developer. Output a single complete React " +
			"function component in TypeScript with Tailwind classes. Include all " +
			"imports and a default export. No explanations.",
		buildMsg: func(actx *AgentContext) string {
			return fmt.Sprintf("Build a React component implementing: %s\n%s", actx.UserPrompt, contextNotes(actx))
		},
		baseDeps: []string{"react", "react-dom"},
	}
}

func newBackendAgent(backend Backend) Agent {
	return &llmAgent{
		name:    "backend",
		kind:    KindBackend,
		backend: backend,
		system: "You are an expert at Next.js API routes. Output only the API " +
			"route handler code the app needs, or an empty response if none is needed.",
		buildMsg: func(actx *AgentContext) string {
			return fmt.Sprintf("Write any Next.js API routes needed for: %s", actx.UserPrompt)
		},
	}
}

func newScriptAgent(backend Backend, framework string, baseDeps []string) Agent {
	return &llmAgent{
		name:    framework,
		kind:    KindScript,
		backend: backend,
		system: fmt.Sprintf("You are an expert Python developer. Output a single "+
			"complete %s app file. No explanations, no markdown prose.", framework),
		buildMsg: func(actx *AgentContext) string {
			return fmt.Sprintf("Build a %s app for: %s\n%s", framework, actx.UserPrompt, contextNotes(actx))
		},
		baseDeps: baseDeps,
	}
}

// contextNotes renders triage hints and available component snippets into
// prompt guidance shared by the structural agents
func contextNotes(actx *AgentContext) string {
	var b strings.Builder
	if actx.Triage.Context.Domain != "generic" && actx.Triage.Context.Domain != "" {
		fmt.Fprintf(&b, "Domain: %s.\n", actx.Triage.Context.Domain)
	}
	if len(actx.Triage.Context.Preferences) > 0 {
		fmt.Fprintf(&b, "Style preferences: %s.\n", strings.Join(actx.Triage.Context.Preferences, ", "))
	}
	if len(actx.Components) > 0 {
		b.WriteString("Reusable component snippets you may adapt:\n")
		for _, e := range actx.Components {
			fmt.Fprintf(&b, "--- %s (%s)\n%s\n", e.Name, e.ID, e.Code)
		}
	}
	return b.String()
}

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\n(.*?)```")

// extractCode strips a markdown code fence if the model wrapped its output
// in one; otherwise the raw text is the code.
func extractCode(raw string) string {
	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

var (
	jsImportRe = regexp.MustCompile(`(?m)^\s*import\s+(?:[^'"]+\s+from\s+)?['"]([^'"./][^'"]*)['"]`)
	pyImportRe = regexp.MustCompile(`(?m)^(?:import|from)\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
)

// pyStdlib filters out interpreter-bundled modules from dependency extraction
var pyStdlib = map[string]bool{
	"os": true, "sys": true, "re": true, "json": true, "time": true,
	"math": true, "random": true, "datetime": true, "collections": true,
	"itertools": true, "functools": true, "typing": true, "pathlib": true,
}

// extractDependencies scans code for package-like imports declared by the
// agent output
func extractDependencies(code string, kind OutputKind) []string {
	var deps []string
	switch kind {
	case KindComponent, KindBackend, KindJS:
		for _, m := range jsImportRe.FindAllStringSubmatch(code, -1) {
			pkg := m[1]
			// Scoped packages keep two path segments, others one
			parts := strings.Split(pkg, "/")
			if strings.HasPrefix(pkg, "@") && len(parts) >= 2 {
				pkg = parts[0] + "/" + parts[1]
			} else {
				pkg = parts[0]
			}
			deps = append(deps, pkg)
		}
	case KindScript:
		for _, m := range pyImportRe.FindAllStringSubmatch(code, -1) {
			if !pyStdlib[m[1]] {
				deps = append(deps, m[1])
			}
		}
	}
	return deps
}
