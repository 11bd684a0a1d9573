package generator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bentossell/fragg-sub002/internal/library"
	"github.com/bentossell/fragg-sub002/internal/llm"
	"github.com/bentossell/fragg-sub002/internal/logging"
	"github.com/bentossell/fragg-sub002/internal/metrics"
)

// Config tunes a Generator. Zero values select the defaults.
type Config struct {
	// CacheCapacity bounds the in-memory result cache (default 50)
	CacheCapacity int

	// Cache overrides the default in-memory FIFO cache entirely
	Cache ResultCache

	// Catalog overrides the built-in component catalog
	Catalog *library.Catalog
}

// Generator is the top-level generation pipeline. All state is instance
// state, injected through the constructor: no process-wide singletons, so
// callers get per-session isolation and tests get full control.
type Generator struct {
	backend Backend
	catalog *library.Catalog
	cache   ResultCache
	orch    *Orchestrator
	asm     *Assembler
	log     *zap.Logger
	metrics *metrics.Metrics

	// Last generated result per session, the iteration context.
	// Last-write-wins per session; single writer per session assumed.
	sessionMu sync.RWMutex
	sessions  map[string]*GenerationResult
}

// NewGenerator creates a generation pipeline over the given backend
func NewGenerator(backend Backend, cfg *Config) *Generator {
	if cfg == nil {
		cfg = &Config{}
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = library.NewCatalog()
	}
	cache := cfg.Cache
	if cache == nil {
		capacity := cfg.CacheCapacity
		if capacity == 0 {
			capacity = 50
		}
		cache = NewFIFOCacheWithHook(capacity, func() {
			metrics.Get().CacheEvictions.Inc()
		})
	}

	return &Generator{
		backend:  backend,
		catalog:  catalog,
		cache:    cache,
		orch:     NewOrchestrator(backend),
		asm:      NewAssembler(catalog),
		log:      logging.Named("generator"),
		metrics:  metrics.Get(),
		sessions: make(map[string]*GenerationResult),
	}
}

// GenerateApp runs the full pipeline for a prompt. It never returns nil and
// never panics across this boundary: in the worst case the caller receives a
// minimal starter app with the error recorded in metadata. Exactly one
// complete event is emitted per invocation on every path.
//
// existingCode, when non-empty, overrides the session's last generated code
// as the iteration context.
func (g *Generator) GenerateApp(ctx context.Context, sessionID, prompt, existingCode string, sink ProgressSink) *GenerationResult {
	if sink == nil {
		sink = NopSink{}
	}
	sessionID = normalizeSession(sessionID)

	g.metrics.GenerationsInFlight.Inc()
	defer g.metrics.GenerationsInFlight.Dec()

	prior := g.iterationContext(sessionID, existingCode)
	res := g.recovered(sessionID, prompt, func() *GenerationResult {
		if prior != nil && IsIterationRequest(prompt, prior.Code) {
			return g.iterate(ctx, sessionID, prompt, prior, sink)
		}
		return g.generate(ctx, sessionID, prompt, sink)
	})

	sink.Emit(completeEvent(res, strings.Join(res.Metadata.Errors, "; ")))
	return res
}

// GenerateWithDiffs runs only the iteration path against the given existing
// code, falling back to a full modify-regeneration when diffs cannot be
// produced or applied.
func (g *Generator) GenerateWithDiffs(ctx context.Context, sessionID, prompt, existingCode string, sink ProgressSink) *GenerationResult {
	if sink == nil {
		sink = NopSink{}
	}
	sessionID = normalizeSession(sessionID)

	prior := g.iterationContext(sessionID, existingCode)
	if prior == nil {
		prior = &GenerationResult{Code: existingCode, Template: TemplateFor(Triage(prompt).Stack)}
	}

	res := g.recovered(sessionID, prompt, func() *GenerationResult {
		return g.iterate(ctx, sessionID, prompt, prior, sink)
	})
	sink.Emit(completeEvent(res, strings.Join(res.Metadata.Errors, "; ")))
	return res
}

// recovered is the outermost defense shared by every public entry point: a
// contract violation anywhere in the pipeline becomes a fallback result built
// from local heuristics only, no network calls. The caller still emits its
// complete event, so the one-per-invocation guarantee holds on panics too.
func (g *Generator) recovered(sessionID, prompt string, fn func() *GenerationResult) (res *GenerationResult) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("pipeline panic, producing fallback result", zap.Any("panic", r))
			res = g.fallbackResult(prompt, fmt.Errorf("pipeline failure: %v", r))
			g.setLastResult(sessionID, res)
		}
	}()
	return fn()
}

// generate is the full from-scratch pipeline: cache, triage, components,
// fan-out, assembly, dependency extraction, cache store
func (g *Generator) generate(ctx context.Context, sessionID, prompt string, sink ProgressSink) *GenerationResult {
	start := time.Now()

	key := Fingerprint(prompt)
	if cached, ok := g.cache.Get(key); ok {
		g.metrics.CacheHitsTotal.Inc()
		cached.Metadata.CacheHits++
		g.log.Info("cache hit", zap.String("fingerprint", key))
		g.setLastResult(sessionID, cached)
		return cached
	}
	g.metrics.CacheMissesTotal.Inc()

	sink.Emit(triageEvent("analyzing", nil, 0))
	triageStart := time.Now()
	triage := Triage(prompt)
	triageTime := time.Since(triageStart)
	sink.Emit(triageEvent("complete", &triage, triageTime))

	g.log.Info("triage complete",
		zap.String("stack", string(triage.Stack)),
		zap.String("template", triage.Template),
		zap.Strings("components", triage.Components))

	components := g.catalog.GetComponents(triage.Components)
	actx := NewAgentContext(triage, prompt, components)

	genStart := time.Now()
	results := g.orch.RunAgents(ctx, actx, sink)
	genTime := time.Since(genStart)

	sink.Emit(assemblyEvent("assembling", len(results)))
	asmStart := time.Now()
	code, synthesized := g.asm.Assemble(results, triage, actx)
	asmTime := time.Since(asmStart)

	fallbacks := 0
	var errs []string
	for _, r := range results {
		if len(r.Errors) > 0 {
			fallbacks++
			errs = append(errs, r.Errors...)
		}
	}
	if synthesized {
		fallbacks++
	}

	res := &GenerationResult{
		Code:          code,
		Template:      triage.Template,
		Dependencies:  collectDependencies(results, triage.Stack),
		ExecutionTime: time.Since(start),
		AgentResults:  results,
		Metadata: ResultMetadata{
			TriageTime:     triageTime,
			GenerationTime: genTime,
			AssemblyTime:   asmTime,
			TotalAgents:    len(results),
			Errors:         errs,
			Fallbacks:      fallbacks,
		},
	}

	g.cache.Set(key, res)
	g.setLastResult(sessionID, res)
	g.metrics.ObserveGeneration(string(triage.Stack), time.Since(start))

	return res
}

// iterate is the diff-mode path: identify targets, request a minimal patch,
// apply it, and fall back to a full modify-regeneration on any failure
func (g *Generator) iterate(ctx context.Context, sessionID, prompt string, prior *GenerationResult, sink ProgressSink) *GenerationResult {
	start := time.Now()

	sections, confidence := identifySections(prompt, prior.Code)
	g.log.Info("iteration request",
		zap.Strings("sections", sections),
		zap.Float64("confidence", confidence))

	var diffs []CodeDiff
	var trigger []string
	resp, err := g.backend.Generate(ctx, &llm.Request{
		Prompt:      buildDiffPrompt(prompt, prior.Code, sections),
		Temperature: 0.1, // diffs must be precise, not creative
		MaxTokens:   2000,
	})
	if err != nil {
		trigger = append(trigger, "diff request failed: "+err.Error())
	} else {
		diffs = parseDiffs(resp.Content)
	}

	if len(diffs) > 0 {
		patched, applyErrs := ApplyDiffs(prior.Code, diffs)
		if len(applyErrs) == 0 {
			g.metrics.DiffAppliedTotal.Add(float64(len(diffs)))
			res := &GenerationResult{
				Code:          patched,
				Template:      prior.Template,
				Dependencies:  append([]string(nil), prior.Dependencies...),
				ExecutionTime: time.Since(start),
				Metadata: ResultMetadata{
					TotalAgents:  0,
					IsIteration:  true,
					DiffMode:     true,
					AppliedDiffs: len(diffs),
				},
			}
			g.setLastResult(sessionID, res)
			return res
		}
		g.log.Warn("diff application failed, regenerating", zap.Strings("errors", applyErrs))
		trigger = append(trigger, applyErrs...)
	} else if err == nil {
		g.log.Warn("no valid diffs parsed, regenerating")
		trigger = append(trigger, "no valid diffs in backend response")
	}

	return g.regenerate(ctx, sessionID, prompt, prior, start, trigger)
}

// regenerate is the iteration fallback: one full "modify this code" call
// seeded with the existing source, not the from-scratch pipeline. The diff
// errors that triggered the fallback ride along in the result metadata.
func (g *Generator) regenerate(ctx context.Context, sessionID, prompt string, prior *GenerationResult, start time.Time, trigger []string) *GenerationResult {
	g.metrics.DiffFallbackTotal.Inc()

	res := &GenerationResult{
		Code:          prior.Code,
		Template:      prior.Template,
		Dependencies:  append([]string(nil), prior.Dependencies...),
		ExecutionTime: time.Since(start),
		Metadata: ResultMetadata{
			IsIteration: true,
			DiffMode:    false,
			Fallbacks:   1,
			Errors:      append([]string(nil), trigger...),
		},
	}

	resp, err := g.backend.Generate(ctx, &llm.Request{
		Prompt:    buildRegeneratePrompt(prompt, prior.Code),
		MaxTokens: 4000,
	})
	if err != nil {
		// Existing code is still a usable result; record why it is unchanged
		res.Metadata.Errors = append(res.Metadata.Errors, err.Error())
		res.ExecutionTime = time.Since(start)
		g.setLastResult(sessionID, res)
		return res
	}

	if code := extractCode(resp.Content); code != "" {
		res.Code = code
	}
	res.ExecutionTime = time.Since(start)
	g.setLastResult(sessionID, res)
	return res
}

// fallbackResult builds a minimal valid result from local heuristics and
// the component library alone. Used when the pipeline itself failed.
func (g *Generator) fallbackResult(prompt string, cause error) *GenerationResult {
	g.metrics.FallbacksTotal.Inc()

	p := strings.ToLower(prompt)
	kind := library.StarterGeneric
	switch {
	case containsAny(p, "landing", "marketing", "portfolio"):
		kind = library.StarterLanding
	case containsAny(p, "dashboard", "admin", "analytics"):
		kind = library.StarterDashboard
	}

	return &GenerationResult{
		Code:     g.catalog.StarterTemplate(kind, detectComponents(p)),
		Template: TemplateFor(StackStaticHTML),
		Metadata: ResultMetadata{
			Fallbacks: 1,
			Errors:    []string{cause.Error()},
		},
	}
}

// stackDependencies are the fixed packages a stack always needs at runtime
func stackDependencies(stack Stack) []string {
	switch stack {
	case StackNextJS:
		return []string{"next", "react", "react-dom", "@types/react"}
	case StackStreamlit:
		return []string{"streamlit"}
	case StackGradio:
		return []string{"gradio"}
	default:
		return nil
	}
}

// collectDependencies unions agent-declared and stack-mandatory packages,
// deduplicated and sorted
func collectDependencies(results []AgentResult, stack Stack) []string {
	seen := map[string]bool{}
	var deps []string
	add := func(d string) {
		if d != "" && !seen[d] {
			seen[d] = true
			deps = append(deps, d)
		}
	}
	for _, r := range results {
		for _, d := range r.Dependencies {
			add(d)
		}
	}
	for _, d := range stackDependencies(stack) {
		add(d)
	}
	sort.Strings(deps)
	return deps
}

// CacheStats exposes result-cache introspection
func (g *Generator) CacheStats() CacheStats {
	return g.cache.Stats()
}

// ClearCache drops all cached results
func (g *Generator) ClearCache() {
	g.cache.Clear()
}

// LastGenerated returns the session's last generated result, or nil
func (g *Generator) LastGenerated(sessionID string) *GenerationResult {
	g.sessionMu.RLock()
	defer g.sessionMu.RUnlock()
	if res, ok := g.sessions[normalizeSession(sessionID)]; ok {
		return res.Clone()
	}
	return nil
}

func (g *Generator) iterationContext(sessionID, existingCode string) *GenerationResult {
	if existingCode != "" {
		prior := g.LastGenerated(sessionID)
		if prior != nil && prior.Code == existingCode {
			return prior
		}
		return &GenerationResult{Code: existingCode, Template: TemplateFor(StackStaticHTML)}
	}
	return g.LastGenerated(sessionID)
}

func (g *Generator) setLastResult(sessionID string, res *GenerationResult) {
	g.sessionMu.Lock()
	defer g.sessionMu.Unlock()
	g.sessions[sessionID] = res.Clone()
}

func normalizeSession(sessionID string) string {
	if sessionID == "" {
		return "default"
	}
	return sessionID
}
