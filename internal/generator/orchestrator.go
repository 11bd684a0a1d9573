package generator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bentossell/fragg-sub002/internal/logging"
	"github.com/bentossell/fragg-sub002/internal/metrics"
)

// Orchestrator runs the agent set for a stack concurrently and collects
// every result, converting individual failures instead of propagating them.
type Orchestrator struct {
	backend Backend
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewOrchestrator creates an orchestrator over the given backend
func NewOrchestrator(backend Backend) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		log:     logging.Named("orchestrator"),
		metrics: metrics.Get(),
	}
}

// RunAgents selects the agent set for the context's stack, invokes all
// agents concurrently, and waits for every one to settle. No agent failure
// aborts its siblings: a panic or error becomes a failed AgentResult with
// empty code and populated Errors. agent_complete events are emitted in
// completion order, which is nondeterministic.
func (o *Orchestrator) RunAgents(ctx context.Context, actx *AgentContext, sink ProgressSink) []AgentResult {
	agents := agentSetForStack(actx.Triage.Stack, o.backend)

	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name()
	}
	sink.Emit(agentStartEvent(names, actx.Triage.Stack, estimateDuration(actx.Triage.Requirements.Complexity)))

	o.log.Info("agent fan-out",
		zap.Strings("agents", names),
		zap.String("stack", string(actx.Triage.Stack)))

	// Fan-out: results arrive on the channel in completion order
	resultCh := make(chan *AgentResult, len(agents))
	for _, agent := range agents {
		go func(a Agent) {
			resultCh <- o.invoke(ctx, a, actx)
		}(agent)
	}

	// Fan-in: wait for all agents to settle, emitting completion events as
	// they arrive. The sink is only touched from this goroutine.
	results := make([]AgentResult, 0, len(agents))
	for i := 0; i < len(agents); i++ {
		res := <-resultCh
		sink.Emit(agentCompleteEvent(res))
		o.metrics.ObserveAgentRun(res.AgentName, len(res.Errors) == 0, res.ExecutionTime)
		results = append(results, *res)
	}

	return results
}

// invoke wraps a single agent call: a returned error or a panic is converted
// into a well-formed failed AgentResult at the call site.
func (o *Orchestrator) invoke(ctx context.Context, agent Agent, actx *AgentContext) (res *AgentResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("agent panicked",
				zap.String("agent", agent.Name()),
				zap.Any("panic", r))
			res = &AgentResult{
				AgentName:     agent.Name(),
				Kind:          agent.Kind(),
				ExecutionTime: time.Since(start),
				Errors:        []string{fmt.Sprintf("panic: %v", r)},
			}
		}
	}()

	result, err := agent.Generate(ctx, actx)
	if err != nil {
		o.log.Warn("agent failed",
			zap.String("agent", agent.Name()),
			zap.Error(err))
		return &AgentResult{
			AgentName:     agent.Name(),
			Kind:          agent.Kind(),
			ExecutionTime: time.Since(start),
			Errors:        []string{err.Error()},
		}
	}

	if result.ExecutionTime == 0 {
		result.ExecutionTime = time.Since(start)
	}
	return result
}

// estimateDuration is the up-front wall-clock estimate announced before
// fan-out; concurrency bounds the stage by the slowest agent, not the sum
func estimateDuration(c Complexity) time.Duration {
	switch c {
	case ComplexityComplex:
		return 30 * time.Second
	case ComplexityMedium:
		return 20 * time.Second
	default:
		return 10 * time.Second
	}
}
