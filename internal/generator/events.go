package generator

import "time"

// EventType tags a progress event
type EventType string

const (
	EventTriage        EventType = "triage"
	EventAgentStart    EventType = "agent_start"
	EventAgentComplete EventType = "agent_complete"
	EventAssembly      EventType = "assembly"
	EventComplete      EventType = "complete"
)

// Event is the tagged union delivered to progress sinks. Exactly one payload
// pointer matching Type is set.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	Triage        *TriageEvent        `json:"triage,omitempty"`
	AgentStart    *AgentStartEvent    `json:"agent_start,omitempty"`
	AgentComplete *AgentCompleteEvent `json:"agent_complete,omitempty"`
	Assembly      *AssemblyEvent      `json:"assembly,omitempty"`
	Complete      *CompleteEvent      `json:"complete,omitempty"`
}

// TriageEvent reports classification progress
type TriageEvent struct {
	Status   string        `json:"status"` // analyzing | complete
	Result   *TriageResult `json:"result,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// AgentStartEvent announces the agent set before fan-out
type AgentStartEvent struct {
	Agents            []string      `json:"agents"`
	Stack             Stack         `json:"stack"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
}

// AgentCompleteEvent reports one settled agent, emitted in completion order
type AgentCompleteEvent struct {
	Agent      string        `json:"agent"`
	Success    bool          `json:"success"`
	Duration   time.Duration `json:"duration"`
	CodeLength int           `json:"code_length"`
	Error      string        `json:"error,omitempty"`
}

// AssemblyEvent reports the assembly stage
type AssemblyEvent struct {
	Status     string `json:"status"`
	AgentCount int    `json:"agent_count"`
}

// CompleteEvent is the unconditional termination signal, emitted exactly
// once per generation regardless of success, failure, or fallback path
type CompleteEvent struct {
	Result *GenerationResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// ProgressSink receives pipeline events in strict stage order
type ProgressSink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the ProgressSink interface
type SinkFunc func(Event)

// Emit implements ProgressSink
func (f SinkFunc) Emit(e Event) { f(e) }

// NopSink discards all events
type NopSink struct{}

// Emit implements ProgressSink
func (NopSink) Emit(Event) {}

func newEvent(t EventType) Event {
	return Event{Type: t, Timestamp: time.Now()}
}

func triageEvent(status string, result *TriageResult, d time.Duration) Event {
	e := newEvent(EventTriage)
	e.Triage = &TriageEvent{Status: status, Result: result, Duration: d}
	return e
}

func agentStartEvent(agents []string, stack Stack, estimate time.Duration) Event {
	e := newEvent(EventAgentStart)
	e.AgentStart = &AgentStartEvent{Agents: agents, Stack: stack, EstimatedDuration: estimate}
	return e
}

func agentCompleteEvent(res *AgentResult) Event {
	e := newEvent(EventAgentComplete)
	payload := &AgentCompleteEvent{
		Agent:      res.AgentName,
		Success:    len(res.Errors) == 0,
		Duration:   res.ExecutionTime,
		CodeLength: len(res.Code),
	}
	if len(res.Errors) > 0 {
		payload.Error = res.Errors[0]
	}
	e.AgentComplete = payload
	return e
}

func assemblyEvent(status string, agentCount int) Event {
	e := newEvent(EventAssembly)
	e.Assembly = &AssemblyEvent{Status: status, AgentCount: agentCount}
	return e
}

func completeEvent(result *GenerationResult, errMsg string) Event {
	e := newEvent(EventComplete)
	e.Complete = &CompleteEvent{Result: result, Error: errMsg}
	return e
}
