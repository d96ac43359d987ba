// Package extract runs the format-specific extraction stage: each extractor
// pulls structured fields from a document, records a decision trace, and
// proposes at most one chained action for the resolver.
package extract

import (
	"context"
	"fmt"

	"github.com/JaimeStill/dispatch/internal/classify"
)

// ChainedAction is an extractor's recommended follow-up. Empty means none.
type ChainedAction string

// Chained actions produced by the extractors.
const (
	ActionNone                 ChainedAction = ""
	ActionEscalateCRM          ChainedAction = "Escalate to CRM"
	ActionFlagRiskEscalate     ChainedAction = "Flag Risk and Escalate"
	ActionLogAndClose          ChainedAction = "Log and Close"
	ActionLogAnomaly           ChainedAction = "Log Anomaly"
	ActionProcessJSON          ChainedAction = "Process JSON Data"
	ActionFlagFraudRisk        ChainedAction = "Flag Fraud Risk"
	ActionFlagHighValueInvoice ChainedAction = "Flag High Value Invoice"
	ActionProcessInvoice       ChainedAction = "Process Invoice"
	ActionFlagComplianceRisk   ChainedAction = "Flag Compliance Risk"
	ActionProcessPolicy        ChainedAction = "Process Policy Document"
	ActionReviewPDF            ChainedAction = "Review PDF Manually"
)

// Content is the document handed to an extractor.
type Content struct {
	Source     classify.SourceType
	Filename   string
	Text       string
	Structured map[string]any
	Data       []byte
}

// Result is the output of one extraction stage.
type Result struct {
	ExtractedFields map[string]any `json:"extracted_data"`
	DecisionTrace   []string       `json:"decision_trace"`
	ChainedAction   ChainedAction  `json:"chained_action,omitempty"`
	TriggerContext  TriggerContext `json:"action_trigger_data"`
}

// Extractor processes documents routed to one agent. Process never returns
// an error; failures are captured in the Result.
type Extractor interface {
	Agent() classify.Agent
	Process(ctx context.Context, in Content, cls classify.Classification) Result
}

// Registry maps routed agents to their extractor.
type Registry map[classify.Agent]Extractor

// NewRegistry indexes extractors by agent.
func NewRegistry(extractors ...Extractor) Registry {
	r := make(Registry, len(extractors))
	for _, e := range extractors {
		r[e.Agent()] = e
	}
	return r
}

// For returns the extractor for agent, if one is registered.
func (r Registry) For(agent classify.Agent) (Extractor, bool) {
	e, ok := r[agent]
	return e, ok
}

type tracer struct {
	agent classify.Agent
	lines []string
}

func (t *tracer) log(format string, args ...any) {
	t.lines = append(t.lines, fmt.Sprintf("[%s] ", t.agent)+fmt.Sprintf(format, args...))
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
