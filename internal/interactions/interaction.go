// Package interactions implements the append-only audit history of pipeline
// runs. Each run writes at most one record; records are never updated.
package interactions

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/dispatch/internal/classify"
	"github.com/JaimeStill/dispatch/internal/extract"
)

// InputMetadata describes the inbound document of a run.
type InputMetadata struct {
	RunID       uuid.UUID           `json:"run_id"`
	SourceType  classify.SourceType `json:"source_type"`
	Filename    string              `json:"filename"`
	StorageKey  string              `json:"storage_key,omitempty"`
	ContentType string              `json:"content_type,omitempty"`
	SizeBytes   int64               `json:"size_bytes"`
	PageCount   *int                `json:"page_count,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

// AgentOutput is the extraction stage output attributed to one agent.
type AgentOutput struct {
	AgentName              classify.Agent        `json:"agent_name"`
	ExtractedData          map[string]any        `json:"extracted_data"`
	DecisionTrace          []string              `json:"decision_trace"`
	ChainedActionTriggered extract.ChainedAction `json:"chained_action_triggered,omitempty"`
}

// Interaction is one persisted pipeline run.
type Interaction struct {
	ID             int64                          `json:"id"`
	Timestamp      time.Time                      `json:"timestamp"`
	InputMetadata  InputMetadata                  `json:"input_metadata"`
	Classification classify.Classification        `json:"classification"`
	AgentOutputs   map[classify.Agent]AgentOutput `json:"agent_outputs"`
	ChainedActions []string                       `json:"chained_actions"`
	DecisionTraces []string                       `json:"decision_traces"`
}

// AppendCommand carries a completed run to the store.
type AppendCommand struct {
	InputMetadata  InputMetadata
	Classification classify.Classification
	AgentOutputs   map[classify.Agent]AgentOutput
	ChainedActions []string
	DecisionTraces []string
}
