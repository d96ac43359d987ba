package interactions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/dispatch/internal/classify"
	"github.com/JaimeStill/dispatch/pkg/query"
	"github.com/JaimeStill/dispatch/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "interactions", "i").
	Project("id", "ID").
	Project("run_id", "RunID").
	Project("created_at", "Timestamp").
	Project("source_type", "SourceType").
	Project("filename", "Filename").
	Project("format", "Format").
	Project("intent", "Intent").
	Project("routed_agent", "RoutedAgent").
	Project("final_action", "FinalAction").
	Project("input_metadata", "InputMetadata").
	Project("agent_outputs", "AgentOutputs").
	Project("chained_actions", "ChainedActions").
	Project("decision_traces", "DecisionTraces")

const returning = "id, run_id, created_at, source_type, filename, format, intent, routed_agent, final_action, input_metadata, agent_outputs, chained_actions, decision_traces"

var defaultSort = query.SortField{
	Field:      "ID",
	Descending: true,
}

// Filters contains optional filtering criteria for interaction queries.
// Nil fields are ignored. Filename uses case-insensitive contains matching;
// Since is inclusive and Until is exclusive.
type Filters struct {
	RunID       *uuid.UUID `json:"run_id,omitempty"`
	SourceType  *string    `json:"source_type,omitempty"`
	Filename    *string    `json:"filename,omitempty"`
	Format      *string    `json:"format,omitempty"`
	Intent      *string    `json:"intent,omitempty"`
	RoutedAgent *string    `json:"routed_agent,omitempty"`
	Since       *time.Time `json:"since,omitempty"`
	Until       *time.Time `json:"until,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("RunID", f.RunID).
		WhereEquals("SourceType", f.SourceType).
		WhereContains("Filename", f.Filename).
		WhereEquals("Format", f.Format).
		WhereEquals("Intent", f.Intent).
		WhereEquals("RoutedAgent", f.RoutedAgent).
		WhereAtLeast("Timestamp", f.Since).
		WhereBefore("Timestamp", f.Until)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Malformed run_id, since, and until values are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if v := values.Get("run_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.RunID = &id
		}
	}

	str := func(key string) *string {
		if v := values.Get(key); v != "" {
			return &v
		}
		return nil
	}

	f.SourceType = str("source_type")
	f.Filename = str("filename")
	f.Format = str("format")
	f.Intent = str("intent")
	f.RoutedAgent = str("routed_agent")

	if v := values.Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.Since = &t
		}
	}
	if v := values.Get("until"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.Until = &t
		}
	}

	return f
}

// finalAction is the indexed summary of the resolved action status.
func finalAction(actions []string) string {
	if len(actions) == 0 {
		return ""
	}
	return actions[len(actions)-1]
}

func insertArgs(cmd AppendCommand) ([]any, error) {
	meta, err := marshalJSONB(cmd.InputMetadata)
	if err != nil {
		return nil, fmt.Errorf("marshal input metadata: %w", err)
	}

	outputs := cmd.AgentOutputs
	if outputs == nil {
		outputs = map[classify.Agent]AgentOutput{}
	}
	agentOutputs, err := marshalJSONB(outputs)
	if err != nil {
		return nil, fmt.Errorf("marshal agent outputs: %w", err)
	}

	chained, err := marshalJSONB(nonNil(cmd.ChainedActions))
	if err != nil {
		return nil, fmt.Errorf("marshal chained actions: %w", err)
	}

	traces, err := marshalJSONB(nonNil(cmd.DecisionTraces))
	if err != nil {
		return nil, fmt.Errorf("marshal decision traces: %w", err)
	}

	return []any{
		cmd.InputMetadata.RunID,
		string(cmd.InputMetadata.SourceType),
		stripNUL(cmd.InputMetadata.Filename),
		string(cmd.Classification.Format),
		string(cmd.Classification.Intent),
		string(cmd.Classification.RoutedAgent),
		stripNUL(finalAction(cmd.ChainedActions)),
		meta,
		agentOutputs,
		chained,
		traces,
	}, nil
}

// Postgres rejects NUL in TEXT values and \u0000 in jsonb.
func stripNUL(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// marshalJSONB encodes v and drops every escaped NUL. Document text and
// model output can carry NULs that would fail the whole insert.
func marshalJSONB(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	const nul = `\u0000`
	if !bytes.Contains(b, []byte(nul)) {
		return b, nil
	}

	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' {
			out = append(out, b[i])
			continue
		}
		if bytes.HasPrefix(b[i:], []byte(nul)) {
			i += len(nul) - 1
			continue
		}
		// Copy the escape pair so an escaped backslash is never read as
		// the start of \u0000.
		out = append(out, b[i], b[i+1])
		i++
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanInteraction(s repository.Scanner) (Interaction, error) {
	var (
		i                                           Interaction
		runID                                       uuid.UUID
		sourceType, filename, final                 string
		format, intent, agent                       string
		meta, agentOutputs, chained, decisionTraces []byte
	)

	err := s.Scan(
		&i.ID,
		&runID,
		&i.Timestamp,
		&sourceType,
		&filename,
		&format,
		&intent,
		&agent,
		&final,
		&meta,
		&agentOutputs,
		&chained,
		&decisionTraces,
	)
	if err != nil {
		return i, err
	}

	if err := json.Unmarshal(meta, &i.InputMetadata); err != nil {
		return i, fmt.Errorf("decode input_metadata: %w", err)
	}
	if err := json.Unmarshal(agentOutputs, &i.AgentOutputs); err != nil {
		return i, fmt.Errorf("decode agent_outputs: %w", err)
	}
	if err := json.Unmarshal(chained, &i.ChainedActions); err != nil {
		return i, fmt.Errorf("decode chained_actions: %w", err)
	}
	if err := json.Unmarshal(decisionTraces, &i.DecisionTraces); err != nil {
		return i, fmt.Errorf("decode decision_traces: %w", err)
	}

	i.InputMetadata.RunID = runID
	i.Classification = classify.Classification{
		Format:      classify.ParseFormat(format),
		Intent:      classify.ParseIntent(intent),
		RoutedAgent: classify.ParseAgent(agent),
	}

	return i, nil
}
