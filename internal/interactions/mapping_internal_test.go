package interactions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/dispatch/internal/classify"
	"github.com/JaimeStill/dispatch/internal/extract"
	"github.com/JaimeStill/dispatch/pkg/query"
)

// rowScanner replays a row in column order into Scan destinations.
type rowScanner struct {
	values []any
}

func (r rowScanner) Scan(dest ...any) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(r.values))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d).Elem()
		v := reflect.ValueOf(r.values[i])
		if !v.Type().AssignableTo(dv.Type()) {
			return fmt.Errorf("scan column %d: %s into %s", i, v.Type(), dv.Type())
		}
		dv.Set(v)
	}
	return nil
}

// rowFromArgs lays out insert arguments the way RETURNING yields them.
func rowFromArgs(id int64, created time.Time, args []any) rowScanner {
	values := append([]any{id, args[0], created}, args[1:]...)
	return rowScanner{values: values}
}

func appendCommand() AppendCommand {
	pages := 2
	return AppendCommand{
		InputMetadata: InputMetadata{
			RunID:      uuid.MustParse("0c1d2e3f-4a5b-4c6d-8e7f-8091a2b3c4d5"),
			SourceType: classify.SourcePDF,
			Filename:   "invoice-0042.pdf",
			SizeBytes:  2048,
			PageCount:  &pages,
			Timestamp:  time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		},
		Classification: classify.Classification{
			Format:      classify.FormatPDF,
			Intent:      classify.IntentInvoice,
			RoutedAgent: classify.AgentPDF,
		},
		AgentOutputs: map[classify.Agent]AgentOutput{
			classify.AgentPDF: {
				AgentName:              classify.AgentPDF,
				ExtractedData:          map[string]any{"total": 12500.5, "currency": "USD"},
				DecisionTrace:          []string{"Text extracted from PDF."},
				ChainedActionTriggered: extract.ActionFlagHighValueInvoice,
			},
		},
		ChainedActions: []string{"Flag High Value Invoice", "Risk alert sent"},
		DecisionTraces: []string{"classified as PDF/Invoice", "routed to PDFAgent"},
	}
}

func TestInsertScanRoundTrip(t *testing.T) {
	cmd := appendCommand()
	args, err := insertArgs(cmd)
	if err != nil {
		t.Fatalf("insertArgs error: %v", err)
	}
	if len(args) != 11 {
		t.Fatalf("args: got %d, want 11", len(args))
	}

	created := time.Date(2026, 3, 1, 9, 30, 1, 0, time.UTC)
	got, err := scanInteraction(rowFromArgs(7, created, args))
	if err != nil {
		t.Fatalf("scanInteraction error: %v", err)
	}

	if got.ID != 7 || !got.Timestamp.Equal(created) {
		t.Errorf("identity: got id=%d ts=%v", got.ID, got.Timestamp)
	}
	if got.InputMetadata.RunID != cmd.InputMetadata.RunID {
		t.Errorf("run id: got %s", got.InputMetadata.RunID)
	}
	if got.InputMetadata.PageCount == nil || *got.InputMetadata.PageCount != 2 {
		t.Errorf("page count: got %v", got.InputMetadata.PageCount)
	}
	if got.Classification != cmd.Classification {
		t.Errorf("classification: got %+v", got.Classification)
	}
	if !reflect.DeepEqual(got.ChainedActions, cmd.ChainedActions) {
		t.Errorf("chained actions: got %v", got.ChainedActions)
	}
	if !reflect.DeepEqual(got.DecisionTraces, cmd.DecisionTraces) {
		t.Errorf("decision traces: got %v", got.DecisionTraces)
	}

	out, ok := got.AgentOutputs[classify.AgentPDF]
	if !ok {
		t.Fatalf("agent outputs: missing %s in %v", classify.AgentPDF, got.AgentOutputs)
	}
	if out.ChainedActionTriggered != extract.ActionFlagHighValueInvoice {
		t.Errorf("chained action triggered: got %q", out.ChainedActionTriggered)
	}
	if out.ExtractedData["total"] != 12500.5 || out.ExtractedData["currency"] != "USD" {
		t.Errorf("extracted data: got %v", out.ExtractedData)
	}

	if final := args[6]; final != "Risk alert sent" {
		t.Errorf("final action: got %v", final)
	}
}

func TestInsertArgsEmptyCollections(t *testing.T) {
	cmd := appendCommand()
	cmd.AgentOutputs = nil
	cmd.ChainedActions = nil
	cmd.DecisionTraces = nil

	args, err := insertArgs(cmd)
	if err != nil {
		t.Fatalf("insertArgs error: %v", err)
	}

	want := map[int]string{8: "{}", 9: "[]", 10: "[]"}
	for i, w := range want {
		if got := string(args[i].([]byte)); got != w {
			t.Errorf("arg %d: got %s, want %s", i, got, w)
		}
	}
	if args[6] != "" {
		t.Errorf("final action: got %q, want empty", args[6])
	}
}

func TestScanCoercesUnknownEnums(t *testing.T) {
	args, err := insertArgs(appendCommand())
	if err != nil {
		t.Fatalf("insertArgs error: %v", err)
	}
	args[3] = "Spreadsheet"
	args[4] = "Chit-chat"
	args[5] = "LegacyAgent"

	got, err := scanInteraction(rowFromArgs(1, time.Now(), args))
	if err != nil {
		t.Fatalf("scanInteraction error: %v", err)
	}
	if got.Classification != classify.Unknown() {
		t.Errorf("classification: got %+v, want all Unknown", got.Classification)
	}
}

func TestScanInteractionErrors(t *testing.T) {
	args, err := insertArgs(appendCommand())
	if err != nil {
		t.Fatalf("insertArgs error: %v", err)
	}

	tests := []struct {
		name   string
		column int
		value  []byte
		want   string
	}{
		{"input metadata", 7, []byte(`{`), "decode input_metadata"},
		{"agent outputs", 8, []byte(`[1]`), "decode agent_outputs"},
		{"chained actions", 9, []byte(`"x"`), "decode chained_actions"},
		{"decision traces", 10, []byte(`nope`), "decode decision_traces"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := append([]any(nil), args...)
			row[tt.column] = tt.value
			_, err := scanInteraction(rowFromArgs(1, time.Now(), row))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error: got %v, want %q", err, tt.want)
			}
		})
	}
}

func TestInsertArgsStripsNUL(t *testing.T) {
	cmd := appendCommand()
	cmd.InputMetadata.Filename = "scan\x00.pdf"
	cmd.DecisionTraces = []string{"page 1\x00\x00 text", `literal \u0000 stays`}
	cmd.ChainedActions = []string{"Log\x00 Anomaly"}
	cmd.AgentOutputs[classify.AgentPDF].ExtractedData["raw"] = "a\x00b"

	args, err := insertArgs(cmd)
	if err != nil {
		t.Fatalf("insertArgs error: %v", err)
	}

	for i, a := range args {
		switch v := a.(type) {
		case string:
			if strings.ContainsRune(v, 0) {
				t.Errorf("arg %d: text column still holds NUL: %q", i, v)
			}
		case []byte:
			if !json.Valid(v) {
				t.Errorf("arg %d: invalid json after stripping: %s", i, v)
			}
			if bytes.Contains(bytes.ReplaceAll(v, []byte(`\\`), nil), []byte(`\u0000`)) {
				t.Errorf("arg %d: jsonb still holds escaped NUL: %s", i, v)
			}
		}
	}

	if args[2] != "scan.pdf" {
		t.Errorf("filename: got %q", args[2])
	}
	if args[6] != "Log Anomaly" {
		t.Errorf("final action: got %q", args[6])
	}

	got, err := scanInteraction(rowFromArgs(1, time.Now(), args))
	if err != nil {
		t.Fatalf("scanInteraction error: %v", err)
	}
	wantTraces := []string{"page 1 text", `literal \u0000 stays`}
	if !reflect.DeepEqual(got.DecisionTraces, wantTraces) {
		t.Errorf("decision traces: got %q, want %q", got.DecisionTraces, wantTraces)
	}
	if got.InputMetadata.Filename != "scan.pdf" {
		t.Errorf("metadata filename: got %q", got.InputMetadata.Filename)
	}
	if raw := got.AgentOutputs[classify.AgentPDF].ExtractedData["raw"]; raw != "ab" {
		t.Errorf("extracted raw: got %q", raw)
	}
}

func TestFiltersApply(t *testing.T) {
	runID := uuid.MustParse("0c1d2e3f-4a5b-4c6d-8e7f-8091a2b3c4d5")
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	str := func(s string) *string { return &s }

	tests := []struct {
		name      string
		filters   Filters
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "empty",
			filters:   Filters{},
			wantWhere: "",
			wantArgs:  nil,
		},
		{
			name:      "run id and format",
			filters:   Filters{RunID: &runID, Format: str("PDF")},
			wantWhere: " WHERE i.run_id = $1 AND i.format = $2",
			wantArgs:  []any{&runID, str("PDF")},
		},
		{
			name: "every filter",
			filters: Filters{
				RunID:       &runID,
				SourceType:  str("pdf"),
				Filename:    str("invoice"),
				Format:      str("PDF"),
				Intent:      str("Invoice"),
				RoutedAgent: str("PDFAgent"),
				Since:       &since,
				Until:       &until,
			},
			wantWhere: " WHERE i.run_id = $1 AND i.source_type = $2 AND i.filename ILIKE $3" +
				" AND i.format = $4 AND i.intent = $5 AND i.routed_agent = $6" +
				" AND i.created_at >= $7 AND i.created_at < $8",
			wantArgs: []any{&runID, str("pdf"), "%invoice%", str("PDF"), str("Invoice"), str("PDFAgent"), &since, &until},
		},
		{
			name:      "empty filename skipped",
			filters:   Filters{Filename: str(""), Intent: str("RFQ")},
			wantWhere: " WHERE i.intent = $1",
			wantArgs:  []any{str("RFQ")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.filters.Apply(query.NewBuilder(projection))
			sql, args := b.BuildCount()

			want := "SELECT COUNT(*) FROM public.interactions i" + tt.wantWhere
			if sql != want {
				t.Errorf("sql:\n got %s\nwant %s", sql, want)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args: got %v, want %v", args, tt.wantArgs)
			}
		})
	}
}
