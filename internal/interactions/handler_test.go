package interactions_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/dispatch/internal/classify"
	"github.com/JaimeStill/dispatch/internal/extract"
	"github.com/JaimeStill/dispatch/internal/interactions"
	"github.com/JaimeStill/dispatch/pkg/pagination"
)

type mockSystem struct {
	appendFn func(ctx context.Context, cmd interactions.AppendCommand) (*interactions.Interaction, error)
	latestFn func(ctx context.Context) (*interactions.Interaction, error)
	findFn   func(ctx context.Context, id int64) (*interactions.Interaction, error)
	listFn   func(ctx context.Context, page pagination.PageRequest, filters interactions.Filters) (*pagination.PageResult[interactions.Interaction], error)
}

func (m *mockSystem) Handler() *interactions.Handler {
	return newTestHandler(m)
}

func (m *mockSystem) Append(ctx context.Context, cmd interactions.AppendCommand) (*interactions.Interaction, error) {
	return m.appendFn(ctx, cmd)
}

func (m *mockSystem) Latest(ctx context.Context) (*interactions.Interaction, error) {
	return m.latestFn(ctx)
}

func (m *mockSystem) Find(ctx context.Context, id int64) (*interactions.Interaction, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters interactions.Filters) (*pagination.PageResult[interactions.Interaction], error) {
	return m.listFn(ctx, page, filters)
}

func newTestHandler(sys interactions.System) *interactions.Handler {
	return interactions.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
}

func setupMux(h *interactions.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		mux.HandleFunc(route.Method+" "+group.Prefix+route.Pattern, route.Handler)
	}
	return mux
}

func sampleInteraction() interactions.Interaction {
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return interactions.Interaction{
		ID:        7,
		Timestamp: ts,
		InputMetadata: interactions.InputMetadata{
			RunID:      uuid.MustParse("9b2f7c1e-3d4a-4e5f-8a6b-7c8d9e0f1a2b"),
			SourceType: classify.SourceJSON,
			Filename:   "N/A",
			Timestamp:  ts,
		},
		Classification: classify.Classification{
			Format:      classify.FormatJSON,
			Intent:      classify.IntentFraudRisk,
			RoutedAgent: classify.AgentJSON,
		},
		AgentOutputs: map[classify.Agent]interactions.AgentOutput{
			classify.AgentJSON: {
				AgentName:              classify.AgentJSON,
				ExtractedData:          map[string]any{"risk_score": 0.95},
				DecisionTrace:          []string{"[JSONAgent] High fraud risk score detected."},
				ChainedActionTriggered: extract.ActionFlagFraudRisk,
			},
		},
		ChainedActions: []string{"Risk alert simulated: {}"},
		DecisionTraces: []string{"Classifier Agent: Processing input type: json"},
	}
}

func TestHandlerLatest(t *testing.T) {
	t.Run("returns newest record", func(t *testing.T) {
		want := sampleInteraction()
		mux := setupMux(newTestHandler(&mockSystem{
			latestFn: func(context.Context) (*interactions.Interaction, error) { return &want, nil },
		}))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/interactions/latest", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var got interactions.Interaction
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != want.ID || got.Classification != want.Classification {
			t.Errorf("got %+v", got)
		}
		out, ok := got.AgentOutputs[classify.AgentJSON]
		if !ok || out.ChainedActionTriggered != extract.ActionFlagFraudRisk {
			t.Errorf("agent outputs = %+v", got.AgentOutputs)
		}
	})

	t.Run("empty store returns 404", func(t *testing.T) {
		mux := setupMux(newTestHandler(&mockSystem{
			latestFn: func(context.Context) (*interactions.Interaction, error) { return nil, interactions.ErrNotFound },
		}))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/interactions/latest", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandlerFind(t *testing.T) {
	want := sampleInteraction()
	sys := &mockSystem{
		findFn: func(_ context.Context, id int64) (*interactions.Interaction, error) {
			if id != want.ID {
				return nil, interactions.ErrNotFound
			}
			return &want, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/interactions/7", http.StatusOK},
		{"missing", "/interactions/8", http.StatusNotFound},
		{"not a number", "/interactions/abc", http.StatusBadRequest},
		{"zero", "/interactions/0", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerList(t *testing.T) {
	var captured interactions.Filters
	var capturedPage pagination.PageRequest
	sys := &mockSystem{
		listFn: func(_ context.Context, page pagination.PageRequest, f interactions.Filters) (*pagination.PageResult[interactions.Interaction], error) {
			captured = f
			capturedPage = page
			result := pagination.NewPageResult([]interactions.Interaction{sampleInteraction()}, 1, page.Page, page.PageSize)
			return &result, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/interactions?intent=Invoice&page_size=500", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured.Intent == nil || *captured.Intent != "Invoice" {
		t.Errorf("intent filter = %v", captured.Intent)
	}
	if capturedPage.PageSize != 100 {
		t.Errorf("page size = %d, want clamped 100", capturedPage.PageSize)
	}

	var result pagination.PageResult[interactions.Interaction]
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Total != 1 || len(result.Data) != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestHandlerSearch(t *testing.T) {
	var captured interactions.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, page pagination.PageRequest, f interactions.Filters) (*pagination.PageResult[interactions.Interaction], error) {
			captured = f
			result := pagination.NewPageResult([]interactions.Interaction{}, 0, page.Page, page.PageSize)
			return &result, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	t.Run("decodes filters", func(t *testing.T) {
		body := `{"page":1,"routed_agent":"EmailAgent","since":"2026-03-01T00:00:00Z"}`
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/interactions/search", bytes.NewBufferString(body)))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if captured.RoutedAgent == nil || *captured.RoutedAgent != "EmailAgent" {
			t.Errorf("routed_agent = %v", captured.RoutedAgent)
		}
		if captured.Since == nil {
			t.Error("since not decoded")
		}
	})

	t.Run("invalid body returns 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/interactions/search", bytes.NewBufferString("{")))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}
