package pipeline_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/dispatch/internal/classify"
	"github.com/JaimeStill/dispatch/internal/pipeline"
)

func TestFileInput(t *testing.T) {
	tests := []struct {
		filename string
		want     classify.SourceType
		wantErr  bool
	}{
		{"mail.eml", classify.SourceEmailFile, false},
		{"mail.MSG", classify.SourceEmailFile, false},
		{"scan.pdf", classify.SourcePDF, false},
		{"sheet.xlsx", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			in, err := pipeline.FileInput(tt.filename, []byte("data"), "")
			if tt.wantErr {
				if !errors.Is(err, pipeline.ErrUnsupportedFile) {
					t.Errorf("err = %v, want ErrUnsupportedFile", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FileInput: %v", err)
			}
			if in.Source != tt.want {
				t.Errorf("source = %q, want %q", in.Source, tt.want)
			}
			if in.Filename != tt.filename {
				t.Errorf("filename = %q, want %q", in.Filename, tt.filename)
			}
		})
	}
}

func TestJSONInput(t *testing.T) {
	in, err := pipeline.JSONInput(`{"invoice_number": "INV-1", "total_amount": 20}`)
	if err != nil {
		t.Fatalf("JSONInput: %v", err)
	}
	if in.Structured["invoice_number"] != "INV-1" {
		t.Errorf("structured = %v", in.Structured)
	}
	if in.Filename != pipeline.UnknownFilename {
		t.Errorf("filename = %q, want N/A", in.Filename)
	}

	arr, err := pipeline.JSONInput(`[1, 2, 3]`)
	if err != nil {
		t.Fatalf("JSONInput array: %v", err)
	}
	if arr.Structured != nil {
		t.Errorf("structured = %v, want nil for non-object", arr.Structured)
	}
	if !arr.IsStructured || !in.IsStructured {
		t.Errorf("is structured: object=%v array=%v, want both true", in.IsStructured, arr.IsStructured)
	}

	if _, err := pipeline.JSONInput(`not json`); !errors.Is(err, pipeline.ErrInvalidJSON) {
		t.Errorf("err = %v, want ErrInvalidJSON", err)
	}
}

func TestTextInput(t *testing.T) {
	in := pipeline.TextInput("Dear team")
	if in.Source != classify.SourceEmailText || in.Text != "Dear team" {
		t.Errorf("input = %+v", in)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{pipeline.ErrNoInput, 400},
		{pipeline.ErrUnsupportedFile, 400},
		{pipeline.ErrInvalidJSON, 400},
		{pipeline.ErrBatchTooLarge, 400},
		{pipeline.ErrFileTooLarge, 413},
		{pipeline.ErrCancelled, 503},
		{pipeline.ErrNotRecorded, 500},
		{errors.New("other"), 500},
	}

	for _, tt := range tests {
		if got := pipeline.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestJSONInputHeuristicFormat(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"object", `{"transaction_id":"T1"}`},
		{"array of objects", `[{"transaction_id":"T1"}]`},
		{"scalar", `"invoice attached as PDF document"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := pipeline.JSONInput(tt.raw)
			if err != nil {
				t.Fatalf("JSONInput: %v", err)
			}
			got := classify.Heuristic(classify.Input{
				Source:       in.Source,
				Text:         in.Text,
				IsStructured: in.IsStructured,
				Structured:   in.Structured,
				Filename:     in.Filename,
			})
			if got.Format != classify.FormatJSON || got.RoutedAgent != classify.AgentJSON {
				t.Errorf("heuristic = %+v, want JSON routed to JSONAgent", got)
			}
		})
	}
}
