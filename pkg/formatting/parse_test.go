package formatting_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/JaimeStill/dispatch/pkg/formatting"
)

type verdict struct {
	Format string `json:"format"`
	Intent string `json:"intent"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    verdict
	}{
		{"bare object", `{"format":"Email","intent":"Complaint"}`, verdict{"Email", "Complaint"}},
		{"padded", "  \n{\"format\":\"PDF\",\"intent\":\"Invoice\"}\n ", verdict{"PDF", "Invoice"}},
		{"json fence", "```json\n{\"format\":\"JSON\",\"intent\":\"Fraud Risk\"}\n```", verdict{"JSON", "Fraud Risk"}},
		{"untagged fence", "```\n{\"format\":\"Email\",\"intent\":\"RFQ\"}\n```", verdict{"Email", "RFQ"}},
		{"fence in prose", "Result:\n```json\n{\"format\":\"PDF\",\"intent\":\"Regulation\"}\n```\nDone.", verdict{"PDF", "Regulation"}},
		{"object in prose", `Sure. {"format":"Email","intent":"Invoice"} Let me know.`, verdict{"Email", "Invoice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[verdict](tt.content)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"prose", "I could not determine the format."},
		{"empty", ""},
		{"broken fence", "```json\n{broken\n```"},
		{"unbalanced", "{ \"format\": "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := formatting.Parse[verdict](tt.content)
			if !errors.Is(err, formatting.ErrParseFailed) {
				t.Errorf("error = %v, want ErrParseFailed", err)
			}
		})
	}
}

func TestParseTruncatesEcho(t *testing.T) {
	_, err := formatting.Parse[verdict](strings.Repeat("z", 1000))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Error()) > 300 {
		t.Errorf("error length %d, want truncated content", len(err.Error()))
	}
	if !strings.HasSuffix(err.Error(), "...") {
		t.Errorf("error %q missing ellipsis", err.Error())
	}
}

func TestParseGenericTargets(t *testing.T) {
	fields, err := formatting.Parse[map[string]any](`{"invoice_number":"INV-1"}`)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if fields["invoice_number"] != "INV-1" {
		t.Errorf("invoice_number = %v", fields["invoice_number"])
	}

	items, err := formatting.Parse[[]string](`["a","b"]`)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("items = %v", items)
	}
}
