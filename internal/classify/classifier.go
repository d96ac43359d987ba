// Package classify determines the format, intent, and routed agent of an
// inbound document. The model is consulted first; any failure falls back to
// a deterministic heuristic so classification always produces a result.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/dispatch/internal/prompts"
	"github.com/JaimeStill/dispatch/pkg/formatting"
	"github.com/JaimeStill/dispatch/pkg/llm"
)

const agentName = "ClassifierAgent"

// ErrMissingKeys indicates the model response omitted a required field.
var ErrMissingKeys = errors.New("classification missing required keys")

var tracer = otel.Tracer("github.com/JaimeStill/dispatch/internal/classify")

// Outcome carries the classification with the trace of how it was reached.
type Outcome struct {
	Classification
	Fallback bool
	Trace    []string
}

// Classifier classifies documents using a generative model.
type Classifier struct {
	client llm.Client
	logger *slog.Logger
}

// New creates a Classifier backed by client.
func New(client llm.Client, logger *slog.Logger) *Classifier {
	return &Classifier{
		client: client,
		logger: logger.With("system", "classify"),
	}
}

type response struct {
	Format      *string `json:"format"`
	Intent      *string `json:"intent"`
	RoutedAgent *string `json:"routed_agent"`
}

// Classify never returns an error. Capability failures, timeouts, and
// malformed responses produce the heuristic classification instead.
func (c *Classifier) Classify(ctx context.Context, in Input) Outcome {
	ctx, span := tracer.Start(ctx, "classify", trace.WithAttributes(
		attribute.String("source_type", string(in.Source)),
	))
	defer span.End()

	out := Outcome{}
	out.log("Starting classification for %s...", in.Source)
	out.log("Content snippet: %s", snippet(in.Text, 200))

	cls, err := c.classifyWithModel(ctx, in, &out)
	if err != nil {
		out.log("Error during model classification: %v. Attempting heuristic fallback.", err)
		c.logger.WarnContext(ctx, "classification fallback", "source_type", in.Source, "error", err)

		cls = Heuristic(in)
		out.Fallback = true
		out.log("Heuristic format inference: %s", cls.Format)
	}

	out.Classification = cls
	out.log("Final classification: format=%s intent=%s routed_agent=%s", cls.Format, cls.Intent, cls.RoutedAgent)

	span.SetAttributes(
		attribute.String("format", string(cls.Format)),
		attribute.String("intent", string(cls.Intent)),
		attribute.Bool("fallback", out.Fallback),
	)

	c.logger.InfoContext(
		ctx, "document classified",
		"format", cls.Format,
		"intent", cls.Intent,
		"routed_agent", cls.RoutedAgent,
		"fallback", out.Fallback,
	)

	return out
}

func (c *Classifier) classifyWithModel(ctx context.Context, in Input, out *Outcome) (Classification, error) {
	prompt, err := prompts.Compose(prompts.StageClassify, in.Text)
	if err != nil {
		return Classification{}, err
	}

	raw, err := c.client.Generate(ctx, prompt)
	if err != nil {
		return Classification{}, fmt.Errorf("generate: %w", err)
	}
	out.log("Model raw classification output: %s", raw)

	parsed, err := formatting.Parse[response](raw)
	if err != nil {
		return Classification{}, err
	}

	if parsed.Format == nil || parsed.Intent == nil || parsed.RoutedAgent == nil {
		return Classification{}, ErrMissingKeys
	}

	cls := Classification{
		Format:      ParseFormat(*parsed.Format),
		Intent:      ParseIntent(*parsed.Intent),
		RoutedAgent: ParseAgent(*parsed.RoutedAgent),
	}

	if string(cls.Format) != *parsed.Format {
		out.log("Invalid format %q from model. Setting to %s.", *parsed.Format, FormatUnknown)
	}
	if string(cls.Intent) != *parsed.Intent {
		out.log("Invalid intent %q from model. Setting to %s.", *parsed.Intent, IntentUnknown)
	}
	if string(cls.RoutedAgent) != *parsed.RoutedAgent {
		out.log("Invalid routed_agent %q from model. Setting to %s.", *parsed.RoutedAgent, AgentUnknown)
	}

	return cls, nil
}

func (o *Outcome) log(format string, args ...any) {
	o.Trace = append(o.Trace, fmt.Sprintf("[%s] ", agentName)+fmt.Sprintf(format, args...))
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
