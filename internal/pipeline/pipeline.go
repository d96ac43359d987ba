// Package pipeline orchestrates a run over one inbound document:
// classify, extract, resolve the follow-up action, then record the run.
// Stages execute strictly in that order on the caller's goroutine.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/dispatch/internal/actions"
	"github.com/JaimeStill/dispatch/internal/classify"
	"github.com/JaimeStill/dispatch/internal/extract"
	"github.com/JaimeStill/dispatch/internal/interactions"
	"github.com/JaimeStill/dispatch/pkg/textract"
)

var tracer = otel.Tracer("github.com/JaimeStill/dispatch/internal/pipeline")

// Classifier assigns format, intent, and routed agent to an input.
type Classifier interface {
	Classify(ctx context.Context, in classify.Input) classify.Outcome
}

// Resolver selects and executes the follow-up action.
type Resolver interface {
	Resolve(ctx context.Context, intent classify.Intent, action extract.ChainedAction, trigger extract.TriggerContext) actions.Outcome
}

// Store appends completed runs.
type Store interface {
	Append(ctx context.Context, cmd interactions.AppendCommand) (*interactions.Interaction, error)
}

// Archive keeps a copy of inbound file bytes.
type Archive interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
}

// Result is the response for a completed run.
type Result struct {
	InteractionID  int64                                       `json:"interaction_id"`
	InputMetadata  interactions.InputMetadata                  `json:"input_metadata"`
	Classification classify.Classification                     `json:"classification"`
	AgentOutputs   map[classify.Agent]interactions.AgentOutput `json:"agent_outputs"`
	FinalAction    string                                      `json:"final_action"`
	Resolution     actions.Outcome                             `json:"resolution"`
	AuditLog       string                                      `json:"audit_log"`
}

// Pipeline runs documents through classification, extraction, and action
// resolution, and records each completed run exactly once.
type Pipeline struct {
	classifier   Classifier
	extractors   extract.Registry
	resolver     Resolver
	store        Store
	archive      Archive
	pdfText      extract.TextSource
	metrics      *Metrics
	storeTimeout time.Duration
	logger       *slog.Logger
}

// Option mutates pipeline construction.
type Option func(*Pipeline)

// WithArchive stores inbound file bytes before classification.
func WithArchive(a Archive) Option {
	return func(p *Pipeline) { p.archive = a }
}

// WithMetrics records run metrics.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithPDFText replaces the PDF text extractor used for classification.
func WithPDFText(src extract.TextSource) Option {
	return func(p *Pipeline) { p.pdfText = src }
}

// New creates a Pipeline.
func New(
	classifier Classifier,
	extractors extract.Registry,
	resolver Resolver,
	store Store,
	cfg *Config,
	logger *slog.Logger,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		classifier:   classifier,
		extractors:   extractors,
		resolver:     resolver,
		store:        store,
		pdfText:      textract.PDF,
		storeTimeout: cfg.StoreTimeoutDuration(),
		logger:       logger.With("system", "pipeline"),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.metrics == nil {
		p.metrics = NewMetrics(nil)
	}

	return p
}

type run struct {
	id    uuid.UUID
	audit []string
}

func (r *run) log(format string, args ...any) {
	r.audit = append(r.audit, fmt.Sprintf(format, args...))
}

// Run processes one input. A context cancelled before action resolution
// aborts the run with ErrCancelled and nothing is recorded. Once resolution
// completes the record is written on a context detached from ctx.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	r := &run{id: uuid.New()}
	start := time.Now()

	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run_id", r.id.String()),
		attribute.String("source_type", string(in.Source)),
	))
	defer span.End()

	logger := p.logger.With("run_id", r.id, "source_type", in.Source)

	meta := p.metadata(ctx, r.id, in, logger)
	if key, ok := p.archiveInput(ctx, r.id, in, logger); ok {
		meta.StorageKey = key
	} else if p.archive != nil && len(in.Data) > 0 {
		r.log("Archive: failed to store inbound file.")
	}

	r.log("Classifier Agent: Processing input type: %s", in.Source)

	text := p.classificationText(ctx, in, r, logger)

	outcome := p.classifier.Classify(ctx, classify.Input{
		Source:       in.Source,
		Text:         text,
		IsStructured: in.IsStructured,
		Structured:   in.Structured,
		Filename:     in.Filename,
	})
	cls := outcome.Classification
	if outcome.Fallback {
		p.metrics.ClassifierFallbacks.WithLabelValues(string(in.Source)).Inc()
	}
	r.audit = append(r.audit, outcome.Trace...)
	r.log("Classifier Agent Output: %s", marshal(cls))
	r.log("Action Router: Routing to %s based on classification.", cls.RoutedAgent)

	if err := ctx.Err(); err != nil {
		return nil, p.cancelled(ctx, span, logger, err)
	}

	output, res := p.extract(ctx, in, text, cls, r)

	if err := ctx.Err(); err != nil {
		return nil, p.cancelled(ctx, span, logger, err)
	}

	resolution := p.resolver.Resolve(ctx, cls.Intent, res.ChainedAction, res.TriggerContext)
	r.audit = append(r.audit, resolution.Trace...)
	r.log("Final Action Router: Triggered action: %s", resolution.Status)

	if resolution.Failed {
		p.metrics.ActionFailures.WithLabelValues(string(resolution.Action)).Inc()
	}

	result := &Result{
		InputMetadata:  meta,
		Classification: cls,
		AgentOutputs:   map[classify.Agent]interactions.AgentOutput{cls.RoutedAgent: output},
		FinalAction:    resolution.Status,
		Resolution:     resolution,
		AuditLog:       strings.Join(r.audit, "\n"),
	}

	record, err := p.record(ctx, result, r.audit)

	p.metrics.RunsTotal.WithLabelValues(string(in.Source), string(cls.Intent), string(resolution.Action)).Inc()
	p.metrics.RunDuration.WithLabelValues(string(in.Source)).Observe(time.Since(start).Seconds())

	if err != nil {
		p.metrics.RecordFailures.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "record failed")
		logger.ErrorContext(ctx, "run not recorded", "error", err)
		return result, fmt.Errorf("%w: %w", ErrNotRecorded, err)
	}

	result.InteractionID = record.ID
	span.SetAttributes(
		attribute.Int64("interaction_id", record.ID),
		attribute.String("intent", string(cls.Intent)),
		attribute.String("action", string(resolution.Action)),
	)

	logger.InfoContext(ctx, "run complete",
		"interaction_id", record.ID,
		"format", cls.Format,
		"intent", cls.Intent,
		"routed_agent", cls.RoutedAgent,
		"action", resolution.Action,
		"duration", time.Since(start),
	)

	return result, nil
}

func (p *Pipeline) metadata(ctx context.Context, id uuid.UUID, in Input, logger *slog.Logger) interactions.InputMetadata {
	filename := in.Filename
	if filename == "" {
		filename = UnknownFilename
	}

	meta := interactions.InputMetadata{
		RunID:       id,
		SourceType:  in.Source,
		Filename:    filename,
		ContentType: in.ContentType,
		SizeBytes:   int64(len(in.Data)),
		Timestamp:   time.Now().UTC(),
	}

	if in.Source == classify.SourcePDF {
		if count, err := textract.PageCount(in.Data); err == nil {
			meta.PageCount = &count
		} else {
			logger.WarnContext(ctx, "failed to read PDF page count", "error", err)
		}
	}

	return meta
}

func (p *Pipeline) archiveInput(ctx context.Context, id uuid.UUID, in Input, logger *slog.Logger) (string, bool) {
	if p.archive == nil || len(in.Data) == 0 {
		return "", false
	}

	key := storageKey(id, in.Source, in.Filename)
	if err := p.archive.Upload(ctx, key, bytes.NewReader(in.Data), in.ContentType); err != nil {
		logger.WarnContext(ctx, "archive upload failed", "key", key, "error", err)
		return "", false
	}

	return key, true
}

func (p *Pipeline) classificationText(ctx context.Context, in Input, r *run, logger *slog.Logger) string {
	switch in.Source {
	case classify.SourceEmailFile:
		text, err := textract.Email(in.Data)
		if err != nil {
			logger.WarnContext(ctx, "email parse failed", "error", err)
			r.log("Classifier Agent: Could not read email file content: %v", err)
			return ""
		}
		return text
	case classify.SourcePDF:
		text, err := p.pdfText(in.Data)
		if err != nil {
			logger.WarnContext(ctx, "pdf text extraction failed", "error", err)
			r.log("Classifier Agent: Could not read PDF file content: %v", err)
			return ""
		}
		return text
	default:
		return in.Text
	}
}

func (p *Pipeline) extract(ctx context.Context, in Input, text string, cls classify.Classification, r *run) (interactions.AgentOutput, extract.Result) {
	ctx, span := tracer.Start(ctx, "extract", trace.WithAttributes(
		attribute.String("agent", string(cls.RoutedAgent)),
	))
	defer span.End()

	e, ok := p.extractors.For(cls.RoutedAgent)
	if !ok {
		r.log("No specific agent found for %s or agent is '%s'.", cls.RoutedAgent, classify.AgentUnknown)
		return interactions.AgentOutput{
			AgentName:     cls.RoutedAgent,
			ExtractedData: map[string]any{},
			DecisionTrace: []string{},
		}, extract.Result{TriggerContext: extract.TriggerContext{}}
	}

	res := e.Process(ctx, extract.Content{
		Source:     in.Source,
		Filename:   in.Filename,
		Text:       text,
		Structured: in.Structured,
		Data:       in.Data,
	}, cls)

	r.log("%s Output: %s", cls.RoutedAgent, marshal(res))
	span.SetAttributes(attribute.String("chained_action", string(res.ChainedAction)))

	return interactions.AgentOutput{
		AgentName:              cls.RoutedAgent,
		ExtractedData:          res.ExtractedFields,
		DecisionTrace:          res.DecisionTrace,
		ChainedActionTriggered: res.ChainedAction,
	}, res
}

func (p *Pipeline) record(ctx context.Context, result *Result, audit []string) (*interactions.Interaction, error) {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.storeTimeout)
	defer cancel()

	ctx, span := tracer.Start(storeCtx, "record")
	defer span.End()

	var chained []string
	if result.FinalAction != "" {
		chained = []string{result.FinalAction}
	}

	return p.store.Append(ctx, interactions.AppendCommand{
		InputMetadata:  result.InputMetadata,
		Classification: result.Classification,
		AgentOutputs:   result.AgentOutputs,
		ChainedActions: chained,
		DecisionTraces: audit,
	})
}

func (p *Pipeline) cancelled(ctx context.Context, span trace.Span, logger *slog.Logger, err error) error {
	p.metrics.RunsCancelled.Inc()
	span.SetStatus(codes.Error, "cancelled")
	logger.WarnContext(ctx, "run cancelled before resolution", "error", err)
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}

func storageKey(id uuid.UUID, source classify.SourceType, filename string) string {
	name := filepath.Base(filename)
	if name == "." || name == "" || name == UnknownFilename {
		name = "input"
	}
	return fmt.Sprintf("inbound/%s/%s/%s", source, id, url.PathEscape(name))
}

func marshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}
