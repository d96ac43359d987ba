// Package actions resolves the single follow-up action for a run. An
// extractor's chained action takes precedence over intent rules; intent rules
// take precedence over the log-and-close default.
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/JaimeStill/dispatch/internal/classify"
	"github.com/JaimeStill/dispatch/internal/extract"
	"github.com/JaimeStill/dispatch/pkg/retry"
)

// highValueThreshold is the invoice total above which the invoice intent rule fires.
const highValueThreshold = 10000

// Action is a resolved side effect.
type Action string

// Resolvable actions.
const (
	ActionCRMEscalation Action = "crm_escalation"
	ActionRiskAlert     Action = "risk_alert"
	ActionLogAndClose   Action = "log_and_close"
)

// Label is the human-readable prefix used in status lines.
func (a Action) Label() string {
	switch a {
	case ActionCRMEscalation:
		return "CRM escalation"
	case ActionRiskAlert:
		return "Risk alert"
	default:
		return "Interaction log"
	}
}

// Outcome is the resolved action and the status of executing it.
type Outcome struct {
	Action   Action   `json:"action"`
	Rule     string   `json:"rule"`
	Status   string   `json:"status"`
	Attempts int      `json:"attempts"`
	Failed   bool     `json:"failed"`
	Trace    []string `json:"trace"`
}

type rule struct {
	action Action
	name   string
}

// chained is the precedence table for extractor recommendations.
var chained = map[extract.ChainedAction]rule{
	extract.ActionEscalateCRM:          {ActionCRMEscalation, "Specialized Agent Escalation (CRM)"},
	extract.ActionFlagRiskEscalate:     {ActionRiskAlert, "Specialized Agent Risk Flag (Escalate)"},
	extract.ActionLogAnomaly:           {ActionLogAndClose, "Anomaly Logged"},
	extract.ActionFlagHighValueInvoice: {ActionRiskAlert, "High Value Invoice Alert"},
	extract.ActionFlagComplianceRisk:   {ActionRiskAlert, "Compliance Risk Flagged"},
	extract.ActionFlagFraudRisk:        {ActionRiskAlert, "Fraud Risk Flagged"},
	extract.ActionLogAndClose:          {ActionLogAndClose, "Routine Processed (Log and Close)"},
	extract.ActionProcessJSON:          {ActionLogAndClose, "Routine Processed (Process JSON Data)"},
	extract.ActionProcessInvoice:       {ActionLogAndClose, "Routine Processed (Process Invoice)"},
	extract.ActionProcessPolicy:        {ActionLogAndClose, "Routine Processed (Process Policy Document)"},
	extract.ActionReviewPDF:            {ActionLogAndClose, "Routine Processed (Review PDF Manually)"},
}

var defaultRule = rule{ActionLogAndClose, "Routine Processing (Default)"}

// Select picks the rule for a run without executing it.
func Select(intent classify.Intent, action extract.ChainedAction, trigger extract.TriggerContext) (Action, string) {
	r := selectRule(intent, action, trigger)
	return r.action, r.name
}

func selectRule(intent classify.Intent, action extract.ChainedAction, trigger extract.TriggerContext) rule {
	if r, ok := chained[action]; ok {
		return r
	}

	switch {
	case intent == classify.IntentComplaint && extract.ParseUrgency(trigger.String(extract.KeyUrgency)).Elevated():
		return rule{ActionCRMEscalation, "Classifier-driven Complaint Escalation"}
	case intent == classify.IntentFraudRisk && trigger.String(extract.KeyRiskLevel) == extract.RiskLevelHigh:
		return rule{ActionRiskAlert, "Classifier-driven Fraud Risk Detected"}
	case intent == classify.IntentInvoice && trigger.Float(extract.KeyInvoiceTotal) > highValueThreshold:
		return rule{ActionRiskAlert, "Classifier-driven High Value Invoice Alert"}
	case intent == classify.IntentRegulation && len(trigger.Strings(extract.KeyComplianceKeywords)) > 0:
		return rule{ActionRiskAlert, "Classifier-driven Compliance Risk Flagged"}
	default:
		return defaultRule
	}
}

// Resolver selects and executes the follow-up action for a run.
type Resolver struct {
	notifier Notifier
	policy   retry.Policy
	logger   *slog.Logger
}

// Option mutates resolver construction.
type Option func(*Resolver)

// WithRetryPolicy overrides the retry policy derived from Config.
func WithRetryPolicy(p retry.Policy) Option {
	return func(r *Resolver) { r.policy = p }
}

// New creates a Resolver that delivers side effects through notifier.
func New(notifier Notifier, cfg *Config, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		notifier: notifier,
		policy: retry.Policy{
			MaxAttempts:    3,
			InitialDelay:   time.Second,
			MaxDelay:       cfg.RetryCapDuration(),
			AttemptTimeout: cfg.TimeoutDuration(),
		},
		logger: logger.With("system", "actions"),
	}

	for _, opt := range opts {
		opt(r)
	}

	onRetry := r.policy.OnRetry
	r.policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		r.logger.Warn("side effect failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}

	return r
}

// Resolve selects the action for the run and executes it. It never fails;
// delivery failures are reported in Outcome.Status.
func (r *Resolver) Resolve(ctx context.Context, intent classify.Intent, action extract.ChainedAction, trigger extract.TriggerContext) Outcome {
	ctx, span := otel.Tracer("dispatch/actions").Start(ctx, "resolve")
	defer span.End()

	if trigger == nil {
		trigger = extract.TriggerContext{}
	}

	var trace []string
	logf := func(format string, args ...any) {
		trace = append(trace, "[ActionRouter] "+fmt.Sprintf(format, args...))
	}

	logf("Determining final action for intent: %s with chained action: %q", intent, action)

	sel := selectRule(intent, action, trigger)
	if _, ok := chained[action]; ok {
		logf("Specialized agent recommended '%s'. Executing %s.", action, sel.action)
	} else if sel == defaultRule {
		logf("No specific action triggered by specialized agent or classifier intent. Defaulting to log and close.")
	} else {
		logf("Classifier intent '%s' matched rule '%s'. Executing %s.", intent, sel.name, sel.action)
	}

	req := Request{
		Action:  sel.action,
		Payload: Payload{Type: sel.name, Details: trigger},
	}

	out := Outcome{Action: sel.action, Rule: sel.name}
	if sel.action == ActionLogAndClose {
		out.Status = logAndClose(req.Payload)
	} else {
		out.Status, out.Attempts, out.Failed = r.deliver(ctx, req)
	}

	logf("Final action result: %s", out.Status)
	out.Trace = trace

	span.SetAttributes(
		attribute.String("action", string(out.Action)),
		attribute.String("rule", out.Rule),
		attribute.Int("attempts", out.Attempts),
		attribute.Bool("failed", out.Failed),
	)

	r.logger.InfoContext(ctx, "action resolved",
		"action", out.Action,
		"rule", out.Rule,
		"attempts", out.Attempts,
	)

	return out
}

func (r *Resolver) deliver(ctx context.Context, req Request) (string, int, bool) {
	attempts := 0
	status, err := retry.Do(ctx, r.policy, func(ctx context.Context) (string, error) {
		attempts++
		return r.notifier.Notify(ctx, req)
	})
	if err == nil {
		return status, attempts, false
	}

	r.logger.ErrorContext(ctx, "side effect failed", "action", req.Action, "attempts", attempts, "error", err)
	return failureStatus(req.Action, err), attempts, true
}

func failureStatus(action Action, err error) string {
	label := action.Label()

	var se *retry.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("%s failed (HTTP error %d): %s", label, se.StatusCode, se.Body)
	}

	var re *retry.Error
	if errors.As(err, &re) {
		if re.Transient {
			return fmt.Sprintf("%s failed (transient, %d attempts): %v", label, re.Attempts, re.Err)
		}
		return fmt.Sprintf("%s failed (unexpected error): %v", label, re.Err)
	}

	return fmt.Sprintf("%s failed (unexpected error): %v", label, err)
}

func logAndClose(p Payload) string {
	body, err := json.Marshal(p)
	if err != nil {
		body = fmt.Appendf(nil, `{"type":%q}`, p.Type)
	}
	return fmt.Sprintf("Interaction logged and closed (routine): %s", body)
}
