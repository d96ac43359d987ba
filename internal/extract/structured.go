package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/dispatch/internal/classify"
)

// fraudThreshold is the risk score above which a valid fraud payload is flagged.
const fraudThreshold = 0.8

// Kind is the JSON value kind a schema field accepts.
type Kind string

// Accepted kinds.
const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindArray  Kind = "array"
)

// Field is one required schema entry.
type Field struct {
	Name string
	Kind Kind
}

// Schemas lists the required fields per intent, in validation order.
var Schemas = map[classify.Intent][]Field{
	classify.IntentRFQ: {
		{"request_id", KindString},
		{"items", KindArray},
		{"due_date", KindString},
		{"contact_email", KindString},
	},
	classify.IntentFraudRisk: {
		{"transaction_id", KindString},
		{"amount", KindNumber},
		{"user_id", KindString},
		{"risk_score", KindNumber},
		{"ip_address", KindString},
	},
	classify.IntentInvoice: {
		{"invoice_number", KindString},
		{"customer_id", KindString},
		{"total_amount", KindNumber},
		{"currency", KindString},
		{"line_items", KindArray},
	},
}

// Structured validates JSON payloads against the schema for their intent.
type Structured struct {
	logger *slog.Logger
}

// NewStructured creates the JSON payload extractor.
func NewStructured(logger *slog.Logger) *Structured {
	return &Structured{
		logger: logger.With("extractor", classify.AgentJSON),
	}
}

func (s *Structured) Agent() classify.Agent {
	return classify.AgentJSON
}

func (s *Structured) Process(ctx context.Context, in Content, cls classify.Classification) Result {
	t := &tracer{agent: classify.AgentJSON}
	t.log("Starting JSON processing...")

	var errs []string
	if in.Structured == nil {
		errs = []string{"Invalid input for JSONAgent. Expected a JSON object."}
	} else {
		errs = Validate(in.Structured, cls.Intent)
	}

	trigger := TriggerContext{
		KeyIntent:           string(cls.Intent),
		KeyJSONData:         in.Structured,
		KeyValidationErrors: errs,
	}

	var action ChainedAction
	if len(errs) > 0 {
		t.log("JSON validation errors detected: %v", errs)
		action = ActionLogAnomaly
	} else {
		t.log("JSON schema validated successfully.")
		action = ActionProcessJSON

		if cls.Intent == classify.IntentFraudRisk {
			if score, ok := in.Structured["risk_score"].(float64); ok && score > fraudThreshold {
				t.log("High fraud risk score detected.")
				action = ActionFlagFraudRisk
				trigger[KeyRiskLevel] = RiskLevelHigh
			}
		}
	}

	t.log("Determined chained action: %s", action)
	s.logger.InfoContext(ctx, "json validated", "intent", cls.Intent, "errors", len(errs), "chained_action", action)

	fields := in.Structured
	if fields == nil {
		fields = map[string]any{}
	}

	return Result{
		ExtractedFields: fields,
		DecisionTrace:   t.lines,
		ChainedAction:   action,
		TriggerContext:  trigger,
	}
}

// Validate checks data against the schema for intent and returns one
// message per violation.
func Validate(data map[string]any, intent classify.Intent) []string {
	schema, ok := Schemas[intent]
	if !ok {
		return []string{fmt.Sprintf("No schema defined for intent: %s", intent)}
	}

	errs := make([]string, 0)
	for _, f := range schema {
		v, present := data[f.Name]
		if !present {
			errs = append(errs, fmt.Sprintf("Missing required field: '%s'", f.Name))
			continue
		}
		if got := kindOf(v); got != f.Kind {
			errs = append(errs, fmt.Sprintf("Field '%s' has wrong type. Expected %s, got %s", f.Name, f.Kind, got))
		}
	}
	return errs
}

func kindOf(v any) Kind {
	switch v.(type) {
	case string:
		return KindString
	case float64, float32, int, int64:
		return KindNumber
	case []any:
		return KindArray
	case nil:
		return "null"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	default:
		return Kind(fmt.Sprintf("%T", v))
	}
}
