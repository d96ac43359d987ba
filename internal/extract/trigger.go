package extract

// Trigger context keys read by the action resolver.
const (
	KeyIntent             = "intent"
	KeyUrgency            = "urgency"
	KeyTone               = "tone"
	KeyIssueRequest       = "issue_request"
	KeySender             = "sender"
	KeySubject            = "subject"
	KeyJSONData           = "json_data"
	KeyValidationErrors   = "validation_errors"
	KeyRiskLevel          = "risk_level"
	KeyInvoiceTotal       = "invoice_total"
	KeyInvoiceNumber      = "invoice_number"
	KeyComplianceKeywords = "compliance_keywords"
	KeyTextSnippet        = "extracted_text_snippet"
	KeyFilename           = "filename"
)

// RiskLevelHigh marks a trigger context as high risk.
const RiskLevelHigh = "High"

// TriggerContext carries the evidence an extractor collected for the resolver.
type TriggerContext map[string]any

// String returns the string at key, or "" if absent or not a string.
func (t TriggerContext) String(key string) string {
	s, _ := t[key].(string)
	return s
}

// Float returns the numeric value at key, or 0 if absent or not numeric.
func (t TriggerContext) Float(key string) float64 {
	switch v := t[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Strings returns the string list at key.
func (t TriggerContext) Strings(key string) []string {
	switch v := t[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
