package classify

import "encoding/json"

// Format is the structural shape of an inbound document.
type Format string

// Known formats. Values outside this set coerce to FormatUnknown.
const (
	FormatJSON    Format = "JSON"
	FormatEmail   Format = "Email"
	FormatPDF     Format = "PDF"
	FormatUnknown Format = "Unknown"
)

// ParseFormat returns the matching Format or FormatUnknown.
func ParseFormat(s string) Format {
	switch f := Format(s); f {
	case FormatJSON, FormatEmail, FormatPDF:
		return f
	default:
		return FormatUnknown
	}
}

// UnmarshalJSON coerces unrecognized values to FormatUnknown.
func (f *Format) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = ParseFormat(raw)
	return nil
}

// Intent is the business purpose of an inbound document.
type Intent string

// Known intents. Values outside this set coerce to IntentUnknown.
const (
	IntentRFQ        Intent = "RFQ"
	IntentComplaint  Intent = "Complaint"
	IntentInvoice    Intent = "Invoice"
	IntentRegulation Intent = "Regulation"
	IntentFraudRisk  Intent = "Fraud Risk"
	IntentUnknown    Intent = "Unknown"
)

// ParseIntent returns the matching Intent or IntentUnknown.
func ParseIntent(s string) Intent {
	switch i := Intent(s); i {
	case IntentRFQ, IntentComplaint, IntentInvoice, IntentRegulation, IntentFraudRisk:
		return i
	default:
		return IntentUnknown
	}
}

// UnmarshalJSON coerces unrecognized values to IntentUnknown.
func (i *Intent) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i = ParseIntent(raw)
	return nil
}

// Agent names the extractor a document is routed to.
type Agent string

// Known agents. Values outside this set coerce to AgentUnknown.
const (
	AgentEmail   Agent = "EmailAgent"
	AgentJSON    Agent = "JSONAgent"
	AgentPDF     Agent = "PDFAgent"
	AgentUnknown Agent = "UnknownAgent"
)

// ParseAgent returns the matching Agent or AgentUnknown.
func ParseAgent(s string) Agent {
	switch a := Agent(s); a {
	case AgentEmail, AgentJSON, AgentPDF:
		return a
	default:
		return AgentUnknown
	}
}

// UnmarshalJSON coerces unrecognized values to AgentUnknown.
func (a *Agent) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = ParseAgent(raw)
	return nil
}

// AgentFor returns the extractor responsible for a format.
func AgentFor(f Format) Agent {
	switch f {
	case FormatJSON:
		return AgentJSON
	case FormatEmail:
		return AgentEmail
	case FormatPDF:
		return AgentPDF
	default:
		return AgentUnknown
	}
}

// Classification is the classifier's verdict for one document.
type Classification struct {
	Format      Format `json:"format"`
	Intent      Intent `json:"intent"`
	RoutedAgent Agent  `json:"routed_agent"`
}

// Unknown is the classification used when nothing can be determined.
func Unknown() Classification {
	return Classification{
		Format:      FormatUnknown,
		Intent:      IntentUnknown,
		RoutedAgent: AgentUnknown,
	}
}

// SourceType describes how a document arrived.
type SourceType string

// Inbound source types.
const (
	SourceEmailFile SourceType = "email_file"
	SourcePDF       SourceType = "pdf"
	SourceEmailText SourceType = "email_text"
	SourceJSON      SourceType = "json"
)

// Input is the document presented for classification.
// IsStructured marks a parsed JSON payload of any shape. Structured is
// non-nil only when that payload is an object. Text holds the rendered
// content for every source type.
type Input struct {
	Source       SourceType
	Text         string
	IsStructured bool
	Structured   map[string]any
	Filename     string
}
