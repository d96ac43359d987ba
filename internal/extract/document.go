package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/JaimeStill/dispatch/internal/classify"
	"github.com/JaimeStill/dispatch/pkg/docparse"
	"github.com/JaimeStill/dispatch/pkg/textract"
)

// highValueThreshold is the invoice total above which an invoice is flagged.
const highValueThreshold = 10000

// TextSource converts raw document bytes to text.
type TextSource func(data []byte) (string, error)

// Document parses invoices and policy documents from PDF text.
type Document struct {
	source TextSource
	logger *slog.Logger
}

// NewDocument creates the PDF extractor. A nil source uses textract.PDF.
func NewDocument(source TextSource, logger *slog.Logger) *Document {
	if source == nil {
		source = textract.PDF
	}
	return &Document{
		source: source,
		logger: logger.With("extractor", classify.AgentPDF),
	}
}

func (d *Document) Agent() classify.Agent {
	return classify.AgentPDF
}

func (d *Document) Process(ctx context.Context, in Content, cls classify.Classification) Result {
	t := &tracer{agent: classify.AgentPDF}
	t.log("Starting PDF processing...")

	text, errText := d.text(in)
	if strings.TrimSpace(text) == "" {
		if errText == "" {
			errText = "no text content"
		}
		t.log("Failed to extract meaningful text from PDF: %s", snippet(errText, 100))
		d.logger.WarnContext(ctx, "pdf text extraction failed", "filename", in.Filename, "error", errText)
		return Result{
			ExtractedFields: map[string]any{"pdf_extraction_error": errText},
			DecisionTrace:   t.lines,
			ChainedAction:   ActionReviewPDF,
			TriggerContext:  TriggerContext{},
		}
	}

	t.log("Text extracted from PDF. Analyzing content...")

	fields := map[string]any{"raw_text_snippet": snippet(text, 500)}
	trigger := TriggerContext{
		KeyFilename:    in.Filename,
		KeyTextSnippet: snippet(text, 200),
	}

	var action ChainedAction
	switch cls.Intent {
	case classify.IntentInvoice:
		inv := docparse.ParseInvoice(text)
		fields["invoice_details"] = inv
		t.log("Parsed invoice data: number=%s total=%.2f currency=%s items=%d unparsed=%v",
			inv.InvoiceNumber, inv.TotalAmount, inv.Currency, len(inv.LineItems), inv.Unparsed)

		if inv.TotalAmount > highValueThreshold {
			t.log("Invoice total (%.2f) exceeds 10,000.", inv.TotalAmount)
			action = ActionFlagHighValueInvoice
			trigger[KeyInvoiceTotal] = inv.TotalAmount
			trigger[KeyInvoiceNumber] = inv.InvoiceNumber
		} else {
			action = ActionProcessInvoice
		}

	case classify.IntentRegulation:
		mentions := docparse.ComplianceMentions(text)
		fields["policy_mentions"] = mentions
		t.log("Policy mentions found: %v", mentions)

		if len(mentions) > 0 {
			t.log("Detected compliance keywords: %s.", strings.Join(mentions, ", "))
			action = ActionFlagComplianceRisk
			trigger[KeyComplianceKeywords] = mentions
		} else {
			action = ActionProcessPolicy
		}

	default:
		t.log("PDF content does not match expected intent for detailed parsing: %s. Routing for manual review.", cls.Intent)
		action = ActionReviewPDF
	}

	t.log("Determined chained action: %s", action)
	d.logger.InfoContext(ctx, "pdf extracted", "intent", cls.Intent, "chained_action", action)

	return Result{
		ExtractedFields: fields,
		DecisionTrace:   t.lines,
		ChainedAction:   action,
		TriggerContext:  trigger,
	}
}

func (d *Document) text(in Content) (string, string) {
	if strings.TrimSpace(in.Text) != "" {
		return in.Text, ""
	}
	if len(in.Data) == 0 {
		return "", "no document data"
	}
	text, err := d.source(in.Data)
	if err != nil {
		return "", err.Error()
	}
	return text, ""
}
