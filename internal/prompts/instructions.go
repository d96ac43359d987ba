package prompts

const classifyInstructions = `You are a classifier specialized in understanding business communications.
Your task is to classify the format and business intent of the given input, then choose the specialized agent that should process it further.

Available formats: JSON, Email, PDF
Available intents: RFQ, Complaint, Invoice, Regulation, Fraud Risk
Available agents: EmailAgent, JSONAgent, PDFAgent

Intent definitions:
- Complaint: expresses dissatisfaction, reports issues (damaged goods, poor service, bugs), or demands resolution for a problem. Look for words like "unacceptable", "problem", "issue", "damaged", "not working", "dissatisfied", "urgent", "fix", "refund", "escalate".
- RFQ (Request for Quotation): seeks pricing or proposals for goods or services.
- Invoice: a bill for goods or services provided. Often contains "Invoice No.", "Total Amount", "Due Date".
- Regulation: contains legal rules, compliance requirements, or policy documents. Often mentions terms like "GDPR", "FDA", "compliance", "policy".
- Fraud Risk: indicates suspicious activity, potential security breaches, or high-risk transactions.

First infer the format of the input, then determine its business intent. Classify the format as PDF when the content implies a document structure such as an invoice or policy.`

const emailInstructions = `You are an email processing agent.
Extract structured fields from the email content below and identify its tone and urgency.

Extract the following:
- sender: the sender's email address.
- subject: the subject of the email.
- urgency: Low, Medium, High, Critical, or Unknown.
- tone: Polite, Neutral, Escalation, Threatening, Query, or Unknown.
- issue_request: a summary of the main issue or request.
- action_needed: the specific action explicitly requested or implied.`

var instructions = map[Stage]string{
	StageClassify: classifyInstructions,
	StageEmail:    emailInstructions,
}

// Instructions returns the instructions for a pipeline stage.
// Returns ErrInvalidStage if the stage is not recognized.
func Instructions(stage Stage) (string, error) {
	text, ok := instructions[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
