package prompts

const classifySpec = `Respond with a JSON object matching this exact structure:

{
  "format": "<JSON|Email|PDF|Unknown>",
  "intent": "<RFQ|Complaint|Invoice|Regulation|Fraud Risk|Unknown>",
  "routed_agent": "<EmailAgent|JSONAgent|PDFAgent|UnknownAgent>"
}

Examples:

Input: "Subject: IMMEDIATE ATTENTION REQUIRED: Damaged Shipment - Order #XYZ789\nDear Support, My recent order #12345 arrived damaged. I need a replacement immediately. This is unacceptable."
Output: {"format": "Email", "intent": "Complaint", "routed_agent": "EmailAgent"}

Input: "Subject: Issue with my recent service visit\nFrom: unhappy@customer.com\nDear Team, I am writing to express my dissatisfaction with the service technician who visited yesterday. The problem with my internet connection is still unresolved."
Output: {"format": "Email", "intent": "Complaint", "routed_agent": "EmailAgent"}

Input: "This document is a PDF invoice. Invoice No: INV-2025-001. Date: 2025-05-31. Total Amount: $12,500.00. Due Date: 2025-06-30."
Output: {"format": "PDF", "intent": "Invoice", "routed_agent": "PDFAgent"}

Input: "This is a PDF document detailing the new data privacy regulations. It specifies GDPR compliance requirements and mentions FDA guidelines related to product safety."
Output: {"format": "PDF", "intent": "Regulation", "routed_agent": "PDFAgent"}

Input: {"transaction_id": "TXN789", "amount": 15000, "user_id": "USR456", "risk_score": 0.95, "ip_address": "192.168.1.100"}
Output: {"format": "JSON", "intent": "Fraud Risk", "routed_agent": "JSONAgent"}

Input: "Subject: Request for Quotation - Server Hardware\nDear Vendor, We are looking to purchase 10 servers with the following specifications..."
Output: {"format": "Email", "intent": "RFQ", "routed_agent": "EmailAgent"}

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Use only the listed values for every field`

const emailSpec = `Respond with a JSON object matching this exact structure:

{
  "sender": "<address>",
  "subject": "<subject>",
  "urgency": "<Low|Medium|High|Critical|Unknown>",
  "tone": "<Polite|Neutral|Escalation|Threatening|Query|Unknown>",
  "issue_request": "<summary>",
  "action_needed": "<action>"
}

Examples:

Email: "Subject: Urgent Issue with Order #12345\nFrom: customer@example.com\nDear Support, My recent order #12345 arrived damaged. I need a replacement immediately. This is unacceptable."
Output: {"sender": "customer@example.com", "subject": "Urgent Issue with Order #12345", "urgency": "Critical", "tone": "Escalation", "issue_request": "Order #12345 arrived damaged, needs replacement.", "action_needed": "Provide replacement for order #12345 immediately."}

Email: "Subject: Query about new policy\nFrom: user@company.com\nHi Team, Could you please clarify the new expense policy regarding travel? Thanks."
Output: {"sender": "user@company.com", "subject": "Query about new policy", "urgency": "Low", "tone": "Polite", "issue_request": "Clarification on new expense policy for travel.", "action_needed": "Clarify new expense policy."}

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Use Unknown when urgency or tone cannot be determined`

var specs = map[Stage]string{
	StageClassify: classifySpec,
	StageEmail:    emailSpec,
}

// Spec returns the output specification for a pipeline stage.
// Returns ErrInvalidStage if the stage is not recognized.
func Spec(stage Stage) (string, error) {
	text, ok := specs[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
