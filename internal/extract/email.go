package extract

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/JaimeStill/dispatch/internal/classify"
	"github.com/JaimeStill/dispatch/internal/prompts"
	"github.com/JaimeStill/dispatch/pkg/formatting"
	"github.com/JaimeStill/dispatch/pkg/llm"
)

// Urgency is the assessed urgency of an email.
type Urgency string

// Known urgency levels.
const (
	UrgencyLow      Urgency = "Low"
	UrgencyMedium   Urgency = "Medium"
	UrgencyHigh     Urgency = "High"
	UrgencyCritical Urgency = "Critical"
	UrgencyUnknown  Urgency = "Unknown"
)

// ParseUrgency returns the matching Urgency or UrgencyUnknown.
func ParseUrgency(s string) Urgency {
	switch u := Urgency(s); u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return u
	default:
		return UrgencyUnknown
	}
}

// Elevated reports whether u is High or Critical.
func (u Urgency) Elevated() bool {
	return u == UrgencyHigh || u == UrgencyCritical
}

// UnmarshalJSON coerces unrecognized values to UrgencyUnknown.
func (u *Urgency) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = ParseUrgency(raw)
	return nil
}

// Tone is the assessed tone of an email.
type Tone string

// Known tones.
const (
	TonePolite      Tone = "Polite"
	ToneNeutral     Tone = "Neutral"
	ToneEscalation  Tone = "Escalation"
	ToneThreatening Tone = "Threatening"
	ToneQuery       Tone = "Query"
	ToneUnknown     Tone = "Unknown"
)

// ParseTone returns the matching Tone or ToneUnknown.
func ParseTone(s string) Tone {
	switch t := Tone(s); t {
	case TonePolite, ToneNeutral, ToneEscalation, ToneThreatening, ToneQuery:
		return t
	default:
		return ToneUnknown
	}
}

// UnmarshalJSON coerces unrecognized values to ToneUnknown.
func (t *Tone) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = ParseTone(raw)
	return nil
}

type emailFields struct {
	Sender       string  `json:"sender"`
	Subject      string  `json:"subject"`
	Urgency      Urgency `json:"urgency"`
	Tone         Tone    `json:"tone"`
	IssueRequest string  `json:"issue_request"`
	ActionNeeded string  `json:"action_needed"`
}

// Email extracts sender, subject, urgency, tone, and request from email text
// using the generative model.
type Email struct {
	client llm.Client
	logger *slog.Logger
}

// NewEmail creates the email extractor.
func NewEmail(client llm.Client, logger *slog.Logger) *Email {
	return &Email{
		client: client,
		logger: logger.With("extractor", classify.AgentEmail),
	}
}

func (e *Email) Agent() classify.Agent {
	return classify.AgentEmail
}

func (e *Email) Process(ctx context.Context, in Content, cls classify.Classification) Result {
	t := &tracer{agent: classify.AgentEmail}
	t.log("Starting email processing...")

	trigger := TriggerContext{
		KeyIntent:       string(cls.Intent),
		KeyUrgency:      string(UrgencyUnknown),
		KeyTone:         string(ToneUnknown),
		KeyIssueRequest: "",
		KeySender:       "",
		KeySubject:      "",
	}

	fields, err := e.extract(ctx, in.Text, t)
	if err != nil {
		t.log("Error during email extraction: %v", err)
		e.logger.WarnContext(ctx, "email extraction failed", "error", err)
		return Result{
			ExtractedFields: map[string]any{},
			DecisionTrace:   t.lines,
			ChainedAction:   ActionNone,
			TriggerContext:  trigger,
		}
	}

	trigger[KeyUrgency] = string(fields.Urgency)
	trigger[KeyTone] = string(fields.Tone)
	trigger[KeyIssueRequest] = fields.IssueRequest
	trigger[KeySender] = fields.Sender
	trigger[KeySubject] = fields.Subject

	action := emailAction(fields.Tone, fields.Urgency)
	t.log("Determined chained action: %s", action)

	e.logger.InfoContext(ctx, "email extracted", "urgency", fields.Urgency, "tone", fields.Tone, "chained_action", action)

	return Result{
		ExtractedFields: map[string]any{
			"sender":        fields.Sender,
			"subject":       fields.Subject,
			"urgency":       string(fields.Urgency),
			"tone":          string(fields.Tone),
			"issue_request": fields.IssueRequest,
			"action_needed": fields.ActionNeeded,
		},
		DecisionTrace:  t.lines,
		ChainedAction:  action,
		TriggerContext: trigger,
	}
}

func (e *Email) extract(ctx context.Context, text string, t *tracer) (emailFields, error) {
	prompt, err := prompts.Compose(prompts.StageEmail, text)
	if err != nil {
		return emailFields{}, err
	}

	raw, err := e.client.Generate(ctx, prompt)
	if err != nil {
		return emailFields{}, err
	}
	t.log("Model raw email extraction output: %s", raw)

	fields, err := formatting.Parse[emailFields](raw)
	if err != nil {
		return emailFields{}, err
	}

	if fields.Urgency == "" {
		fields.Urgency = UrgencyUnknown
	}
	if fields.Tone == "" {
		fields.Tone = ToneUnknown
	}

	return fields, nil
}

func emailAction(tone Tone, urgency Urgency) ChainedAction {
	switch {
	case tone == ToneEscalation || urgency.Elevated():
		return ActionEscalateCRM
	case tone == ToneThreatening:
		return ActionFlagRiskEscalate
	default:
		return ActionLogAndClose
	}
}
