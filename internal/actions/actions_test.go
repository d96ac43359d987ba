package actions_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/dispatch/internal/actions"
	"github.com/JaimeStill/dispatch/internal/classify"
	"github.com/JaimeStill/dispatch/internal/extract"
	"github.com/JaimeStill/dispatch/pkg/retry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeNotifier struct {
	errs     []error
	calls    int
	requests []actions.Request
}

func (f *fakeNotifier) Notify(ctx context.Context, req actions.Request) (string, error) {
	f.calls++
	f.requests = append(f.requests, req)
	if len(f.errs) >= f.calls && f.errs[f.calls-1] != nil {
		return "", f.errs[f.calls-1]
	}
	return "delivered " + string(req.Action), nil
}

func newResolver(n actions.Notifier, delays *[]time.Duration) *actions.Resolver {
	cfg := &actions.Config{}
	if err := cfg.Finalize(nil); err != nil {
		panic(err)
	}
	return actions.New(n, cfg, discardLogger(), actions.WithRetryPolicy(retry.Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     cfg.RetryCapDuration(),
		Sleep: func(ctx context.Context, d time.Duration) error {
			if delays != nil {
				*delays = append(*delays, d)
			}
			return nil
		},
	}))
}

func TestSelectPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		intent   classify.Intent
		chained  extract.ChainedAction
		trigger  extract.TriggerContext
		want     actions.Action
		wantRule string
	}{
		{
			name:     "chained routine beats complaint rule",
			intent:   classify.IntentComplaint,
			chained:  extract.ActionLogAndClose,
			trigger:  extract.TriggerContext{extract.KeyUrgency: "Critical"},
			want:     actions.ActionLogAndClose,
			wantRule: "Routine Processed (Log and Close)",
		},
		{
			name:     "chained escalation",
			intent:   classify.IntentRFQ,
			chained:  extract.ActionEscalateCRM,
			want:     actions.ActionCRMEscalation,
			wantRule: "Specialized Agent Escalation (CRM)",
		},
		{
			name:     "threatening flags risk",
			intent:   classify.IntentComplaint,
			chained:  extract.ActionFlagRiskEscalate,
			want:     actions.ActionRiskAlert,
			wantRule: "Specialized Agent Risk Flag (Escalate)",
		},
		{
			name:     "fraud flag is a risk alert",
			intent:   classify.IntentFraudRisk,
			chained:  extract.ActionFlagFraudRisk,
			trigger:  extract.TriggerContext{extract.KeyRiskLevel: "High"},
			want:     actions.ActionRiskAlert,
			wantRule: "Fraud Risk Flagged",
		},
		{
			name:     "anomaly is logged",
			intent:   classify.IntentInvoice,
			chained:  extract.ActionLogAnomaly,
			trigger:  extract.TriggerContext{extract.KeyInvoiceTotal: 50000.0},
			want:     actions.ActionLogAndClose,
			wantRule: "Anomaly Logged",
		},
		{
			name:     "complaint intent rule",
			intent:   classify.IntentComplaint,
			trigger:  extract.TriggerContext{extract.KeyUrgency: "High"},
			want:     actions.ActionCRMEscalation,
			wantRule: "Classifier-driven Complaint Escalation",
		},
		{
			name:     "unrecognized chained action falls through",
			intent:   classify.IntentFraudRisk,
			chained:  extract.ChainedAction("Call Legal"),
			trigger:  extract.TriggerContext{extract.KeyRiskLevel: "High"},
			want:     actions.ActionRiskAlert,
			wantRule: "Classifier-driven Fraud Risk Detected",
		},
		{
			name:     "invoice intent rule",
			intent:   classify.IntentInvoice,
			trigger:  extract.TriggerContext{extract.KeyInvoiceTotal: 10000.01},
			want:     actions.ActionRiskAlert,
			wantRule: "Classifier-driven High Value Invoice Alert",
		},
		{
			name:     "regulation intent rule",
			intent:   classify.IntentRegulation,
			trigger:  extract.TriggerContext{extract.KeyComplianceKeywords: []string{"GDPR"}},
			want:     actions.ActionRiskAlert,
			wantRule: "Classifier-driven Compliance Risk Flagged",
		},
		{
			name:     "regulation without keywords",
			intent:   classify.IntentRegulation,
			trigger:  extract.TriggerContext{extract.KeyComplianceKeywords: []string{}},
			want:     actions.ActionLogAndClose,
			wantRule: "Routine Processing (Default)",
		},
		{
			name:     "complaint with low urgency",
			intent:   classify.IntentComplaint,
			trigger:  extract.TriggerContext{extract.KeyUrgency: "Low"},
			want:     actions.ActionLogAndClose,
			wantRule: "Routine Processing (Default)",
		},
		{
			name:     "nothing matches",
			intent:   classify.IntentUnknown,
			want:     actions.ActionLogAndClose,
			wantRule: "Routine Processing (Default)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := tt.trigger
			if trigger == nil {
				trigger = extract.TriggerContext{}
			}
			action, rule := actions.Select(tt.intent, tt.chained, trigger)
			if action != tt.want {
				t.Errorf("action = %s, want %s", action, tt.want)
			}
			if rule != tt.wantRule {
				t.Errorf("rule = %q, want %q", rule, tt.wantRule)
			}
		})
	}
}

func TestResolveSimulated(t *testing.T) {
	r := newResolver(actions.Simulated{}, nil)
	trigger := extract.TriggerContext{extract.KeyUrgency: "High", extract.KeyTone: "Escalation"}

	out := r.Resolve(context.Background(), classify.IntentComplaint, extract.ActionEscalateCRM, trigger)

	if out.Action != actions.ActionCRMEscalation {
		t.Fatalf("action = %s, want crm_escalation", out.Action)
	}
	if !strings.HasPrefix(out.Status, "CRM escalation simulated: ") {
		t.Errorf("status = %q", out.Status)
	}

	var payload actions.Payload
	if err := json.Unmarshal([]byte(strings.TrimPrefix(out.Status, "CRM escalation simulated: ")), &payload); err != nil {
		t.Fatalf("status payload not JSON: %v", err)
	}
	if payload.Type != "Specialized Agent Escalation (CRM)" {
		t.Errorf("payload type = %q", payload.Type)
	}
	if payload.Details.String(extract.KeyTone) != "Escalation" {
		t.Errorf("payload details = %v", payload.Details)
	}
	if out.Attempts != 1 || out.Failed {
		t.Errorf("attempts = %d failed = %v, want 1 false", out.Attempts, out.Failed)
	}
	for _, line := range out.Trace {
		if !strings.HasPrefix(line, "[ActionRouter] ") {
			t.Errorf("trace line missing prefix: %q", line)
		}
	}
}

func TestResolveTransientExhaustion(t *testing.T) {
	n := &fakeNotifier{errs: []error{
		retry.Transient(errors.New("connection refused")),
		retry.Transient(errors.New("connection refused")),
		retry.Transient(errors.New("connection refused")),
	}}
	var delays []time.Duration
	r := newResolver(n, &delays)

	out := r.Resolve(context.Background(), classify.IntentComplaint, extract.ActionEscalateCRM, extract.TriggerContext{})

	if n.calls != 3 {
		t.Errorf("calls = %d, want 3", n.calls)
	}
	if want := "CRM escalation failed (transient, 3 attempts): connection refused"; out.Status != want {
		t.Errorf("status = %q, want %q", out.Status, want)
	}
	if !out.Failed {
		t.Error("Failed = false, want true")
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Errorf("delays = %v, want [1s 2s]", delays)
	}
}

func TestResolveTerminalRejection(t *testing.T) {
	n := &fakeNotifier{errs: []error{&retry.StatusError{StatusCode: 503, Body: "maintenance"}}}
	r := newResolver(n, nil)

	out := r.Resolve(context.Background(), classify.IntentInvoice, extract.ActionFlagHighValueInvoice, extract.TriggerContext{})

	if n.calls != 1 {
		t.Errorf("calls = %d, want 1", n.calls)
	}
	if want := "Risk alert failed (HTTP error 503): maintenance"; out.Status != want {
		t.Errorf("status = %q, want %q", out.Status, want)
	}
}

func TestResolveRecovers(t *testing.T) {
	n := &fakeNotifier{errs: []error{retry.Transient(errors.New("reset"))}}
	r := newResolver(n, nil)

	out := r.Resolve(context.Background(), classify.IntentRegulation, extract.ActionFlagComplianceRisk, extract.TriggerContext{})

	if out.Status != "delivered risk_alert" {
		t.Errorf("status = %q", out.Status)
	}
	if out.Attempts != 2 || out.Failed {
		t.Errorf("attempts = %d failed = %v, want 2 false", out.Attempts, out.Failed)
	}
}

func TestResolveLogAndCloseIsLocal(t *testing.T) {
	n := &fakeNotifier{errs: []error{retry.Transient(errors.New("unreachable"))}}
	r := newResolver(n, nil)

	out := r.Resolve(context.Background(), classify.IntentRFQ, extract.ActionProcessJSON, extract.TriggerContext{"k": "v"})

	if n.calls != 0 {
		t.Errorf("notifier calls = %d, want 0", n.calls)
	}
	if !strings.HasPrefix(out.Status, "Interaction logged and closed (routine): ") {
		t.Errorf("status = %q", out.Status)
	}
	if !strings.Contains(out.Status, `"type":"Routine Processed (Process JSON Data)"`) {
		t.Errorf("status missing rule: %q", out.Status)
	}
	if out.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", out.Attempts)
	}
}

func TestWebhook(t *testing.T) {
	var got actions.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		if r.URL.Path == "/risk" {
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, "upstream")
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	cfg := &actions.Config{CRMURL: srv.URL + "/crm", RiskURL: srv.URL + "/risk"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	w := actions.NewWebhook(cfg, srv.Client())

	status, err := w.Notify(context.Background(), actions.Request{
		Action:  actions.ActionCRMEscalation,
		Payload: actions.Payload{Type: "T", Details: extract.TriggerContext{"sender": "a@b.c"}},
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if status != "CRM escalation succeeded: 202" {
		t.Errorf("status = %q", status)
	}
	if got.Action != actions.ActionCRMEscalation || got.Payload.Details.String("sender") != "a@b.c" {
		t.Errorf("request = %+v", got)
	}

	_, err = w.Notify(context.Background(), actions.Request{Action: actions.ActionRiskAlert})
	var se *retry.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway || se.Body != "upstream" {
		t.Errorf("err = %v, want StatusError 502", err)
	}
	if retry.IsTransient(err) {
		t.Error("status rejection should be terminal")
	}
}

func TestWebhookFallsBackToSimulated(t *testing.T) {
	cfg := &actions.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	status, err := actions.NewWebhook(cfg, nil).Notify(context.Background(), actions.Request{
		Action:  actions.ActionRiskAlert,
		Payload: actions.Payload{Type: "Compliance Risk Flagged"},
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if !strings.HasPrefix(status, "Risk alert simulated: ") {
		t.Errorf("status = %q", status)
	}
}

func TestWebhookUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := &actions.Config{CRMURL: url}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	_, err := actions.NewWebhook(cfg, &http.Client{Timeout: time.Second}).Notify(
		context.Background(),
		actions.Request{Action: actions.ActionCRMEscalation},
	)
	if !retry.IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
}

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := &actions.Config{}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatal(err)
		}
		if cfg.TimeoutDuration() != 5*time.Second || cfg.RetryCapDuration() != 5*time.Second {
			t.Errorf("timeout = %v cap = %v", cfg.TimeoutDuration(), cfg.RetryCapDuration())
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("TEST_ACTIONS_CRM_URL", "https://crm.example.com/hook")
		cfg := &actions.Config{}
		if err := cfg.Finalize(&actions.Env{CRMURL: "TEST_ACTIONS_CRM_URL"}); err != nil {
			t.Fatal(err)
		}
		if cfg.CRMURL != "https://crm.example.com/hook" {
			t.Errorf("crm url = %q", cfg.CRMURL)
		}
	})

	t.Run("invalid url", func(t *testing.T) {
		cfg := &actions.Config{RiskURL: "not a url"}
		if err := cfg.Finalize(nil); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("merge", func(t *testing.T) {
		cfg := &actions.Config{Timeout: "5s", RetryCap: "5s"}
		cfg.Merge(&actions.Config{RetryCap: "2s"})
		if cfg.RetryCap != "2s" || cfg.Timeout != "5s" {
			t.Errorf("merged = %+v", cfg)
		}
	})
}
