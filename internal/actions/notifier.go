package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/JaimeStill/dispatch/internal/extract"
	"github.com/JaimeStill/dispatch/pkg/retry"
)

// Payload is the body delivered to a side-effect endpoint.
type Payload struct {
	Type    string                 `json:"type"`
	Details extract.TriggerContext `json:"details"`
}

// Request is a single side-effect invocation.
type Request struct {
	Action  Action  `json:"action"`
	Payload Payload `json:"payload"`
}

// Notifier performs an external side effect and returns a status line.
// Rejections are returned as *retry.StatusError; connectivity failures are
// returned unwrapped so retry.IsTransient can classify them.
type Notifier interface {
	Notify(ctx context.Context, req Request) (string, error)
}

// Simulated reports what would have been sent without contacting anything.
type Simulated struct{}

func (Simulated) Notify(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req.Payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return fmt.Sprintf("%s simulated: %s", req.Action.Label(), body), nil
}

// Webhook posts requests as JSON to a per-action endpoint. Actions without
// an endpoint fall back to Simulated.
type Webhook struct {
	endpoints map[Action]string
	client    *http.Client
}

// NewWebhook creates a webhook notifier from the configured endpoints.
func NewWebhook(cfg *Config, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{
			Timeout:   cfg.TimeoutDuration(),
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	endpoints := make(map[Action]string)
	if cfg.CRMURL != "" {
		endpoints[ActionCRMEscalation] = cfg.CRMURL
	}
	if cfg.RiskURL != "" {
		endpoints[ActionRiskAlert] = cfg.RiskURL
	}

	return &Webhook{endpoints: endpoints, client: client}
}

func (w *Webhook) Notify(ctx context.Context, req Request) (string, error) {
	url, ok := w.endpoints[req.Action]
	if !ok {
		return Simulated{}.Notify(ctx, req)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &retry.StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	return fmt.Sprintf("%s succeeded: %d", req.Action.Label(), resp.StatusCode), nil
}
