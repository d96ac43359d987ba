// Package llm adapts a go-agents chat agent into the rate-limited,
// retry-protected capability the classifier and extractors call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JaimeStill/go-agents/pkg/agent"
	"github.com/JaimeStill/go-agents/pkg/client"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/JaimeStill/dispatch/pkg/retry"
)

// ErrEmptyResponse indicates the model returned no text.
var ErrEmptyResponse = errors.New("llm returned no content")

var tracer = otel.Tracer("github.com/JaimeStill/dispatch/pkg/llm")

// Client sends a single prompt and returns the raw model text.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type chatClient struct {
	agent   agent.Agent
	limiter *rate.Limiter
	policy  retry.Policy
	logger  *slog.Logger
}

// Option mutates client construction.
type Option func(*chatClient)

// WithRetryPolicy overrides the retry policy derived from Config.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *chatClient) { c.policy = p }
}

// New creates a go-agents agent from agentCfg and wraps it. agentCfg
// should already be finalized.
func New(agentCfg *gaconfig.AgentConfig, cfg *Config, logger *slog.Logger, opts ...Option) (Client, error) {
	a, err := agent.New(agentCfg)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return FromAgent(a, cfg, logger, opts...), nil
}

// FromAgent wraps an existing agent.
func FromAgent(a agent.Agent, cfg *Config, logger *slog.Logger, opts ...Option) Client {
	c := &chatClient{
		agent:   a,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		policy: retry.Policy{
			MaxAttempts:    3,
			InitialDelay:   time.Second,
			MaxDelay:       cfg.RetryCapDuration(),
			AttemptTimeout: cfg.TimeoutDuration(),
		},
		logger: logger.With("system", "llm", "agent", a.ID()),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.logger.Warn("llm call failed, retrying", "attempt", attempt, "delay", delay, "error", err)
	}

	return c
}

func (c *chatClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.generate")
	defer span.End()

	if m := c.agent.Model(); m != nil {
		span.SetAttributes(attribute.String("llm.model", m.Name))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	text, err := retry.Do(ctx, c.policy, c.chat(prompt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Int("llm.attempts", retry.Attempts(err)))
		return "", err
	}
	return text, nil
}

func (c *chatClient) chat(prompt string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		resp, err := c.agent.Chat(ctx, prompt)
		if err != nil {
			return "", mapError(err)
		}
		if resp == nil {
			return "", ErrEmptyResponse
		}

		text := resp.Text()
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptyResponse
		}
		return text, nil
	}
}

// mapError converts go-agents status failures into terminal
// rejections. Transport errors pass through for retry classification.
func mapError(err error) error {
	var status *client.HTTPStatusError
	if errors.As(err, &status) {
		return &retry.StatusError{StatusCode: status.StatusCode, Body: string(status.Body)}
	}
	return err
}
