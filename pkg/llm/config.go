package llm

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config bounds how often and how long the service waits on the model.
// Provider and model selection live in the go-agents AgentConfig.
type Config struct {
	Timeout   string  `toml:"timeout"`
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
	RetryCap  string  `toml:"retry_cap"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Timeout   string
	RateLimit string
	Burst     string
	RetryCap  string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// RetryCapDuration returns RetryCap as a time.Duration.
func (c *Config) RetryCapDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryCap)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.RateLimit != 0 {
		c.RateLimit = overlay.RateLimit
	}
	if overlay.Burst != 0 {
		c.Burst = overlay.Burst
	}
	if overlay.RetryCap != "" {
		c.RetryCap = overlay.RetryCap
	}
}

func (c *Config) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 1
	}
	if c.Burst <= 0 {
		c.Burst = 5
	}
	if c.RetryCap == "" {
		c.RetryCap = "10s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if v := getenv(env.Timeout); v != "" {
		c.Timeout = v
	}
	if v := getenv(env.RetryCap); v != "" {
		c.RetryCap = v
	}
	if f, err := strconv.ParseFloat(getenv(env.RateLimit), 64); err == nil && f > 0 {
		c.RateLimit = f
	}
	if n, err := strconv.Atoi(getenv(env.Burst)); err == nil && n > 0 {
		c.Burst = n
	}
}

func getenv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.RetryCap); err != nil {
		return fmt.Errorf("invalid retry_cap: %w", err)
	}
	if c.Burst < 1 {
		return errors.New("burst must be at least 1")
	}
	return nil
}
