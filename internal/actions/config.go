package actions

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

// Config holds side-effect endpoint parameters. An empty URL selects the
// simulated notifier for that action.
type Config struct {
	CRMURL   string `toml:"crm_url"`
	RiskURL  string `toml:"risk_url"`
	Timeout  string `toml:"timeout"`
	RetryCap string `toml:"retry_cap"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	CRMURL   string
	RiskURL  string
	Timeout  string
	RetryCap string
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
	if overlay.CRMURL != "" {
		c.CRMURL = overlay.CRMURL
	}
	if overlay.RiskURL != "" {
		c.RiskURL = overlay.RiskURL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.RetryCap != "" {
		c.RetryCap = overlay.RetryCap
	}
}

func (c *Config) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "5s"
	}
	if c.RetryCap == "" {
		c.RetryCap = "5s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.CRMURL != "" {
		if v := os.Getenv(env.CRMURL); v != "" {
			c.CRMURL = v
		}
	}
	if env.RiskURL != "" {
		if v := os.Getenv(env.RiskURL); v != "" {
			c.RiskURL = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.RetryCap != "" {
		if v := os.Getenv(env.RetryCap); v != "" {
			c.RetryCap = v
		}
	}
}

func (c *Config) validate() error {
	for name, raw := range map[string]string{"crm_url": c.CRMURL, "risk_url": c.RiskURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: %q", name, raw)
		}
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.RetryCap); err != nil {
		return fmt.Errorf("invalid retry_cap: %w", err)
	}
	return nil
}
