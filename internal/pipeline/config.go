package pipeline

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"
)

// Config holds run orchestration parameters.
type Config struct {
	StoreTimeout string `toml:"store_timeout"`
	BatchLimit   int    `toml:"batch_limit"`
	Workers      int    `toml:"workers"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	StoreTimeout string
	BatchLimit   string
	Workers      string
}

// StoreTimeoutDuration returns StoreTimeout as a time.Duration.
func (c *Config) StoreTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.StoreTimeout)
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
	if overlay.StoreTimeout != "" {
		c.StoreTimeout = overlay.StoreTimeout
	}
	if overlay.BatchLimit != 0 {
		c.BatchLimit = overlay.BatchLimit
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
}

func (c *Config) loadDefaults() {
	if c.StoreTimeout == "" {
		c.StoreTimeout = "10s"
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = 25
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.StoreTimeout != "" {
		if v := os.Getenv(env.StoreTimeout); v != "" {
			c.StoreTimeout = v
		}
	}
	if env.BatchLimit != "" {
		if v := os.Getenv(env.BatchLimit); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.BatchLimit = n
			}
		}
	}
	if env.Workers != "" {
		if v := os.Getenv(env.Workers); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.Workers = n
			}
		}
	}
}

func (c *Config) validate() error {
	d, err := time.ParseDuration(c.StoreTimeout)
	if err != nil {
		return fmt.Errorf("invalid store_timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("store_timeout must be positive")
	}
	return nil
}

func (c *Config) workerCount(n int) int {
	return max(min(c.Workers, n), 1)
}
