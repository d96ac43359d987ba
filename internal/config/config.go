// Package config loads the service configuration from config.toml, an
// optional environment overlay, and DISPATCH_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/dispatch/internal/actions"
	"github.com/JaimeStill/dispatch/internal/pipeline"
	"github.com/JaimeStill/dispatch/pkg/database"
	"github.com/JaimeStill/dispatch/pkg/llm"
	"github.com/JaimeStill/dispatch/pkg/storage"
	"github.com/JaimeStill/dispatch/pkg/telemetry"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvDispatchEnv             = "DISPATCH_ENV"
	EnvDispatchShutdownTimeout = "DISPATCH_SHUTDOWN_TIMEOUT"
	EnvDispatchVersion         = "DISPATCH_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "DISPATCH_DB_HOST",
	Port:            "DISPATCH_DB_PORT",
	Name:            "DISPATCH_DB_NAME",
	User:            "DISPATCH_DB_USER",
	Password:        "DISPATCH_DB_PASSWORD",
	SSLMode:         "DISPATCH_DB_SSL_MODE",
	MaxOpenConns:    "DISPATCH_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "DISPATCH_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "DISPATCH_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "DISPATCH_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "DISPATCH_STORAGE_CONTAINER_NAME",
	ConnectionString: "DISPATCH_STORAGE_CONNECTION_STRING",
	ServiceURL:       "DISPATCH_STORAGE_SERVICE_URL",
}

var llmEnv = &llm.Env{
	Timeout:   "DISPATCH_LLM_TIMEOUT",
	RateLimit: "DISPATCH_LLM_RATE_LIMIT",
	Burst:     "DISPATCH_LLM_BURST",
	RetryCap:  "DISPATCH_LLM_RETRY_CAP",
}

var actionsEnv = &actions.Env{
	CRMURL:   "DISPATCH_ACTIONS_CRM_URL",
	RiskURL:  "DISPATCH_ACTIONS_RISK_URL",
	Timeout:  "DISPATCH_ACTIONS_TIMEOUT",
	RetryCap: "DISPATCH_ACTIONS_RETRY_CAP",
}

var pipelineEnv = &pipeline.Env{
	StoreTimeout: "DISPATCH_PIPELINE_STORE_TIMEOUT",
	BatchLimit:   "DISPATCH_PIPELINE_BATCH_LIMIT",
	Workers:      "DISPATCH_PIPELINE_WORKERS",
}

var telemetryEnv = &telemetry.Env{
	Enabled:     "DISPATCH_TELEMETRY_ENABLED",
	ServiceName: "DISPATCH_TELEMETRY_SERVICE_NAME",
	SampleRatio: "DISPATCH_TELEMETRY_SAMPLE_RATIO",
}

// Config is the root configuration for the dispatch service.
type Config struct {
	Server          ServerConfig         `toml:"server"`
	Log             LogConfig            `toml:"log"`
	Database        database.Config      `toml:"database"`
	Storage         storage.Config       `toml:"storage"`
	API             APIConfig            `toml:"api"`
	Agent           gaconfig.AgentConfig `toml:"agent"`
	LLM             llm.Config           `toml:"llm"`
	Actions         actions.Config       `toml:"actions"`
	Pipeline        pipeline.Config      `toml:"pipeline"`
	Telemetry       telemetry.Config     `toml:"telemetry"`
	ShutdownTimeout string               `toml:"shutdown_timeout"`
	Version         string               `toml:"version"`
}

// Env returns the DISPATCH_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvDispatchEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. Without a config.toml, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	return LoadFrom(BaseConfigFile)
}

// LoadFrom is Load with an explicit base file path. The overlay is looked up
// beside it.
func LoadFrom(base string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(base); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Log.Merge(&overlay.Log)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Agent.Merge(&overlay.Agent)
	c.LLM.Merge(&overlay.LLM)
	c.Actions.Merge(&overlay.Actions)
	c.Pipeline.Merge(&overlay.Pipeline)
	c.Telemetry.Merge(&overlay.Telemetry)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Log.Finalize(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := FinalizeAgent(&c.Agent); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.LLM.Finalize(llmEnv); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Actions.Finalize(actionsEnv); err != nil {
		return fmt.Errorf("actions: %w", err)
	}
	if err := c.Pipeline.Finalize(pipelineEnv); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.Telemetry.Finalize(telemetryEnv); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvDispatchShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvDispatchVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(base string) string {
	env := os.Getenv(EnvDispatchEnv)
	if env == "" {
		return ""
	}
	path := filepath.Join(filepath.Dir(base), fmt.Sprintf(OverlayConfigPattern, env))
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
