package config

import (
	"errors"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvAgentName         = "DISPATCH_AGENT_NAME"
	EnvAgentProviderName = "DISPATCH_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "DISPATCH_AGENT_BASE_URL"
	EnvAgentToken        = "DISPATCH_AGENT_TOKEN"
	EnvAgentDeployment   = "DISPATCH_AGENT_DEPLOYMENT"
	EnvAgentAPIVersion   = "DISPATCH_AGENT_API_VERSION"
	EnvAgentAuthType     = "DISPATCH_AGENT_AUTH_TYPE"
	EnvAgentModelName    = "DISPATCH_AGENT_MODEL_NAME"
)

const (
	defaultAgentName  = "dispatch"
	defaultAgentModel = "llama3.1:8b"
)

// FinalizeAgent finalizes a go-agents AgentConfig: go-agents defaults,
// then DISPATCH_AGENT_* overrides, then validation.
//
// The go-agents client never retries. Model calls are retried by pkg/llm,
// which treats every status rejection as terminal.
func FinalizeAgent(c *gaconfig.AgentConfig) error {
	loadAgentDefaults(c)
	loadAgentEnv(c)
	return validateAgent(c)
}

// AgentToken returns the provider token option, or "" when none is set.
func AgentToken(c *gaconfig.AgentConfig) string {
	if c.Provider == nil {
		return ""
	}
	token, _ := c.Provider.Options["token"].(string)
	return token
}

func loadAgentDefaults(c *gaconfig.AgentConfig) {
	defaults := gaconfig.DefaultAgentConfig()
	defaults.Name = defaultAgentName
	defaults.Model.Name = defaultAgentModel
	defaults.Model.Capabilities["chat"] = map[string]any{"temperature": 0.0}
	defaults.Merge(c)
	*c = defaults

	if c.Provider.Options == nil {
		c.Provider.Options = make(map[string]any)
	}
	c.Client.Retry.MaxRetries = 0
}

func loadAgentEnv(c *gaconfig.AgentConfig) {
	if v := os.Getenv(EnvAgentName); v != "" {
		c.Name = v
	}
	if v := os.Getenv(EnvAgentProviderName); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv(EnvAgentBaseURL); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv(EnvAgentModelName); v != "" {
		c.Model.Name = v
	}

	options := []struct {
		env string
		key string
	}{
		{EnvAgentToken, "token"},
		{EnvAgentDeployment, "deployment"},
		{EnvAgentAPIVersion, "api_version"},
		{EnvAgentAuthType, "auth_type"},
	}
	for _, o := range options {
		if v := os.Getenv(o.env); v != "" {
			c.Provider.Options[o.key] = v
		}
	}
}

func validateAgent(c *gaconfig.AgentConfig) error {
	if c.Name == "" {
		return errors.New("name required")
	}
	if c.Provider.Name == "" {
		return errors.New("provider name required")
	}
	if c.Model.Name == "" {
		return errors.New("model name required")
	}
	return nil
}
