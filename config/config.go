// Package config loads the service configuration from file, environment and
// defaults.
package config

import (
	"fmt"
	"time"

	"github.com/supbro-dev/Wagner-agent/tool"
	"github.com/supbro-dev/Wagner-agent/tool/remote"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Model   ModelConfig   `mapstructure:"model"`
	Storage StorageConfig `mapstructure:"storage"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Agents  []AgentConfig `mapstructure:"agents"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or text
}

// ModelConfig selects and configures the chat model provider.
type ModelConfig struct {
	Provider string `mapstructure:"provider"` // openai, anthropic, mock
	Name     string `mapstructure:"name"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// StorageConfig configures the task database.
type StorageConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
}

// RedisConfig configures the optional Redis backend for sessions and the
// task retrieval index. When disabled both fall back to in-memory stores.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AgentConfig declares one analyst agent. Tools are HTTP-backed data tools
// substituted from {placeholder} URL templates; tool services are remote
// tool-services whose operations are discovered when the agent is built.
type AgentConfig struct {
	BusinessKey  string            `mapstructure:"business_key"`
	SystemPrompt string            `mapstructure:"system_prompt"`
	Tools        []tool.Definition `mapstructure:"tools"`
	ToolServices []remote.Service  `mapstructure:"tool_services"`
}

// AgentConfigs returns all declared agents, merging the single-agent
// shorthand with the agents list.
func (c *Config) AgentConfigs() []AgentConfig {
	agents := c.Agents
	if c.Agent.BusinessKey != "" {
		agents = append([]AgentConfig{c.Agent}, agents...)
	}
	return agents
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	switch c.Model.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("config: unknown model provider %q", c.Model.Provider)
	}
	if c.Storage.SQLitePath == "" {
		return fmt.Errorf("config: storage.sqlite_path is required")
	}
	agents := c.AgentConfigs()
	if len(agents) == 0 {
		return fmt.Errorf("config: at least one agent must be configured")
	}
	seen := make(map[string]bool, len(agents))
	for _, a := range agents {
		if a.BusinessKey == "" {
			return fmt.Errorf("config: agent with empty business_key")
		}
		if seen[a.BusinessKey] {
			return fmt.Errorf("config: duplicate agent business_key %q", a.BusinessKey)
		}
		seen[a.BusinessKey] = true
		for _, svc := range a.ToolServices {
			if svc.Name == "" || svc.BaseURL == "" {
				return fmt.Errorf("config: agent %q: tool_services entries need name and base_url", a.BusinessKey)
			}
		}
	}
	return nil
}
