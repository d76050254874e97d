package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/supbro-dev/Wagner-agent/tool/remote"
)

func TestLoader_Defaults(t *testing.T) {
	loader := NewLoader().WithConfigFile(emptyConfigFile(t))
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if got := cfg.Server.WriteTimeout.String(); got != "5m0s" {
		t.Errorf("Server.WriteTimeout = %q, want %q", got, "5m0s")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.Model.Provider != "openai" {
		t.Errorf("Model.Provider = %q, want %q", cfg.Model.Provider, "openai")
	}
	if cfg.Storage.SQLitePath != "data/wagner.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "data/wagner.db")
	}
	if cfg.Redis.Enabled {
		t.Error("Redis.Enabled = true, want false (default)")
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, want %q", cfg.Redis.Addr, "localhost:6379")
	}
}

func TestLoader_EnvOverride(t *testing.T) {
	os.Setenv("WAGNER_LOG_LEVEL", "debug")
	os.Setenv("WAGNER_SERVER_PORT", "9090")
	os.Setenv("WAGNER_MODEL_PROVIDER", "anthropic")
	defer func() {
		os.Unsetenv("WAGNER_LOG_LEVEL")
		os.Unsetenv("WAGNER_SERVER_PORT")
		os.Unsetenv("WAGNER_MODEL_PROVIDER")
	}()

	loader := NewLoader().WithConfigFile(emptyConfigFile(t))
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Model.Provider != "anthropic" {
		t.Errorf("Model.Provider = %q, want %q", cfg.Model.Provider, "anthropic")
	}
}

func TestLoader_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wagner.yaml")
	yaml := `
server:
  port: 7070
model:
  provider: mock
agent:
  business_key: acme
  system_prompt: "You are the analyst."
  tools:
    - name: order_stats
      description: "Order statistics by day."
      url: "https://data.internal/orders?day={day}"
      args:
        day: "Day of week."
  tool_services:
    - name: metrics
      base_url: "https://tools.internal/metrics"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 7070)
	}
	if cfg.Model.Provider != "mock" {
		t.Errorf("Model.Provider = %q, want %q", cfg.Model.Provider, "mock")
	}
	agents := cfg.AgentConfigs()
	if len(agents) != 1 || agents[0].BusinessKey != "acme" {
		t.Fatalf("AgentConfigs() = %+v, want one acme agent", agents)
	}
	if len(agents[0].Tools) != 1 || agents[0].Tools[0].Name != "order_stats" {
		t.Errorf("agent tools = %+v, want order_stats", agents[0].Tools)
	}
	if len(agents[0].ToolServices) != 1 || agents[0].ToolServices[0].Name != "metrics" {
		t.Errorf("agent tool services = %+v, want metrics", agents[0].ToolServices)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Model:   ModelConfig{Provider: "mock"},
			Storage: StorageConfig{SQLitePath: "data/wagner.db"},
			Agent:   AgentConfig{BusinessKey: "acme"},
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"bad provider", func(c *Config) { c.Model.Provider = "gemini" }, "unknown model provider"},
		{"missing sqlite path", func(c *Config) { c.Storage.SQLitePath = "" }, "sqlite_path is required"},
		{"no agents", func(c *Config) { c.Agent = AgentConfig{} }, "at least one agent"},
		{"duplicate business key", func(c *Config) {
			c.Agents = []AgentConfig{{BusinessKey: "acme"}}
		}, "duplicate agent business_key"},
		{"tool service without base url", func(c *Config) {
			c.Agent.ToolServices = []remote.Service{{Name: "metrics"}}
		}, "tool_services entries need name and base_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

// emptyConfigFile pins the loader to a throwaway file so a wagner.yaml in the
// working directory cannot leak into test results.
func emptyConfigFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wagner.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
