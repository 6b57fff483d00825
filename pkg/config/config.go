// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads spindle configuration from a YAML file, environment
// variables, and defaults via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigFileName is the config file name searched for when no
// explicit path is given (spindle.yaml).
const DefaultConfigFileName = "spindle"

// Config holds all configuration for spindle.
// Priority: CLI flags > config file > env vars > defaults
type Config struct {
	// Engine configuration (which database the agent queries)
	Engine EngineConfig `mapstructure:"engine"`

	// Agent configuration (LLM, timeouts, limits)
	Agent AgentConfig `mapstructure:"agent"`

	// Cache configuration (schema cache refresh)
	Cache CacheConfig `mapstructure:"cache"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig holds query engine configuration.
type EngineConfig struct {
	// Driver selects the SQL driver: mysql, postgres, or sqlite
	Driver string `mapstructure:"driver"`

	// DSN is the driver-specific connection string
	DSN string `mapstructure:"dsn"`

	// Dataset is the logical dataset (schema) the agent works against
	Dataset string `mapstructure:"dataset"`

	// Project scopes the dataset on engines that have a project level
	// above the schema; SQL engines ignore it
	Project string `mapstructure:"project"`

	// MaxRows is appended as a LIMIT to statements without one (0 disables)
	MaxRows int `mapstructure:"max_rows"`
}

// AgentConfig holds agent runtime configuration.
type AgentConfig struct {
	// AnthropicAPIKey is read from SPINDLE_AGENT_ANTHROPIC_API_KEY or the
	// SDK's own environment lookup; never put it in the config file.
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`

	// AnthropicModel is the model used by the enrichment actor
	AnthropicModel string `mapstructure:"anthropic_model"`

	// MaxTokens per enrichment request (default: 4096)
	MaxTokens int `mapstructure:"max_tokens"`

	// InvocationTimeoutSeconds bounds one full agent invocation (default: 120)
	InvocationTimeoutSeconds int `mapstructure:"invocation_timeout_seconds"`
}

// CacheConfig holds schema-cache configuration.
type CacheConfig struct {
	// RefreshSchedule is an optional cron expression for periodic schema
	// cache eviction (empty = never refresh automatically)
	RefreshSchedule string `mapstructure:"refresh_schedule"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// Load reads configuration with proper priority:
// 1. Config file (explicit path, or spindle.yaml in . and /etc/spindle/)
// 2. Environment variables (SPINDLE_ prefix, e.g. SPINDLE_ENGINE_DSN)
// 3. Defaults
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/spindle/")
		v.SetConfigName(DefaultConfigFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
		// Config file not found; using defaults + env vars
	}

	v.SetEnvPrefix("SPINDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Engine defaults
	v.SetDefault("engine.driver", "sqlite")
	v.SetDefault("engine.dsn", "spindle.db")
	v.SetDefault("engine.dataset", "")
	v.SetDefault("engine.max_rows", 1000)

	// Agent defaults
	v.SetDefault("agent.anthropic_model", "claude-sonnet-4-5")
	v.SetDefault("agent.max_tokens", 4096)
	v.SetDefault("agent.invocation_timeout_seconds", 120)

	// Cache defaults
	v.SetDefault("cache.refresh_schedule", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Engine.Driver {
	case "sqlite", "mysql", "postgres":
	case "":
		return fmt.Errorf("engine.driver is required")
	default:
		return fmt.Errorf("unsupported engine driver: %s (must be sqlite, mysql, or postgres)", c.Engine.Driver)
	}

	if c.Engine.DSN == "" {
		return fmt.Errorf("engine.dsn is required")
	}
	if c.Engine.MaxRows < 0 {
		return fmt.Errorf("engine.max_rows must not be negative: %d", c.Engine.MaxRows)
	}
	if c.Agent.InvocationTimeoutSeconds <= 0 {
		return fmt.Errorf("agent.invocation_timeout_seconds must be positive: %d", c.Agent.InvocationTimeoutSeconds)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// GenerateExampleConfig generates an example configuration file.
func GenerateExampleConfig() string {
	return `# Spindle Configuration
# Priority: CLI flags > config file > environment variables > defaults

engine:
  # Driver options: sqlite, mysql, postgres
  driver: sqlite
  dsn: ./spindle.db
  # dataset: analytics
  max_rows: 1000

agent:
  anthropic_model: claude-sonnet-4-5
  max_tokens: 4096
  invocation_timeout_seconds: 120
  # anthropic_api_key: set via SPINDLE_AGENT_ANTHROPIC_API_KEY or ANTHROPIC_API_KEY

cache:
  # Optional cron schedule for periodic schema cache refresh
  # refresh_schedule: "0 */6 * * *"

logging:
  level: info  # debug, info, warn, error
  format: text # text, json
`
}
