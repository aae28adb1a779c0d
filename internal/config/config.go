// Package config loads the investigator's YAML configuration file,
// applies environment variable overrides, fills defaults, and validates
// the result before the orchestrator wires up any adapters or LLM clients.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	sharederrors "github.com/jordigilh/investigator/pkg/shared/errors"
)

// ServerConfig controls the process's own listening ports (metrics only —
// there is no webhook/HTTP API in scope).
type ServerConfig struct {
	MetricsPort string `yaml:"metrics_port"`
}

// OrchestratorConfig bounds how many investigations run concurrently and
// how deep a single investigation is allowed to go.
type OrchestratorConfig struct {
	MaxConcurrentInvestigations int           `yaml:"max_concurrent_investigations"`
	InvestigationTimeout        time.Duration `yaml:"investigation_timeout"`
	HypothesisLimit             int           `yaml:"hypothesis_limit"`
	ReflexionEnabled            bool          `yaml:"reflexion_enabled"`
}

// CircuitBreakerConfig bounds the probe budget of a single investigation.
type CircuitBreakerConfig struct {
	MaxTotalQueries         int           `yaml:"max_total_queries"`
	MaxQueriesPerHypothesis int           `yaml:"max_queries_per_hypothesis"`
	MaxRetries              int           `yaml:"max_retries"`
	MaxConsecutiveFailures  int           `yaml:"max_consecutive_failures"`
	MaxWallClock            time.Duration `yaml:"max_wall_clock"`
}

// LLMConfig describes a single LLM endpoint. Both the investigation LLM
// and the judge LLM use this shape, possibly pointing at different models.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	RetryCount  int           `yaml:"retry_count"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
}

// DataSourceConfig declares one data source a tenant can be investigated
// against.
type DataSourceConfig struct {
	TenantID string `yaml:"tenant_id"`
	Type     string `yaml:"type"`
	Endpoint string `yaml:"endpoint"`
}

// LineageConfig declares which lineage providers are available for a
// tenant and how to reach the remote ones.
type LineageConfig struct {
	TenantID            string   `yaml:"tenant_id"`
	Providers           []string `yaml:"providers"`
	OpenLineageEndpoint string   `yaml:"openlineage_endpoint"`
}

// LoggingConfig controls log verbosity and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the top-level configuration document.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Orchestrator   OrchestratorConfig   `yaml:"orchestrator"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	LLM            LLMConfig            `yaml:"llm"`
	JudgeLLM       LLMConfig            `yaml:"judge_llm"`
	DataSources    []DataSourceConfig   `yaml:"data_sources"`
	Lineage        []LineageConfig      `yaml:"lineage"`
	Logging        LoggingConfig        `yaml:"logging"`
}

var supportedLLMProviders = map[string]bool{
	"anthropic": true,
	"langchain": true,
}

// Load reads path, parses it as YAML, applies environment overrides and
// defaults, then validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sharederrors.FailedTo(fmt.Sprintf("read config file %s", path), err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, sharederrors.FailedTo(fmt.Sprintf("parse config file %s", path), err)
	}

	applyDefaults(config)

	if err := loadFromEnv(config); err != nil {
		return nil, err
	}

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyDefaults fills zero-valued fields with sensible defaults before env
// overrides and validation run.
func applyDefaults(config *Config) {
	if config.Server.MetricsPort == "" {
		config.Server.MetricsPort = "9090"
	}

	if config.Orchestrator.MaxConcurrentInvestigations == 0 {
		config.Orchestrator.MaxConcurrentInvestigations = 5
	}
	if config.Orchestrator.InvestigationTimeout == 0 {
		config.Orchestrator.InvestigationTimeout = 15 * time.Minute
	}
	if config.Orchestrator.HypothesisLimit == 0 {
		config.Orchestrator.HypothesisLimit = 5
	}

	if config.CircuitBreaker.MaxTotalQueries == 0 {
		config.CircuitBreaker.MaxTotalQueries = 50
	}
	if config.CircuitBreaker.MaxQueriesPerHypothesis == 0 {
		config.CircuitBreaker.MaxQueriesPerHypothesis = 10
	}
	if config.CircuitBreaker.MaxRetries == 0 {
		config.CircuitBreaker.MaxRetries = 3
	}
	if config.CircuitBreaker.MaxConsecutiveFailures == 0 {
		config.CircuitBreaker.MaxConsecutiveFailures = 3
	}
	if config.CircuitBreaker.MaxWallClock == 0 {
		config.CircuitBreaker.MaxWallClock = 10 * time.Minute
	}

	if config.LLM.Provider == "" {
		config.LLM.Provider = "anthropic"
	}
	if config.LLM.Timeout == 0 {
		config.LLM.Timeout = 60 * time.Second
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}

	if config.JudgeLLM.Model == "" && config.JudgeLLM.Endpoint == "" {
		config.JudgeLLM = config.LLM
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "json"
	}
}

// loadFromEnv overlays environment variables onto config, taking
// precedence over file-provided values where set.
func loadFromEnv(config *Config) error {
	if v := os.Getenv("LLM_ENDPOINT"); v != "" {
		config.LLM.Endpoint = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		config.LLM.Model = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		config.Server.MetricsPort = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}
	if v := os.Getenv("REFLEXION_ENABLED"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return sharederrors.ParseError("REFLEXION_ENABLED", "bool", err)
		}
		config.Orchestrator.ReflexionEnabled = parsed
	}

	return nil
}

// validate checks required fields and value ranges, filling a small
// number of defaults that only make sense once other fields are known
// (e.g. the LLM endpoint, which defaults to the Anthropic API URL when
// unset).
func validate(config *Config) error {
	if !supportedLLMProviders[config.LLM.Provider] {
		return sharederrors.ConfigurationError("llm.provider",
			fmt.Sprintf("unsupported LLM provider: %s", config.LLM.Provider))
	}

	if config.LLM.Endpoint == "" {
		config.LLM.Endpoint = "https://api.anthropic.com"
	}

	if config.LLM.Model == "" {
		return sharederrors.ConfigurationError("llm.model", "LLM model is required")
	}

	if config.LLM.Temperature < 0.0 || config.LLM.Temperature > 1.0 {
		return sharederrors.ConfigurationError("llm.temperature", "LLM temperature must be between 0.0 and 1.0")
	}

	if config.LLM.MaxTokens <= 0 {
		return sharederrors.ConfigurationError("llm.max_tokens", "LLM max tokens must be greater than 0")
	}

	if config.Orchestrator.HypothesisLimit <= 0 {
		return sharederrors.ConfigurationError("orchestrator.hypothesis_limit", "hypothesis limit must be greater than 0")
	}

	if config.Orchestrator.MaxConcurrentInvestigations <= 0 {
		return sharederrors.ConfigurationError("orchestrator.max_concurrent_investigations",
			"max concurrent investigations must be greater than 0")
	}

	if config.CircuitBreaker.MaxTotalQueries <= 0 {
		return sharederrors.ConfigurationError("circuit_breaker.max_total_queries", "max total queries must be greater than 0")
	}

	return nil
}
