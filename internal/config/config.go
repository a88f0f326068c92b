package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

var validSLMProviders = map[string]bool{
	"localai":   true,
	"claude":    true,
	"openai":    true,
	"gemini":    true,
	"ollama":    true,
}

// Load reads, parses, defaults, and validates a Config from path, then
// applies any environment variable overrides (§6 "Environment variables").
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(cfg)

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Kubernetes.Namespace == "" {
		cfg.Kubernetes.Namespace = "default"
	}
	if cfg.Actions.MaxConcurrent == 0 {
		cfg.Actions.MaxConcurrent = 5
	}
	if cfg.SLM.Provider == "" {
		cfg.SLM.Provider = "localai"
	}
	if cfg.SLM.MaxTokens == 0 {
		cfg.SLM.MaxTokens = 1024
	}
	orch := DefaultOrchestrationConfig()
	if cfg.Orchestration.CheckInterval == 0 {
		cfg.Orchestration = orch
	}
	if len(cfg.Discovery.Namespaces) == 0 {
		cfg.Discovery.Namespaces = []string{cfg.Kubernetes.Namespace}
	}
}

func validate(cfg *Config) error {
	if !validSLMProviders[cfg.SLM.Provider] {
		return fmt.Errorf("unsupported SLM provider: %s", cfg.SLM.Provider)
	}
	if cfg.SLM.Endpoint == "" {
		cfg.SLM.Endpoint = "http://localhost:8080"
	}
	if cfg.SLM.Provider == "localai" && cfg.SLM.Model == "" {
		return fmt.Errorf("SLM model is required for LocalAI provider")
	}
	if cfg.SLM.Temperature < 0.0 || cfg.SLM.Temperature > 1.0 {
		return fmt.Errorf("SLM temperature must be between 0.0 and 1.0")
	}
	if cfg.SLM.MaxTokens <= 0 {
		return fmt.Errorf("SLM max tokens must be greater than 0")
	}
	if cfg.Kubernetes.Namespace == "" {
		return fmt.Errorf("Kubernetes namespace is required")
	}
	if cfg.Actions.MaxConcurrent <= 0 {
		return fmt.Errorf("max concurrent actions must be greater than 0")
	}
	return nil
}

// loadFromEnv overlays the environment variables named in spec.md §6.
func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("SLM_ENDPOINT"); v != "" {
		cfg.SLM.Endpoint = v
	}
	if v := os.Getenv("SLM_MODEL"); v != "" {
		cfg.SLM.Model = v
	}
	if v := os.Getenv("SLM_PROVIDER"); v != "" {
		cfg.SLM.Provider = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.SLM.APIKeySecret = v
	}
	if v := os.Getenv("WEBHOOK_PORT"); v != "" {
		cfg.Server.WebhookPort = v
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		cfg.Server.MetricsPort = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PROMETHEUS_URL"); v != "" {
		cfg.promURL = v
	}
	if v := os.Getenv("LOKI_URL"); v != "" {
		cfg.lokiURL = v
	}
	if v := os.Getenv("QDRANT_URL"); v != "" {
		cfg.qdrantURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DRY_RUN value: %w", err)
		}
		cfg.Actions.DryRun = b
	}
	return nil
}

// PrometheusURL, LokiURL, QdrantURL return the telemetry/knowledge backend
// endpoints sourced from environment variables (spec §6); they are kept
// unexported-backed so that zero-value Config equality in tests
// (loadFromEnv with no env set) is unaffected by these optional fields.
func (c *Config) PrometheusURL() string { return c.promURL }
func (c *Config) LokiURL() string       { return c.lokiURL }
func (c *Config) QdrantURL() string     { return c.qdrantURL }
