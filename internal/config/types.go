package config

import "time"

// Config is the root configuration for the recist control plane. It mirrors
// a SelfHealingPolicy's spec plus process-level concerns (server ports,
// logging, filters) that do not belong in a CR.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	SLM        SLMConfig        `yaml:"slm"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	Actions    ActionsConfig    `yaml:"actions"`
	Filters    []FilterConfig   `yaml:"filters"`
	Logging    LoggingConfig    `yaml:"logging"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	VectorDB   VectorDBConfig   `yaml:"vectorDB"`
	Redis      RedisConfig      `yaml:"redis"`
	Thresholds ThresholdConfig  `yaml:"thresholds"`
	Orchestration OrchestrationConfig `yaml:"orchestration"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Discovery     DiscoveryConfig     `yaml:"discovery"`

	// Environment-sourced backend endpoints (spec §6); not part of the
	// YAML schema, only overridable via PROMETHEUS_URL / LOKI_URL / QDRANT_URL.
	promURL   string
	lokiURL   string
	qdrantURL string
}

type ServerConfig struct {
	WebhookPort string `yaml:"webhook_port"`
	MetricsPort string `yaml:"metrics_port"`
}

// SLMConfig describes the language-model backend (spec §6 llmConfig).
// The field is still named SLM for continuity with the teacher's
// terminology ("small/supervised language model" in its own history);
// Provider now spans the full spec enum.
type SLMConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	RetryCount  int           `yaml:"retry_count"`
	Provider    string        `yaml:"provider"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	APIKeySecret string       `yaml:"api_key_secret"`
}

type KubernetesConfig struct {
	Context   string `yaml:"context"`
	Namespace string `yaml:"namespace"`
}

type ActionsConfig struct {
	DryRun         bool          `yaml:"dry_run"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	CooldownPeriod time.Duration `yaml:"cooldown_period"`
	AllowedActions []string      `yaml:"allowed_actions"`
}

type FilterConfig struct {
	Name       string              `yaml:"name"`
	Conditions map[string][]string `yaml:"conditions"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type WebhookConfig struct {
	Port string `yaml:"port"`
	Path string `yaml:"path"`
}

// VectorDBConfig selects the Knowledge Store's vector index backend.
type VectorDBConfig struct {
	Enabled          bool                   `yaml:"enabled"`
	Backend          string                 `yaml:"backend"` // "memory" | "postgresql"
	EmbeddingService EmbeddingConfig        `yaml:"embedding_service"`
	PostgreSQL       PostgreSQLVectorConfig `yaml:"postgresql"`
}

type EmbeddingConfig struct {
	Service   string `yaml:"service"` // "local" | "openai" | "anthropic"
	Dimension int    `yaml:"dimension"`
}

type PostgreSQLVectorConfig struct {
	UseMainDB  bool `yaml:"use_main_db"`
	IndexLists int  `yaml:"index_lists"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
	TTL time.Duration `yaml:"ttl"`
}

// ThresholdConfig is spec §3's threshold profile.
type ThresholdConfig struct {
	CPU           float64       `yaml:"cpu"`
	Memory        float64       `yaml:"memory"`
	LatencyMs     float64       `yaml:"latencyMs"`
	ErrorRate     float64       `yaml:"errorRate"`
	SampleInterval time.Duration `yaml:"sampleInterval"`
}

// OrchestrationConfig tunes the Incident Orchestrator (spec §4.6, §5).
type OrchestrationConfig struct {
	CheckInterval       time.Duration `yaml:"checkInterval"`
	LookbackWindow      time.Duration `yaml:"lookbackWindow"`
	LLMTimeout          time.Duration `yaml:"llmTimeout"`
	ConfidenceThreshold float64       `yaml:"confidenceThreshold"`
	DecisionThreshold   float64       `yaml:"decisionThreshold"`
	TargetConfidence    float64       `yaml:"targetConfidence"`
	MaxMicroAgentDepth  int           `yaml:"maxMicroAgentDepth"`
	MaxMicroAgents      int           `yaml:"maxMicroAgents"`
	ActionTimeout       time.Duration `yaml:"actionTimeout"`
	VerificationWait    time.Duration `yaml:"verificationWait"`
	MaxAttempts         int           `yaml:"maxAttempts"`
	MaxActiveHealings   int           `yaml:"maxActiveHealings"`
	StaleIsolationTTL   time.Duration `yaml:"staleIsolationTTL"`
	TopKPriors          int           `yaml:"topKPriors"`
	TopicSimilarity     float64       `yaml:"topicSimilarity"`
	ProactiveScanInterval   time.Duration `yaml:"proactiveScanInterval"`
	ProactiveScanThreshold  float64       `yaml:"proactiveScanThreshold"`
}

type NotificationsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	SlackWebhook  string `yaml:"slackWebhook"`
	Email         string `yaml:"email"`
}

// DiscoveryConfig scopes the Containment Agent's target search (spec
// §4.2 step 1) when no SelfHealingPolicy CR is in effect: the
// namespaces to scan and the label selector identifying in-scope pods.
type DiscoveryConfig struct {
	Namespaces    []string `yaml:"namespaces"`
	LabelSelector string   `yaml:"labelSelector"`
}

// DefaultOrchestrationConfig returns the numeric defaults named throughout
// spec.md (§4.2-§4.6).
func DefaultOrchestrationConfig() OrchestrationConfig {
	return OrchestrationConfig{
		CheckInterval:       10 * time.Second,
		LookbackWindow:      5 * time.Minute,
		LLMTimeout:          30 * time.Second,
		ConfidenceThreshold: 0.7,
		DecisionThreshold:   0.75,
		TargetConfidence:    0.85,
		MaxMicroAgentDepth:  10,
		MaxMicroAgents:      5,
		ActionTimeout:       60 * time.Second,
		VerificationWait:    30 * time.Second,
		MaxAttempts:         2,
		MaxActiveHealings:   0, // 0 = unbounded, per spec §5
		StaleIsolationTTL:   24 * time.Hour,
		TopKPriors:          3,
		TopicSimilarity:     0.8,
		ProactiveScanInterval:  time.Hour,
		ProactiveScanThreshold: 0.85,
	}
}
