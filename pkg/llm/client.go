// Package llm adapts the Diagnosis and MetaCognitive agents' language-
// model calls (spec §6 llmConfig) behind one small interface, backed by
// langchaingo for the openai/googleai/ollama providers and a direct
// anthropic-sdk-go fast path for claude, mirroring the teacher's
// pkg/slm client's single-provider-per-config shape generalized to the
// multi-provider enum spec.md actually names.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/go-logr/logr"
	"github.com/sony/gobreaker"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/recist-project/recist/internal/config"
	"github.com/recist-project/recist/internal/errors"
)

// Client issues one prompt/response round trip against the configured
// backend. Diagnosis and MetaCognitive both depend on this interface
// rather than a concrete provider, the way the teacher's Diagnosis
// code only ever saw pkg/slm.Client.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds a Client for cfg.Provider. Supported providers: "claude"
// (direct anthropic-sdk-go), "openai", "gemini", "ollama" (all three
// via langchaingo), matching SPEC_FULL.md's DOMAIN STACK wiring. The
// returned Client trips a circuit breaker per provider so a stuck LLM
// backend fails fast instead of piling up Diagnosis/MetaCognitive
// retries (spec §7 BackendUnavailable).
func New(cfg config.SLMConfig, log logr.Logger) (Client, error) {
	var client Client
	switch cfg.Provider {
	case "claude":
		client = newClaudeClient(cfg)
	case "openai":
		model, err := openai.New(openai.WithModel(cfg.Model), openai.WithBaseURL(cfg.Endpoint))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to build openai llm client")
		}
		client = &langchainClient{model: model, cfg: cfg, log: log}
	case "gemini":
		model, err := googleai.New(context.Background(), googleai.WithDefaultModel(cfg.Model))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to build gemini llm client")
		}
		client = &langchainClient{model: model, cfg: cfg, log: log}
	case "ollama":
		model, err := ollama.New(ollama.WithModel(cfg.Model), ollama.WithServerURL(cfg.Endpoint))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to build ollama llm client")
		}
		client = &langchainClient{model: model, cfg: cfg, log: log}
	default:
		return nil, errors.New(errors.ErrorTypeValidation, fmt.Sprintf("unsupported llm provider: %s", cfg.Provider))
	}
	return newBreakerClient(cfg.Provider, client), nil
}

// breakerClient trips after 5 consecutive failures and stays open for
// 30s before allowing a single trial request through, so a wedged
// provider stops consuming every agent's verification-wait budget.
type breakerClient struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker
}

func newBreakerClient(provider string, inner Client) *breakerClient {
	return &breakerClient{
		inner: inner,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "llm:" + provider,
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

func (c *breakerClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.Complete(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

type langchainClient struct {
	model llms.Model
	cfg   config.SLMConfig
	log   logr.Logger
}

func (c *langchainClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithTemperature(float64(c.cfg.Temperature)),
		llms.WithMaxTokens(c.cfg.MaxTokens),
	)
	if err != nil {
		return "", errors.NewBackendUnavailableError("llm:"+c.cfg.Provider, err)
	}
	return resp, nil
}

type claudeClient struct {
	client anthropic.Client
	cfg    config.SLMConfig
}

func newClaudeClient(cfg config.SLMConfig) *claudeClient {
	opts := []option.RequestOption{}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	return &claudeClient{client: anthropic.NewClient(opts...), cfg: cfg}
}

func (c *claudeClient) Complete(ctx context.Context, prompt string) (string, error) {
	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxTokens := int64(c.cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", errors.NewBackendUnavailableError("llm:claude", err)
	}
	var out string
	for _, block := range msg.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out, nil
}
