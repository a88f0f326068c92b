// Package http builds *http.Client instances with per-backend timeout
// presets (Prometheus, Slack, LLM providers) so timeout tuning lives in
// one place instead of being re-derived at each call site. In this
// module only the Loki logs client (pkg/telemetry) builds its client here.
package http

import (
	"crypto/tls"
	"net/http"
	"time"
)

// ClientConfig tunes both the client-level timeout and its transport.
type ClientConfig struct {
	Timeout                time.Duration
	MaxRetries             int
	DisableSSLVerification bool
	MaxIdleConns           int
	IdleConnTimeout        time.Duration
	TLSHandshakeTimeout    time.Duration
	ResponseHeaderTimeout  time.Duration
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:                30 * time.Second,
		MaxRetries:             3,
		DisableSSLVerification: false,
		MaxIdleConns:           10,
		IdleConnTimeout:        90 * time.Second,
		TLSHandshakeTimeout:    10 * time.Second,
		ResponseHeaderTimeout:  10 * time.Second,
	}
}

// NewClient builds an *http.Client from config. MaxRetries is not applied
// at the transport level; callers wrap requests with sethvargo/go-retry
// (or gobreaker where a circuit should trip) so retry policy stays visible
// at the call site rather than hidden in the transport.
func NewClient(config ClientConfig) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          config.MaxIdleConns,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
	}
	if config.DisableSSLVerification {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
}

func NewClientWithTimeout(timeout time.Duration) *http.Client {
	config := DefaultClientConfig()
	config.Timeout = timeout
	return NewClient(config)
}

func NewDefaultClient() *http.Client {
	return NewClient(DefaultClientConfig())
}

// SlackClientConfig favors quick failure over throughput: a stuck Slack
// webhook should never block the agent loop that's trying to notify it.
func SlackClientConfig() ClientConfig {
	config := DefaultClientConfig()
	config.Timeout = 10 * time.Second
	config.MaxRetries = 2
	return config
}

// PrometheusClientConfig budgets half of timeout for the response header,
// leaving room for large range-query bodies to stream within the rest.
func PrometheusClientConfig(timeout time.Duration) ClientConfig {
	config := DefaultClientConfig()
	config.Timeout = timeout
	config.ResponseHeaderTimeout = timeout / 2
	return config
}

// LLMClientConfig budgets a third of timeout for the response header since
// providers can take a while to start streaming a completion.
func LLMClientConfig(timeout time.Duration) ClientConfig {
	config := DefaultClientConfig()
	config.Timeout = timeout
	config.ResponseHeaderTimeout = timeout / 3
	return config
}
