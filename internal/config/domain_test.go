package config

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Orchestration defaults", func() {
	It("matches the numeric defaults named throughout spec.md", func() {
		d := DefaultOrchestrationConfig()
		Expect(d.CheckInterval).To(Equal(10 * time.Second))
		Expect(d.LookbackWindow).To(Equal(5 * time.Minute))
		Expect(d.LLMTimeout).To(Equal(30 * time.Second))
		Expect(d.ConfidenceThreshold).To(Equal(0.7))
		Expect(d.DecisionThreshold).To(Equal(0.75))
		Expect(d.MaxMicroAgentDepth).To(Equal(10))
		Expect(d.MaxMicroAgents).To(Equal(5))
		Expect(d.ActionTimeout).To(Equal(60 * time.Second))
		Expect(d.VerificationWait).To(Equal(30 * time.Second))
		Expect(d.MaxAttempts).To(Equal(2))
		Expect(d.StaleIsolationTTL).To(Equal(24 * time.Hour))
		Expect(d.TopKPriors).To(Equal(3))
		Expect(d.TopicSimilarity).To(Equal(0.8))
	})

	It("applies orchestration defaults when loading a config with none set", func() {
		cfg := &Config{}
		applyDefaults(cfg)
		Expect(cfg.Orchestration.MaxAttempts).To(Equal(2))
	})
})

var _ = Describe("Backend endpoint overrides", func() {
	It("stays empty when no environment variable is set", func() {
		cfg := &Config{}
		Expect(loadFromEnv(cfg)).To(Succeed())
		Expect(cfg.PrometheusURL()).To(BeEmpty())
		Expect(cfg.LokiURL()).To(BeEmpty())
		Expect(cfg.QdrantURL()).To(BeEmpty())
	})
})
