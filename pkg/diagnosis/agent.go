// Package diagnosis implements spec §4.3's Diagnosis Agent: it turns a
// FaultDetected seed into a Diagnosis by assembling correlated
// telemetry, building a causal subgraph over it, retrieving similar
// past incidents as priors, and composing/parsing a language-model
// call.
package diagnosis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/recist-project/recist/internal/config"
	"github.com/recist-project/recist/pkg/bus"
	"github.com/recist-project/recist/pkg/containment"
	"github.com/recist-project/recist/pkg/domain"
	"github.com/recist-project/recist/pkg/llm"
)

// TelemetrySource is the subset of telemetry.Adapters the Diagnosis
// Agent depends on, kept as a narrow consumer-defined interface so
// tests can supply a fake without standing up Prometheus/Loki/client-go.
type TelemetrySource interface {
	Slice(ctx context.Context, namespace, metricSelector, logSelector string, start, end time.Time, logLimit int) (domain.TelemetrySlice, error)
}

// PriorSource is the Knowledge Store surface the Diagnosis Agent reads
// for k-NN priors (spec §4.3 step 4). Reads must be a snapshot per
// spec §4.3's ordering guarantee; pkg/knowledge's Store satisfies this.
type PriorSource interface {
	Similar(ctx context.Context, queryText string, k int, filter domain.FaultKind) ([]domain.KnowledgeRecord, error)
}

// Agent is the Diagnosis Agent.
type Agent struct {
	telemetry TelemetrySource
	priors    PriorSource
	model     llm.Client
	eventBus  bus.Bus
	cfg       config.OrchestrationConfig
	log       logr.Logger
}

func NewAgent(telemetry TelemetrySource, priors PriorSource, model llm.Client, eventBus bus.Bus, cfg config.OrchestrationConfig, log logr.Logger) *Agent {
	return &Agent{telemetry: telemetry, priors: priors, model: model, eventBus: eventBus, cfg: cfg, log: log}
}

// Start subscribes to FaultDetected and diagnoses every seed on its own
// goroutine (the bus already fans out subscribers that way; Diagnose
// just needs to not block the subscription callback on a slow model
// call relative to other event types).
func (a *Agent) Start(ctx context.Context) {
	a.eventBus.Subscribe("diagnosis-agent", []bus.EventType{bus.EventFaultDetected}, func(e bus.Event) {
		seed, ok := e.Payload.(containment.FaultDetected)
		if !ok {
			return
		}
		a.Diagnose(ctx, seed.IncidentSeed)
	})
}

// Diagnose runs spec §4.3 steps 1-6 for one fault seed and publishes
// either DiagnosisEmitted or DiagnosisInconclusive.
func (a *Agent) Diagnose(ctx context.Context, seed domain.FaultRecord) {
	lookback := a.cfg.LookbackWindow
	if lookback <= 0 {
		lookback = 5 * time.Minute
	}

	diag, err := a.attempt(ctx, seed, lookback)
	if err == nil && diag.Confidence >= a.confidenceThreshold() {
		a.eventBus.Publish(bus.Event{Type: bus.EventDiagnosisEmitted, Payload: DiagnosisEmitted{Target: seed.TargetID, Diagnosis: diag}})
		return
	}

	// Retry once with an expanded window (spec §4.3 step 6).
	diag, err = a.attempt(ctx, seed, 2*lookback)
	if err != nil || diag.Confidence < a.confidenceThreshold() {
		a.log.Info("diagnosis inconclusive", "target", seed.TargetID, "err", err)
		a.eventBus.Publish(bus.Event{Type: bus.EventDiagnosisInconclusive, Payload: DiagnosisInconclusive{Target: seed.TargetID, Reason: "low_confidence"}})
		return
	}
	a.eventBus.Publish(bus.Event{Type: bus.EventDiagnosisEmitted, Payload: DiagnosisEmitted{Target: seed.TargetID, Diagnosis: diag}})
}

func (a *Agent) confidenceThreshold() float64 {
	if a.cfg.ConfidenceThreshold > 0 {
		return a.cfg.ConfidenceThreshold
	}
	return 0.7
}

// attempt assembles the slice, subgraph and priors for one window and
// issues a single model call (spec §4.3 steps 1-5).
func (a *Agent) attempt(ctx context.Context, seed domain.FaultRecord, lookback time.Duration) (domain.Diagnosis, error) {
	end := time.Now().UTC()
	start := seed.FirstObserved.Add(-lookback).Add(-2 * time.Second).UTC()
	end = end.Add(2 * time.Second)

	slice, err := a.telemetry.Slice(ctx, seed.Namespace,
		fmt.Sprintf(`{target_id="%s"}`, seed.TargetID),
		fmt.Sprintf(`{target_id="%s"}`, seed.TargetID),
		start, end, 1000)
	if err != nil {
		return domain.Diagnosis{}, err
	}

	graph := BuildSubgraph(slice.Logs)
	roots := graph.RootCandidates(end)

	topK := a.cfg.TopKPriors
	if topK <= 0 {
		topK = 3
	}
	var priorRecords []domain.KnowledgeRecord
	if a.priors != nil {
		priorRecords, _ = a.priors.Similar(ctx, summarize(seed, slice), topK, seed.Kind)
	}

	timeout := a.cfg.LLMTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := llm.DiagnosisPrompt(logsBlock(slice.Logs), metricHighlights(slice.Metrics), priorSummaries(priorRecords))
	response, err := a.model.Complete(callCtx, prompt)
	if err != nil {
		return domain.Diagnosis{}, err
	}

	parsed, err := llm.ParseDiagnosisResponse(response)
	if err != nil {
		return domain.Diagnosis{}, err
	}

	var rootEvidence []domain.LogEntry
	if len(roots) > 0 {
		rootEvidence = append(rootEvidence, roots[0].Entry)
	}

	return domain.Diagnosis{
		Hypothesis:  parsed.RootCause,
		Confidence:  parsed.Confidence,
		RootCause:   parsed.RootCause,
		Evidence:    rootEvidence,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func summarize(seed domain.FaultRecord, slice domain.TelemetrySlice) string {
	return fmt.Sprintf("%s fault on %s/%s, %d log lines, %d metric series", seed.Kind, seed.Namespace, seed.TargetID, len(slice.Logs), len(slice.Metrics))
}

func logsBlock(logs []domain.LogEntry) string {
	var b strings.Builder
	limit := len(logs)
	if limit > 200 {
		limit = 200 // keep the prompt within model context, spec §4.3 step 5
	}
	for _, entry := range logs[len(logs)-limit:] {
		fmt.Fprintf(&b, "[%s] %s %s: %s\n", entry.Timestamp.Format(time.RFC3339), entry.Level, entry.Source, entry.Message)
	}
	return b.String()
}

func metricHighlights(series []domain.MetricSeries) string {
	var b strings.Builder
	for _, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: last=%.3f n=%d\n", s.Name, s.Points[len(s.Points)-1].Value, len(s.Points))
	}
	return b.String()
}

func priorSummaries(records []domain.KnowledgeRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, fmt.Sprintf("%s: %s (outcome success=%v)", r.ErrorType, r.Diagnosis.RootCause, r.Outcome.Success))
	}
	return out
}

// DiagnosisEmitted is the payload published on bus.EventDiagnosisEmitted.
type DiagnosisEmitted struct {
	Target    string
	Diagnosis domain.Diagnosis
}

// DiagnosisInconclusive is the payload published on
// bus.EventDiagnosisInconclusive.
type DiagnosisInconclusive struct {
	Target string
	Reason string
}
