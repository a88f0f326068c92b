package diagnosis

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/recist-project/recist/internal/config"
	"github.com/recist-project/recist/pkg/bus"
	"github.com/recist-project/recist/pkg/domain"
)

type fakeTelemetry struct {
	slice domain.TelemetrySlice
	err   error
}

func (f *fakeTelemetry) Slice(ctx context.Context, namespace, metricSelector, logSelector string, start, end time.Time, logLimit int) (domain.TelemetrySlice, error) {
	return f.slice, f.err
}

type fakePriors struct{}

func (fakePriors) Similar(ctx context.Context, queryText string, k int, filter domain.FaultKind) ([]domain.KnowledgeRecord, error) {
	return nil, nil
}

type fakeModel struct {
	response string
	err      error
}

func (f *fakeModel) Complete(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func waitForEvent(t *testing.T, b *bus.InMemoryBus, eventType bus.EventType) bus.Event {
	t.Helper()
	done := make(chan bus.Event, 1)
	b.Subscribe("waiter", []bus.EventType{eventType}, func(e bus.Event) { done <- e })
	select {
	case e := <-done:
		return e
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", eventType)
	}
	return bus.Event{}
}

func TestDiagnoseEmitsDiagnosisOnHighConfidence(t *testing.T) {
	telemetry := &fakeTelemetry{slice: domain.TelemetrySlice{
		Logs: []domain.LogEntry{{Timestamp: time.Now(), Source: "a", Message: "oom"}},
	}}
	model := &fakeModel{response: `{"root_cause": "memory leak", "confidence": 0.9, "evidence": ["oom"]}`}
	eventBus := bus.NewInMemoryBus()
	agent := NewAgent(telemetry, fakePriors{}, model, eventBus, config.DefaultOrchestrationConfig(), logr.Discard())

	seed := domain.FaultRecord{TargetID: "pod-a", Namespace: "ns", Kind: domain.FaultOOMKilled, FirstObserved: time.Now()}

	go agent.Diagnose(context.Background(), seed)

	e := waitForEvent(t, eventBus, bus.EventDiagnosisEmitted)
	emitted, ok := e.Payload.(DiagnosisEmitted)
	if !ok {
		t.Fatalf("payload = %#v, want DiagnosisEmitted", e.Payload)
	}
	if emitted.Diagnosis.Confidence != 0.9 || emitted.Diagnosis.RootCause != "memory leak" {
		t.Errorf("diagnosis = %+v", emitted.Diagnosis)
	}
}

func TestDiagnoseEmitsInconclusiveOnPersistentLowConfidence(t *testing.T) {
	telemetry := &fakeTelemetry{slice: domain.TelemetrySlice{}}
	model := &fakeModel{response: `{"root_cause": "unsure", "confidence": 0.1, "evidence": []}`}
	eventBus := bus.NewInMemoryBus()
	agent := NewAgent(telemetry, fakePriors{}, model, eventBus, config.DefaultOrchestrationConfig(), logr.Discard())

	seed := domain.FaultRecord{TargetID: "pod-b", Namespace: "ns", Kind: domain.FaultHighCPU, FirstObserved: time.Now()}

	go agent.Diagnose(context.Background(), seed)

	e := waitForEvent(t, eventBus, bus.EventDiagnosisInconclusive)
	inconclusive, ok := e.Payload.(DiagnosisInconclusive)
	if !ok || inconclusive.Reason != "low_confidence" {
		t.Fatalf("payload = %#v", e.Payload)
	}
}
