package orchestration

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/recist-project/recist/internal/config"
	"github.com/recist-project/recist/pkg/bus"
	"github.com/recist-project/recist/pkg/containment"
	"github.com/recist-project/recist/pkg/diagnosis"
	"github.com/recist-project/recist/pkg/domain"
	"github.com/recist-project/recist/pkg/metacognitive"
)

type fakeKnowledge struct{ recorded []domain.Incident }

func (f *fakeKnowledge) Record(ctx context.Context, incident domain.Incident) (string, error) {
	f.recorded = append(f.recorded, incident)
	return "kid", nil
}

type fakeIsolation struct{ removed []string }

func (f *fakeIsolation) Remove(ctx context.Context, namespace, target string) error {
	f.removed = append(f.removed, target)
	return nil
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestOrchestratorFaultDetectedCreatesIncidentInDiagnosing(t *testing.T) {
	store := NewInMemoryStore()
	eventBus := bus.NewInMemoryBus()
	orch := NewOrchestrator(store, eventBus, nil, nil, config.DefaultOrchestrationConfig(), logr.Discard())
	orch.Start(context.Background())

	eventBus.Publish(bus.Event{Type: bus.EventFaultDetected, Payload: containment.FaultDetected{
		IncidentSeed: domain.FaultRecord{TargetID: "pod-a", Namespace: "ns", Kind: domain.FaultHighCPU},
	}})

	waitUntil(t, func() bool {
		incident, ok, _ := store.ActiveByTarget(context.Background(), "pod-a")
		return ok && incident.Phase == domain.PhaseDiagnosing
	})
}

func TestOrchestratorIgnoresDuplicateFaultForActiveTarget(t *testing.T) {
	store := NewInMemoryStore()
	eventBus := bus.NewInMemoryBus()
	orch := NewOrchestrator(store, eventBus, nil, nil, config.DefaultOrchestrationConfig(), logr.Discard())
	orch.Start(context.Background())

	seed := containment.FaultDetected{IncidentSeed: domain.FaultRecord{TargetID: "pod-a", Namespace: "ns", Kind: domain.FaultHighCPU}}
	eventBus.Publish(bus.Event{Type: bus.EventFaultDetected, Payload: seed})
	waitUntil(t, func() bool {
		_, ok, _ := store.ActiveByTarget(context.Background(), "pod-a")
		return ok
	})
	eventBus.Publish(bus.Event{Type: bus.EventFaultDetected, Payload: seed})
	time.Sleep(50 * time.Millisecond)

	active, _ := store.ListActive(context.Background())
	if len(active) != 1 {
		t.Fatalf("len(active) = %d, want exactly one incident for the target", len(active))
	}
}

func TestOrchestratorFullSuccessPathRecordsAndDeisolates(t *testing.T) {
	store := NewInMemoryStore()
	eventBus := bus.NewInMemoryBus()
	know := &fakeKnowledge{}
	iso := &fakeIsolation{}
	orch := NewOrchestrator(store, eventBus, know, iso, config.DefaultOrchestrationConfig(), logr.Discard())
	orch.Start(context.Background())

	eventBus.Publish(bus.Event{Type: bus.EventFaultDetected, Payload: containment.FaultDetected{
		IncidentSeed: domain.FaultRecord{TargetID: "pod-a", Namespace: "ns", Kind: domain.FaultHighCPU},
	}})
	waitUntil(t, func() bool {
		incident, ok, _ := store.ActiveByTarget(context.Background(), "pod-a")
		return ok && incident.Phase == domain.PhaseDiagnosing
	})

	eventBus.Publish(bus.Event{Type: bus.EventDiagnosisEmitted, Payload: diagnosis.DiagnosisEmitted{Target: "pod-a", Diagnosis: domain.Diagnosis{Confidence: 0.9}}})
	waitUntil(t, func() bool {
		incident, ok, _ := store.ActiveByTarget(context.Background(), "pod-a")
		return ok && incident.Phase == domain.PhasePlanning
	})

	eventBus.Publish(bus.Event{Type: bus.EventPlanSelected, Payload: metacognitive.PlanSelected{Target: "pod-a"}})
	waitUntil(t, func() bool {
		incident, ok, _ := store.ActiveByTarget(context.Background(), "pod-a")
		return ok && incident.Phase == domain.PhaseExecuting
	})

	eventBus.Publish(bus.Event{Type: bus.EventActionDispatched, Payload: metacognitive.ActionDispatched{Target: "pod-a"}})
	waitUntil(t, func() bool {
		incident, ok, _ := store.ActiveByTarget(context.Background(), "pod-a")
		return ok && incident.Phase == domain.PhaseVerifying
	})

	eventBus.Publish(bus.Event{Type: bus.EventVerificationResult, Payload: metacognitive.VerificationResult{Target: "pod-a", Success: true}})

	waitUntil(t, func() bool { return len(know.recorded) == 1 })
	waitUntil(t, func() bool { return len(iso.removed) == 1 })

	if _, ok, _ := store.ActiveByTarget(context.Background(), "pod-a"); ok {
		t.Error("expected no active incident after completion")
	}
}

func TestOrchestratorVerificationFailureRetriesThenFails(t *testing.T) {
	store := NewInMemoryStore()
	eventBus := bus.NewInMemoryBus()
	cfg := config.DefaultOrchestrationConfig()
	cfg.MaxAttempts = 2
	orch := NewOrchestrator(store, eventBus, nil, nil, cfg, logr.Discard())
	orch.Start(context.Background())

	eventBus.Publish(bus.Event{Type: bus.EventFaultDetected, Payload: containment.FaultDetected{
		IncidentSeed: domain.FaultRecord{TargetID: "pod-a", Namespace: "ns", Kind: domain.FaultHighCPU},
	}})
	waitUntil(t, func() bool {
		_, ok, _ := store.ActiveByTarget(context.Background(), "pod-a")
		return ok
	})
	eventBus.Publish(bus.Event{Type: bus.EventDiagnosisEmitted, Payload: diagnosis.DiagnosisEmitted{Target: "pod-a"}})
	waitUntil(t, func() bool {
		incident, _, _ := store.ActiveByTarget(context.Background(), "pod-a")
		return incident.Phase == domain.PhasePlanning
	})
	eventBus.Publish(bus.Event{Type: bus.EventPlanSelected, Payload: metacognitive.PlanSelected{Target: "pod-a"}})
	waitUntil(t, func() bool {
		incident, _, _ := store.ActiveByTarget(context.Background(), "pod-a")
		return incident.Phase == domain.PhaseExecuting
	})
	eventBus.Publish(bus.Event{Type: bus.EventActionDispatched, Payload: metacognitive.ActionDispatched{Target: "pod-a"}})
	waitUntil(t, func() bool {
		incident, _, _ := store.ActiveByTarget(context.Background(), "pod-a")
		return incident.Phase == domain.PhaseVerifying
	})

	// first failure: retries back to Planning since max_attempts=2
	eventBus.Publish(bus.Event{Type: bus.EventVerificationResult, Payload: metacognitive.VerificationResult{Target: "pod-a", Success: false}})
	waitUntil(t, func() bool {
		incident, _, _ := store.ActiveByTarget(context.Background(), "pod-a")
		return incident.Phase == domain.PhasePlanning && incident.AttemptCount == 1
	})

	eventBus.Publish(bus.Event{Type: bus.EventPlanSelected, Payload: metacognitive.PlanSelected{Target: "pod-a"}})
	waitUntil(t, func() bool {
		incident, _, _ := store.ActiveByTarget(context.Background(), "pod-a")
		return incident.Phase == domain.PhaseExecuting
	})
	eventBus.Publish(bus.Event{Type: bus.EventActionDispatched, Payload: metacognitive.ActionDispatched{Target: "pod-a"}})
	waitUntil(t, func() bool {
		incident, _, _ := store.ActiveByTarget(context.Background(), "pod-a")
		return incident.Phase == domain.PhaseVerifying
	})

	// second failure: attempt_count(2) >= max_attempts(2), so it fails terminally
	eventBus.Publish(bus.Event{Type: bus.EventVerificationResult, Payload: metacognitive.VerificationResult{Target: "pod-a", Success: false}})
	waitUntil(t, func() bool {
		_, ok, _ := store.ActiveByTarget(context.Background(), "pod-a")
		return !ok
	})
}
