package orchestration

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/recist-project/recist/internal/config"
	"github.com/recist-project/recist/pkg/bus"
	"github.com/recist-project/recist/pkg/containment"
	"github.com/recist-project/recist/pkg/diagnosis"
	"github.com/recist-project/recist/pkg/domain"
	"github.com/recist-project/recist/pkg/metacognitive"
)

// KnowledgeRecorder is the narrow Knowledge Store surface the
// orchestrator depends on for terminal-incident recording (spec §4.6:
// "record via Knowledge Agent").
type KnowledgeRecorder interface {
	Record(ctx context.Context, incident domain.Incident) (string, error)
}

// IsolationRemover removes a target's isolation on successful
// completion (spec §4.6: "remove isolation iff success").
type IsolationRemover interface {
	Remove(ctx context.Context, namespace, target string) error
}

// Orchestrator is the Incident Orchestrator.
type Orchestrator struct {
	store     Store
	eventBus  bus.Bus
	knowledge KnowledgeRecorder
	isolation IsolationRemover
	cfg       config.OrchestrationConfig
	log       logr.Logger
}

func NewOrchestrator(store Store, eventBus bus.Bus, knowledge KnowledgeRecorder, isolation IsolationRemover, cfg config.OrchestrationConfig, log logr.Logger) *Orchestrator {
	return &Orchestrator{store: store, eventBus: eventBus, knowledge: knowledge, isolation: isolation, cfg: cfg, log: log}
}

// Start wires every agent event this orchestrator routes (spec §4.6,
// "routes inter-agent events").
func (o *Orchestrator) Start(ctx context.Context) {
	o.eventBus.Subscribe("orchestrator", []bus.EventType{
		bus.EventFaultDetected,
		bus.EventDiagnosisEmitted,
		bus.EventDiagnosisInconclusive,
		bus.EventPlanSelected,
		bus.EventNoViablePlan,
		bus.EventActionDispatched,
		bus.EventActionError,
		bus.EventVerificationResult,
	}, func(e bus.Event) { o.handle(ctx, e) })
}

func (o *Orchestrator) handle(ctx context.Context, e bus.Event) {
	switch payload := e.Payload.(type) {
	case containment.FaultDetected:
		o.onFaultDetected(ctx, payload)
	case diagnosis.DiagnosisEmitted:
		o.onDiagnosisEmitted(ctx, payload)
	case diagnosis.DiagnosisInconclusive:
		o.onDiagnosisInconclusive(ctx, payload)
	case metacognitive.PlanSelected:
		o.onPlanSelected(ctx, payload)
	case metacognitive.NoViablePlan:
		o.onNoViablePlan(ctx, payload)
	case metacognitive.ActionDispatched:
		o.onActionDispatched(ctx, payload)
	case metacognitive.ActionError:
		o.onActionError(ctx, payload)
	case metacognitive.VerificationResult:
		o.onVerificationResult(ctx, payload)
	}
}

func (o *Orchestrator) onFaultDetected(ctx context.Context, seed containment.FaultDetected) {
	if _, active, _ := o.store.ActiveByTarget(ctx, seed.IncidentSeed.TargetID); active {
		return // at most one non-terminal Incident per target_id (spec §3)
	}
	if o.cfg.MaxActiveHealings > 0 {
		if active, err := o.store.ListActive(ctx); err == nil && len(active) >= o.cfg.MaxActiveHealings {
			o.log.Info("max_active_healings reached, deferring fault", "target", seed.IncidentSeed.TargetID)
			return
		}
	}

	incident := domain.Incident{
		ID:            uuid.NewString(),
		Target:        seed.IncidentSeed.TargetID,
		Namespace:     seed.IncidentSeed.Namespace,
		TriggerReason: seed.IncidentSeed.Kind,
		Phase:         domain.PhaseContaining,
		StartedAt:     time.Now().UTC(),
		LastObserved:  time.Now().UTC(),
	}
	if err := o.store.Save(ctx, incident); err != nil {
		o.log.Error(err, "failed to persist new incident")
		return
	}

	// Containment already applied isolation (or degraded-soft annotated
	// it) before publishing FaultDetected, so the Containing->Diagnosing
	// transition's precondition is already satisfied (spec §4.6).
	next, err := Transition(incident, domain.PhaseDiagnosing)
	if err != nil {
		o.log.Error(err, "invalid transition out of Containing")
		return
	}
	if err := o.store.Save(ctx, next); err != nil {
		o.log.Error(err, "failed to persist Diagnosing transition")
	}
}

func (o *Orchestrator) onDiagnosisEmitted(ctx context.Context, emitted diagnosis.DiagnosisEmitted) {
	incident, ok, err := o.store.ActiveByTarget(ctx, emitted.Target)
	if err != nil || !ok {
		return
	}
	diag := emitted.Diagnosis
	incident.Diagnosis = &diag
	next, err := Transition(incident, domain.PhasePlanning)
	if err != nil {
		o.log.Error(err, "invalid transition on DiagnosisEmitted", "target", emitted.Target)
		return
	}
	o.save(ctx, next)
}

func (o *Orchestrator) onDiagnosisInconclusive(ctx context.Context, inconclusive diagnosis.DiagnosisInconclusive) {
	o.fail(ctx, inconclusive.Target, inconclusive.Reason)
}

func (o *Orchestrator) onPlanSelected(ctx context.Context, selected metacognitive.PlanSelected) {
	incident, ok, err := o.store.ActiveByTarget(ctx, selected.Target)
	if err != nil || !ok {
		return
	}
	next, err := Transition(incident, domain.PhaseExecuting)
	if err != nil {
		o.log.Error(err, "invalid transition on PlanSelected", "target", selected.Target)
		return
	}
	o.save(ctx, next)
}

func (o *Orchestrator) onNoViablePlan(ctx context.Context, noPlan metacognitive.NoViablePlan) {
	o.fail(ctx, noPlan.Target, noPlan.Reason)
}

func (o *Orchestrator) onActionDispatched(ctx context.Context, dispatched metacognitive.ActionDispatched) {
	incident, ok, err := o.store.ActiveByTarget(ctx, dispatched.Target)
	if err != nil || !ok {
		return
	}
	incident.AppliedActions = append(incident.AppliedActions, dispatched.Applied...)
	next, err := Transition(incident, domain.PhaseVerifying)
	if err != nil {
		o.log.Error(err, "invalid transition on ActionDispatched", "target", dispatched.Target)
		return
	}
	o.save(ctx, next)
}

func (o *Orchestrator) onActionError(ctx context.Context, actionErr metacognitive.ActionError) {
	o.fail(ctx, actionErr.Target, "action_error")
}

func (o *Orchestrator) onVerificationResult(ctx context.Context, result metacognitive.VerificationResult) {
	incident, ok, err := o.store.ActiveByTarget(ctx, result.Target)
	if err != nil || !ok {
		return
	}

	if result.Success {
		incident.Outcome = &domain.Outcome{Success: true}
		o.terminate(ctx, incident, domain.PhaseCompleted)
		return
	}

	maxAttempts := o.cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}
	incident.AttemptCount++
	if incident.AttemptCount < maxAttempts {
		next, err := Transition(incident, domain.PhasePlanning)
		if err != nil {
			o.log.Error(err, "invalid retry transition on VerificationResult", "target", result.Target)
			return
		}
		o.save(ctx, next)
		return
	}

	incident.Outcome = &domain.Outcome{Success: false, Reason: "verification_failed"}
	o.terminate(ctx, incident, domain.PhaseFailed)
}

func (o *Orchestrator) fail(ctx context.Context, target, reason string) {
	incident, ok, err := o.store.ActiveByTarget(ctx, target)
	if err != nil || !ok {
		return
	}
	incident.Outcome = &domain.Outcome{Success: false, Reason: reason}
	o.terminate(ctx, incident, domain.PhaseFailed)
}

// terminate applies a terminal transition, persists it, records it via
// the Knowledge Agent, and removes isolation iff the outcome succeeded
// (spec §4.6: "Completed/Failed are terminal; record via Knowledge
// Agent, then remove isolation iff success").
func (o *Orchestrator) terminate(ctx context.Context, incident domain.Incident, to domain.Phase) {
	next, err := Transition(incident, to)
	if err != nil {
		o.log.Error(err, "invalid terminal transition", "target", incident.Target, "to", to)
		return
	}
	now := time.Now().UTC()
	next.EndedAt = &now
	o.save(ctx, next)

	if o.knowledge != nil {
		if _, err := o.knowledge.Record(ctx, next); err != nil {
			o.log.Error(err, "failed to record terminal incident in knowledge store", "target", next.Target)
		}
	}
	if next.Outcome != nil && next.Outcome.Success && o.isolation != nil {
		if err := o.isolation.Remove(ctx, next.Namespace, next.Target); err != nil {
			o.log.Error(err, "failed to remove isolation after success", "target", next.Target)
		}
	}

	terminalEvent := bus.EventIncidentCompleted
	if next.Outcome == nil || !next.Outcome.Success {
		terminalEvent = bus.EventIncidentFailed
	}
	o.eventBus.Publish(bus.Event{Type: terminalEvent, Payload: next})
}

func (o *Orchestrator) save(ctx context.Context, incident domain.Incident) {
	if err := o.store.Save(ctx, incident); err != nil {
		o.log.Error(err, "failed to persist incident", "id", incident.ID)
	}
}

// Resume reloads every non-terminal incident from the durable store on
// process start (spec §4.6 "crash resume"). Because every transition
// is persisted before its side effect, the last-saved phase is always
// a safe point to continue from: the orchestrator simply keeps routing
// further bus events against that phase, the way a rebuilt in-memory
// state machine would after loading CRD status on a controller restart.
func (o *Orchestrator) Resume(ctx context.Context) ([]domain.Incident, error) {
	active, err := o.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, incident := range active {
		o.log.Info("resuming incident", "id", incident.ID, "target", incident.Target, "phase", incident.Phase)
	}
	return active, nil
}
