package metacognitive

import (
	"context"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/recist-project/recist/internal/config"
	"github.com/recist-project/recist/pkg/bus"
	"github.com/recist-project/recist/pkg/diagnosis"
	"github.com/recist-project/recist/pkg/domain"
	"github.com/recist-project/recist/pkg/executor"
	"github.com/recist-project/recist/pkg/llm"
)

// FaultSetProbe re-queries the current fault set for a target during
// verification (spec §4.4). pkg/containment's Agent is the production
// implementation; tests supply a fake.
type FaultSetProbe interface {
	FaultsFor(ctx context.Context, target string) (domain.FaultSet, error)
}

// Agent is the MetaCognitive Agent.
type Agent struct {
	model    llm.Client
	exec     *executor.Executor
	probe    FaultSetProbe
	eventBus bus.Bus
	cfg      config.OrchestrationConfig
	log      logr.Logger
}

func NewAgent(model llm.Client, exec *executor.Executor, probe FaultSetProbe, eventBus bus.Bus, cfg config.OrchestrationConfig, log logr.Logger) *Agent {
	return &Agent{model: model, exec: exec, probe: probe, eventBus: eventBus, cfg: cfg, log: log}
}

// Start subscribes to DiagnosisEmitted and plans+executes for each one.
func (a *Agent) Start(ctx context.Context, allowedActions []string) {
	a.eventBus.Subscribe("metacognitive-agent", []bus.EventType{bus.EventDiagnosisEmitted}, func(e bus.Event) {
		emitted, ok := e.Payload.(diagnosis.DiagnosisEmitted)
		if !ok {
			return
		}
		a.Handle(ctx, emitted, allowedActions)
	})
}

// Handle runs spec §4.4 end to end for one Diagnosis: generate
// candidates, evaluate them concurrently via bounded micro-agents,
// select deterministically, dispatch, verify, and roll back on failure.
func (a *Agent) Handle(ctx context.Context, emitted diagnosis.DiagnosisEmitted, allowedActions []string) {
	candidates := GenerateCandidates(emitted.Target, emitted.Diagnosis, allowedActions)
	if len(candidates) == 0 {
		a.eventBus.Publish(bus.Event{Type: bus.EventNoViablePlan, Payload: NoViablePlan{Target: emitted.Target, Reason: "no_viable_plan"}})
		return
	}

	results := a.evaluateConcurrently(ctx, candidates, emitted.Diagnosis.Confidence)

	winner, ok := Select(results, a.decisionThreshold())
	if !ok {
		a.eventBus.Publish(bus.Event{Type: bus.EventNoViablePlan, Payload: NoViablePlan{Target: emitted.Target, Reason: "no_viable_plan"}})
		return
	}

	a.eventBus.Publish(bus.Event{Type: bus.EventPlanSelected, Payload: PlanSelected{Target: emitted.Target, Plan: winner.Candidate.Plan}})
	a.execute(ctx, emitted.Target, winner.Candidate.Plan)
}

func (a *Agent) evaluateConcurrently(ctx context.Context, candidates []Candidate, priorConfidence float64) []MicroAgentResult {
	maxAgents := a.cfg.MaxMicroAgents
	if maxAgents <= 0 {
		maxAgents = 5
	}
	maxDepth := a.cfg.MaxMicroAgentDepth
	if maxDepth <= 0 {
		maxDepth = 10
	}
	target := a.cfg.TargetConfidence
	if target <= 0 {
		target = 0.85
	}
	actionTimeout := a.cfg.ActionTimeout
	if actionTimeout <= 0 {
		actionTimeout = 60 * time.Second
	}

	results := make([]MicroAgentResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxAgents)

	for i, candidate := range candidates {
		i, candidate := i, candidate
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = runMicroAgent(gctx, a.model, candidate, priorConfidence, target, maxDepth, actionTimeout)
			return nil
		})
	}
	_ = g.Wait() // each micro-agent absorbs its own errors into a low-confidence snapshot

	return results
}

// Select implements spec §4.4's deterministic tie-break: highest
// confidence, then lowest risk class, then shortest expected duration,
// then lexicographic candidate id.
func Select(results []MicroAgentResult, decisionThreshold float64) (MicroAgentResult, bool) {
	if len(results) == 0 {
		return MicroAgentResult{}, false
	}
	sorted := make([]MicroAgentResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Candidate.Plan.RiskClass != b.Candidate.Plan.RiskClass {
			return a.Candidate.Plan.RiskClass < b.Candidate.Plan.RiskClass
		}
		if a.Candidate.Plan.ExpectedDuration != b.Candidate.Plan.ExpectedDuration {
			return a.Candidate.Plan.ExpectedDuration < b.Candidate.Plan.ExpectedDuration
		}
		return a.Candidate.Plan.CandidateID < b.Candidate.Plan.CandidateID
	})

	winner := sorted[0]
	if winner.Confidence < decisionThreshold {
		return MicroAgentResult{}, false
	}
	return winner, true
}

func (a *Agent) decisionThreshold() float64 {
	if a.cfg.DecisionThreshold > 0 {
		return a.cfg.DecisionThreshold
	}
	return 0.75
}

// execute dispatches the plan, then verifies and rolls back on
// failure (spec §4.4's Execution and Verification steps).
func (a *Agent) execute(ctx context.Context, target string, plan domain.Plan) {
	namespace := ""
	if len(plan.Actions) > 0 {
		namespace = plan.Actions[0].Namespace
	}

	applied, err := a.exec.Dispatch(ctx, namespace, plan)
	if err != nil {
		a.log.Error(err, "plan dispatch failed, rolling back", "target", target)
		if rerr := a.exec.Compensate(ctx, applied); rerr != nil {
			a.log.Error(rerr, "compensate failed", "target", target)
		}
		a.eventBus.Publish(bus.Event{Type: bus.EventActionError, Payload: ActionError{Target: target, Err: err}})
		return
	}

	a.eventBus.Publish(bus.Event{Type: bus.EventActionDispatched, Payload: ActionDispatched{Target: target, Applied: applied}})

	wait := a.cfg.VerificationWait
	if wait <= 0 {
		wait = 30 * time.Second
	}
	select {
	case <-ctx.Done():
		return
	case <-time.After(wait):
	}

	success := a.verify(ctx, target, plan.ExpectedOutcome)
	if !success {
		if rerr := a.exec.Compensate(ctx, applied); rerr != nil {
			a.log.Error(rerr, "compensate after failed verification", "target", target)
		}
	}
	a.eventBus.Publish(bus.Event{Type: bus.EventVerificationResult, Payload: VerificationResult{Target: target, Success: success}})
}

// verify implements spec §4.4's success predicate: the original fault
// kind no longer fires and no new fault kind appears on the target.
func (a *Agent) verify(ctx context.Context, target string, expected domain.ExpectedOutcomePredicate) bool {
	if a.probe == nil {
		return true
	}
	faults, err := a.probe.FaultsFor(ctx, target)
	if err != nil {
		return false
	}
	for key := range faults {
		if key.TargetID != target {
			continue
		}
		return false // any fault still/newly present on the target fails verification
	}
	_ = expected
	return true
}

// NoViablePlan is published on bus.EventNoViablePlan.
type NoViablePlan struct {
	Target string
	Reason string
}

// PlanSelected is published on bus.EventPlanSelected.
type PlanSelected struct {
	Target string
	Plan   domain.Plan
}

// ActionDispatched is published on bus.EventActionDispatched.
type ActionDispatched struct {
	Target  string
	Applied []domain.AppliedAction
}

// ActionError is published on bus.EventActionError.
type ActionError struct {
	Target string
	Err    error
}

// VerificationResult is published on bus.EventVerificationResult.
type VerificationResult struct {
	Target  string
	Success bool
}
