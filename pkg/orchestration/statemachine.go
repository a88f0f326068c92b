// Package orchestration implements spec §4.6's Incident Orchestrator:
// the per-incident state machine, durability-before-side-effect
// persistence, inter-agent event routing, and the concurrency/timeout
// caps spec §5 names.
package orchestration

import (
	"fmt"

	"github.com/recist-project/recist/pkg/domain"
)

// transitions is the fixed DAG from spec §4.6. A transition is valid
// iff (from, to) appears here; Verifying→Planning is the one
// back-edge, gated at the call site on attempt_count < max_attempts.
var transitions = map[domain.Phase]map[domain.Phase]bool{
	domain.PhaseContaining: {domain.PhaseDiagnosing: true},
	domain.PhaseDiagnosing: {domain.PhasePlanning: true, domain.PhaseFailed: true},
	domain.PhasePlanning:   {domain.PhaseExecuting: true, domain.PhaseFailed: true},
	domain.PhaseExecuting:  {domain.PhaseVerifying: true, domain.PhaseFailed: true},
	domain.PhaseVerifying:  {domain.PhaseCompleted: true, domain.PhasePlanning: true, domain.PhaseFailed: true},
}

// ValidTransition reports whether the state machine allows from→to.
func ValidTransition(from, to domain.Phase) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Transition validates and applies from→to to incident, recording the
// new phase. Callers MUST persist the returned incident before any
// externally observable side effect (spec §3 invariant).
func Transition(incident domain.Incident, to domain.Phase) (domain.Incident, error) {
	if !ValidTransition(incident.Phase, to) {
		return incident, fmt.Errorf("invalid transition %s -> %s", incident.Phase, to)
	}
	incident.Phase = to
	return incident, nil
}
