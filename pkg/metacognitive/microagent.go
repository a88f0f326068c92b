package metacognitive

import (
	"context"
	"fmt"
	"time"

	"github.com/recist-project/recist/pkg/domain"
	"github.com/recist-project/recist/pkg/llm"
)

// Candidate is one proposed Plan under evaluation by a micro-agent.
type Candidate struct {
	Plan domain.Plan
}

// MicroAgentResult is the bounded loop's return value (spec §4.4).
type MicroAgentResult struct {
	Candidate  Candidate
	Confidence float64
	Evidence   []string
}

// runMicroAgent implements spec §4.4's pseudocode exactly: starting
// from the diagnosis's prior confidence, it repeatedly asks the model
// a planning question and folds the answer into a monotone
// non-decreasing confidence, until target_confidence is reached or
// max_depth is exhausted. An independent per-call timeout means a slow
// model call returns the current snapshot rather than blocking forever.
func runMicroAgent(ctx context.Context, model llm.Client, candidate Candidate, priorConfidence float64, targetConfidence float64, maxDepth int, actionTimeout time.Duration) MicroAgentResult {
	confidence := priorConfidence
	var evidence []string

	for depth := 0; confidence < targetConfidence && depth < maxDepth; depth++ {
		question := nextQuestion(candidate, evidence)

		callCtx, cancel := context.WithTimeout(ctx, actionTimeout)
		response, err := model.Complete(callCtx, question)
		cancel()
		if err != nil {
			break // timeout or backend error: return the current snapshot
		}

		parsed, err := llm.ParsePlanningQuestionResponse(response)
		if err != nil {
			break
		}

		evidence = append(evidence, response)
		confidence = updateConfidence(confidence, parsed)
	}

	return MicroAgentResult{Candidate: candidate, Confidence: confidence, Evidence: evidence}
}

// nextQuestion asks about whatever corroborating detail the loop
// hasn't gathered yet: first the plan's overall success probability,
// then progressively narrower questions about risk and duration.
func nextQuestion(candidate Candidate, evidenceSoFar []string) string {
	base := fmt.Sprintf("Plan %s proposes actions %v against fault %s. Respond with a fenced JSON object: ```json\n{\"success_probability\": number, \"risk\": string, \"duration_estimate\": string}\n```",
		candidate.Plan.CandidateID, actionKinds(candidate.Plan), candidate.Plan.ExpectedOutcome.FaultKind)
	switch len(evidenceSoFar) {
	case 0:
		return base + "\nFocus on whether this plan resolves the fault at all."
	case 1:
		return base + "\nFocus specifically on the risk of this plan causing a regression."
	default:
		return base + "\nFocus specifically on how long this plan takes to verify."
	}
}

func actionKinds(plan domain.Plan) []domain.ActionKind {
	kinds := make([]domain.ActionKind, len(plan.Actions))
	for i, a := range plan.Actions {
		kinds[i] = a.Kind
	}
	return kinds
}

// updateConfidence folds one answer into the running confidence. It is
// monotone non-decreasing: a corroborating high success_probability
// pulls confidence toward it, but confidence never drops on a single
// weak answer (spec §4.4: "monotone non-decreasing in corroborating
// evidence").
func updateConfidence(current float64, answer llm.PlanningQuestionResponse) float64 {
	if answer.SuccessProbability > current {
		// move halfway toward the new corroborating evidence rather than
		// jumping straight to it, so no single answer dominates the estimate.
		return current + (answer.SuccessProbability-current)/2
	}
	return current
}
