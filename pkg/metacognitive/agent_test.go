package metacognitive

import (
	"testing"
	"time"

	"github.com/recist-project/recist/pkg/domain"
)

func TestSelectPicksHighestConfidence(t *testing.T) {
	results := []MicroAgentResult{
		{Candidate: Candidate{Plan: domain.Plan{CandidateID: "a"}}, Confidence: 0.8},
		{Candidate: Candidate{Plan: domain.Plan{CandidateID: "b"}}, Confidence: 0.95},
	}
	winner, ok := Select(results, 0.75)
	if !ok || winner.Candidate.Plan.CandidateID != "b" {
		t.Fatalf("winner = %+v", winner)
	}
}

func TestSelectTieBreaksByRiskClassThenDuration(t *testing.T) {
	results := []MicroAgentResult{
		{Candidate: Candidate{Plan: domain.Plan{CandidateID: "risky", RiskClass: domain.RiskVerticalScale, ExpectedDuration: time.Second}}, Confidence: 0.9},
		{Candidate: Candidate{Plan: domain.Plan{CandidateID: "safe", RiskClass: domain.RiskRestart, ExpectedDuration: 2 * time.Second}}, Confidence: 0.9},
	}
	winner, ok := Select(results, 0.75)
	if !ok || winner.Candidate.Plan.CandidateID != "safe" {
		t.Fatalf("winner = %+v, want lowest risk class to win a confidence tie", winner)
	}
}

func TestSelectFailsBelowDecisionThreshold(t *testing.T) {
	results := []MicroAgentResult{
		{Candidate: Candidate{Plan: domain.Plan{CandidateID: "a"}}, Confidence: 0.5},
	}
	if _, ok := Select(results, 0.75); ok {
		t.Error("expected Select to reject a winner below the decision threshold")
	}
}

func TestGenerateCandidatesPrunesByAllowedActions(t *testing.T) {
	candidates := GenerateCandidates("pod-a", domain.Diagnosis{Confidence: 0.8}, []string{"Restart"})
	if len(candidates) != 1 || candidates[0].Plan.Actions[0].Kind != domain.ActionRestart {
		t.Fatalf("candidates = %+v, want exactly Restart", candidates)
	}
}

func TestGenerateCandidatesAllowsAllWhenUnrestricted(t *testing.T) {
	candidates := GenerateCandidates("pod-a", domain.Diagnosis{Confidence: 0.8}, nil)
	if len(candidates) != 5 {
		t.Fatalf("candidates = %d, want all 5 templates when allowed_actions is empty", len(candidates))
	}
}
