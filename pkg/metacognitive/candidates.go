package metacognitive

import (
	"fmt"
	"time"

	"github.com/recist-project/recist/pkg/domain"
)

// template pairs every ActionKind the policy can permit with the
// parameter variants worth trying, and a rough expected duration used
// only for the tie-break rule (spec §4.4).
type template struct {
	kind     domain.ActionKind
	build    func(target string) domain.Action
	duration time.Duration
}

func templates(target string) []template {
	return []template{
		{
			kind:     domain.ActionRestart,
			duration: 15 * time.Second,
			build: func(target string) domain.Action {
				return domain.Action{Kind: domain.ActionRestart, Target: target}
			},
		},
		{
			kind:     domain.ActionScaleHorizontal,
			duration: 30 * time.Second,
			build: func(target string) domain.Action {
				return domain.Action{Kind: domain.ActionScaleHorizontal, Deployment: target, Replicas: 3}
			},
		},
		{
			kind:     domain.ActionScaleVertical,
			duration: 45 * time.Second,
			build: func(target string) domain.Action {
				return domain.Action{Kind: domain.ActionScaleVertical, Deployment: target, CPU: "500m", Memory: "512Mi"}
			},
		},
		{
			kind:     domain.ActionPatchConfig,
			duration: 20 * time.Second,
			build: func(target string) domain.Action {
				return domain.Action{Kind: domain.ActionPatchConfig, ConfigName: target, Patch: []byte(`{}`)}
			},
		},
		{
			kind:     domain.ActionRemoveIsolation,
			duration: 5 * time.Second,
			build: func(target string) domain.Action {
				return domain.Action{Kind: domain.ActionRemoveIsolation, Target: target}
			},
		},
	}
}

// GenerateCandidates builds one single-action Plan per allowed action
// template (spec §4.4: "the Cartesian product of applicable Action
// templates pruned by the policy's allowed_actions" — with five action
// kinds and no per-kind parameter axis worth multiplying out here, the
// product degenerates to one candidate per allowed kind).
func GenerateCandidates(target string, diag domain.Diagnosis, allowedActions []string) []Candidate {
	allowed := make(map[string]bool, len(allowedActions))
	for _, a := range allowedActions {
		allowed[a] = true
	}

	var candidates []Candidate
	for _, tmpl := range templates(target) {
		if len(allowed) > 0 && !allowed[string(tmpl.kind)] {
			continue
		}
		action := tmpl.build(target)
		plan := domain.Plan{
			CandidateID:      fmt.Sprintf("%s-%s", target, tmpl.kind),
			Actions:          []domain.Action{action},
			ExpectedOutcome:  domain.ExpectedOutcomePredicate{TargetID: target},
			Confidence:       diag.Confidence,
			RiskClass:        tmpl.kind.RiskClass(),
			ExpectedDuration: tmpl.duration,
		}
		candidates = append(candidates, Candidate{Plan: plan})
	}
	return candidates
}
