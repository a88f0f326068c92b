package main

import (
	"testing"

	healingv1alpha1 "github.com/recist-project/recist/internal/apis/healing/v1alpha1"
)

func validPolicySpec() healingv1alpha1.SelfHealingPolicySpec {
	return healingv1alpha1.SelfHealingPolicySpec{
		TargetNamespaces: []string{"apps"},
		AllowedActions:   []string{"restart", "scale"},
		Thresholds:       healingv1alpha1.ThresholdProfile{CPU: 0.8, Memory: 0.8, LatencyMs: 500, ErrorRate: 0.1},
		LLMConfig:        healingv1alpha1.LLMSpec{Provider: "claude", Model: "claude-3-5-sonnet"},
	}
}

func TestValidatePolicySpecAcceptsWellFormedSpec(t *testing.T) {
	if errs := validatePolicySpec(validPolicySpec()); len(errs) != 0 {
		t.Fatalf("validatePolicySpec() errs = %v, want none", errs)
	}
}

func TestValidatePolicySpecRejectsUnknownAction(t *testing.T) {
	spec := validPolicySpec()
	spec.AllowedActions = []string{"reboot-everything"}
	errs := validatePolicySpec(spec)
	if len(errs) == 0 {
		t.Fatal("validatePolicySpec() = no errors, want an unknown-action error")
	}
}

func TestValidatePolicySpecRejectsMissingNamespaces(t *testing.T) {
	spec := validPolicySpec()
	spec.TargetNamespaces = nil
	errs := validatePolicySpec(spec)
	if len(errs) == 0 {
		t.Fatal("validatePolicySpec() = no errors, want a missing-namespaces error")
	}
}

func TestValidatePolicySpecRejectsInvalidErrorRate(t *testing.T) {
	spec := validPolicySpec()
	spec.Thresholds.ErrorRate = 1.5
	errs := validatePolicySpec(spec)
	if len(errs) == 0 {
		t.Fatal("validatePolicySpec() = no errors, want an invalid-error-rate error")
	}
}

func TestValidatePolicySpecRejectsUnsupportedProvider(t *testing.T) {
	spec := validPolicySpec()
	spec.LLMConfig.Provider = "carrier-pigeon"
	errs := validatePolicySpec(spec)
	if len(errs) == 0 {
		t.Fatal("validatePolicySpec() = no errors, want an unsupported-provider error")
	}
}
