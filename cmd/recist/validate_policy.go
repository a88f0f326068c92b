package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	k8syaml "sigs.k8s.io/yaml"

	healingv1alpha1 "github.com/recist-project/recist/internal/apis/healing/v1alpha1"
)

var validatePolicyCmd = &cobra.Command{
	Use:   "validate-policy [file]",
	Short: "Validate a SelfHealingPolicy manifest without applying it to the cluster",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidatePolicy,
}

var allowedPolicyActions = map[string]bool{
	"restart":         true,
	"scale":           true,
	"updateConfig":    true,
	"updateResources": true,
}

func runValidatePolicy(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	var policy healingv1alpha1.SelfHealingPolicy
	if err := k8syaml.Unmarshal(data, &policy); err != nil {
		return fmt.Errorf("failed to parse SelfHealingPolicy: %w", err)
	}

	if errs := validatePolicySpec(policy.Spec); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, "error:", e)
		}
		return fmt.Errorf("%d validation error(s)", len(errs))
	}

	fmt.Printf("%s is valid: %d target namespace(s), %d allowed action(s)\n",
		args[0], len(policy.Spec.TargetNamespaces), len(policy.Spec.AllowedActions))
	return nil
}

func validatePolicySpec(spec healingv1alpha1.SelfHealingPolicySpec) []string {
	var errs []string

	if len(spec.TargetNamespaces) == 0 {
		errs = append(errs, "spec.targetNamespaces must name at least one namespace")
	}
	if len(spec.AllowedActions) == 0 {
		errs = append(errs, "spec.allowedActions must name at least one action")
	}
	for _, action := range spec.AllowedActions {
		if !allowedPolicyActions[action] {
			errs = append(errs, fmt.Sprintf("spec.allowedActions: unknown action %q", action))
		}
	}

	t := spec.Thresholds
	if t.CPU < 0 || t.Memory < 0 || t.LatencyMs < 0 || t.ErrorRate < 0 {
		errs = append(errs, "spec.thresholds: values must be non-negative")
	}
	if t.ErrorRate > 1 {
		errs = append(errs, "spec.thresholds.errorRate must be a ratio between 0 and 1")
	}

	switch spec.LLMConfig.Provider {
	case "claude", "openai", "gemini", "ollama":
	default:
		errs = append(errs, fmt.Sprintf("spec.llmConfig.provider: unsupported provider %q", spec.LLMConfig.Provider))
	}

	return errs
}
