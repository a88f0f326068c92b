// Package main is ReCiSt's CLI entrypoint: serve runs the control
// plane, validate-policy dry-runs a SelfHealingPolicy against the
// config schema, replay feeds a recorded telemetry slice through
// Diagnosis and MetaCognitive without touching the cluster.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "recist",
	Short:   "ReCiSt — automated fault detection, diagnosis, and remediation",
	Long:    `ReCiSt is a Kubernetes-resident control plane that detects faults, diagnoses them against correlated telemetry and language-model reasoning, remediates via a bounded action set, and learns from every outcome.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "path to config.yaml")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validatePolicyCmd)
	rootCmd.AddCommand(replayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
