package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/recist-project/recist/internal/config"
	"github.com/recist-project/recist/pkg/bus"
	"github.com/recist-project/recist/pkg/diagnosis"
	"github.com/recist-project/recist/pkg/domain"
	"github.com/recist-project/recist/pkg/executor"
	"github.com/recist-project/recist/pkg/knowledge"
	"github.com/recist-project/recist/pkg/knowledge/vector"
	"github.com/recist-project/recist/pkg/llm"
	"github.com/recist-project/recist/pkg/metacognitive"
	"github.com/recist-project/recist/pkg/shared/logging"
)

var replayCmd = &cobra.Command{
	Use:   "replay [recording.json]",
	Short: "Feed a recorded telemetry slice through Diagnosis and MetaCognitive without touching the cluster",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

// recording is the replay input format: a fault seed plus the
// correlated telemetry slice the Diagnosis Agent would otherwise
// assemble live via telemetry.Adapters.
type recording struct {
	Seed  domain.FaultRecord   `json:"seed"`
	Slice domain.TelemetrySlice `json:"slice"`
}

type staticTelemetrySource struct {
	slice domain.TelemetrySlice
}

func (s *staticTelemetrySource) Slice(context.Context, string, string, string, time.Time, time.Time, int) (domain.TelemetrySlice, error) {
	return s.slice, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	var rec recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("failed to parse recording: %w", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	model, err := llm.New(cfg.SLM, log)
	if err != nil {
		return fmt.Errorf("failed to build LLM client: %w", err)
	}

	knowledgeStore := knowledge.NewStore(vector.NewMemoryIndex(), vector.NewLocalEmbeddingService(cfg.VectorDB.EmbeddingService.Dimension, log), cfg.Orchestration, log)

	// DryRun forces the executor to log the plan it would dispatch
	// instead of issuing it against a cluster; nil client is safe
	// because dryRun() skips its compensate lookups when no k8s.Client
	// is set and never issues a mutation.
	actionsCfg := cfg.Actions
	actionsCfg.DryRun = true
	replayExecutor := executor.New(nil, actionsCfg, log)

	orchCfg := cfg.Orchestration
	orchCfg.VerificationWait = time.Millisecond

	eventBus := bus.NewInMemoryBus()
	diagnosisAgent := diagnosis.NewAgent(&staticTelemetrySource{slice: rec.Slice}, knowledgeStore, model, eventBus, orchCfg, log)
	metacognitiveAgent := metacognitive.NewAgent(model, replayExecutor, nil, eventBus, orchCfg, log)
	metacognitiveAgent.Start(context.Background(), cfg.Actions.AllowedActions)

	done := make(chan struct{})
	eventBus.Subscribe("replay-cli", []bus.EventType{
		bus.EventDiagnosisInconclusive,
		bus.EventNoViablePlan,
		bus.EventActionDispatched,
		bus.EventActionError,
		bus.EventVerificationResult,
	}, func(e bus.Event) {
		fmt.Printf("%s: %+v\n", e.Type, e.Payload)
		switch e.Type {
		case bus.EventVerificationResult, bus.EventNoViablePlan, bus.EventDiagnosisInconclusive, bus.EventActionError:
			close(done)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	diagnosisAgent.Diagnose(ctx, rec.Seed)

	select {
	case <-done:
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "replay timed out waiting for a terminal event")
	}
	return nil
}
