package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	runtimescheme "k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	healingv1alpha1 "github.com/recist-project/recist/internal/apis/healing/v1alpha1"
	"github.com/recist-project/recist/internal/config"
	internalcontroller "github.com/recist-project/recist/internal/controller"
	"github.com/recist-project/recist/pkg/bus"
	"github.com/recist-project/recist/pkg/containment"
	"github.com/recist-project/recist/pkg/diagnosis"
	"github.com/recist-project/recist/pkg/executor"
	"github.com/recist-project/recist/pkg/k8s"
	"github.com/recist-project/recist/pkg/knowledge"
	"github.com/recist-project/recist/pkg/knowledge/vector"
	"github.com/recist-project/recist/pkg/llm"
	"github.com/recist-project/recist/pkg/metacognitive"
	"github.com/recist-project/recist/pkg/metrics"
	"github.com/recist-project/recist/pkg/notification"
	"github.com/recist-project/recist/pkg/notification/delivery"
	"github.com/recist-project/recist/pkg/orchestration"
	"github.com/recist-project/recist/pkg/shared/logging"
	"github.com/recist-project/recist/pkg/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ReCiSt control plane",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	k8sClient, err := k8s.NewClient(cfg.Kubernetes, log)
	if err != nil {
		return fmt.Errorf("failed to build Kubernetes client: %w", err)
	}

	eventBus := bus.NewInMemoryBus()

	metricsClient, err := telemetry.NewPrometheusMetricsClient(cfg.PrometheusURL(), 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to build metrics client: %w", err)
	}
	logsClient := telemetry.NewLokiLogsClient(cfg.LokiURL(), 10*time.Second)
	adapters := telemetry.New(metricsClient, logsClient, nil)

	readings := containment.NewK8sReadingSource(k8sClient, metricsClient, cfg.Discovery.Namespaces, cfg.Discovery.LabelSelector, cfg.Thresholds.SampleInterval)
	isolationApplier := containment.NewK8sIsolationApplier(k8sClient)
	isolationRegistry := containment.NewIsolationRegistry(isolationApplier)
	neighborRouter := containment.NewK8sNeighborRouter(k8sClient)
	containmentAgent := containment.NewAgent(readings, isolationRegistry, neighborRouter, eventBus, cfg.Thresholds, cfg.Thresholds.SampleInterval, log)

	model, err := llm.New(cfg.SLM, log)
	if err != nil {
		return fmt.Errorf("failed to build LLM client: %w", err)
	}

	vectorIndex, err := vector.NewIndex(cfg.VectorDB, cfg.QdrantURL())
	if err != nil {
		return fmt.Errorf("failed to build vector index: %w", err)
	}
	embeddings := vector.NewLocalEmbeddingService(cfg.VectorDB.EmbeddingService.Dimension, log)
	knowledgeStore := knowledge.NewStore(vectorIndex, embeddings, cfg.Orchestration, log)

	diagnosisAgent := diagnosis.NewAgent(adapters, knowledgeStore, model, eventBus, cfg.Orchestration, log)

	actionExecutor := executor.New(k8sClient, cfg.Actions, log)
	metacognitiveAgent := metacognitive.NewAgent(model, actionExecutor, containmentAgent, eventBus, cfg.Orchestration, log)

	mgr, err := newManager()
	if err != nil {
		return fmt.Errorf("failed to build controller manager: %w", err)
	}
	store := internalcontroller.NewCRDStore(mgr.GetClient())
	reconciler := internalcontroller.NewReconciler(mgr.GetClient(), log)
	if err := reconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("failed to set up SelfHealingPolicy controller: %w", err)
	}

	orchestrator := orchestration.NewOrchestrator(store, eventBus, knowledgeStore, isolationRegistry, cfg.Orchestration, log)

	var deliverers []notification.Deliverer
	if cfg.Notifications.Enabled {
		deliverers = append(deliverers, delivery.NewFileDeliveryService(os.TempDir()))
	}
	notifier := notification.NewNotifier(os.Getenv("SLACK_BOT_TOKEN"), cfg.Notifications.SlackWebhook, deliverers, log)

	metricsServer := metrics.NewServer(cfg.Server.MetricsPort, log)
	metricsServer.StartAsync()

	go containmentAgent.Run(ctx)
	go runProactiveScan(ctx, readings, knowledgeStore, eventBus, cfg.Orchestration, log)
	go runStaleIsolationSweep(ctx, isolationRegistry, cfg.Orchestration.StaleIsolationTTL, log)
	diagnosisAgent.Start(ctx)
	metacognitiveAgent.Start(ctx, cfg.Actions.AllowedActions)
	orchestrator.Start(ctx)
	notifier.Start(ctx, eventBus)

	if _, err := orchestrator.Resume(ctx); err != nil {
		log.Error(err, "failed to resume in-flight incidents on startup")
	}

	go func() {
		if err := mgr.Start(ctx); err != nil {
			log.Error(err, "controller manager stopped unexpectedly")
		}
	}()

	log.Info("recist control plane started", "metrics_port", cfg.Server.MetricsPort)
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		log.Error(err, "failed to stop metrics server cleanly")
	}
	return nil
}

// runProactiveScan loops until ctx is cancelled, running the Knowledge
// Agent's hourly proactive_scan (spec §4.5) against the same live
// readings the Containment Agent samples, so a precursor match is
// raised before thresholds actually fire.
func runProactiveScan(ctx context.Context, readings containment.ReadingSource, knowledgeStore *knowledge.Store, eventBus bus.Bus, cfg config.OrchestrationConfig, log logr.Logger) {
	interval := cfg.ProactiveScanInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current, err := readings.CurrentReadings(ctx)
			if err != nil {
				log.Error(err, "proactive scan failed to gather readings")
				continue
			}
			trends, err := knowledgeStore.GatherTrendReadings(ctx, current)
			if err != nil {
				log.Error(err, "proactive scan failed to embed trend readings")
				continue
			}
			knowledgeStore.ProactiveScan(ctx, trends, cfg.ProactiveScanThreshold, eventBus)
		}
	}
}

// runStaleIsolationSweep loops until ctx is cancelled, reverting any
// isolation descriptor older than ttl (SPEC_FULL.md supplemented
// feature: an incident that never resolves must not leave a target
// isolated forever; see spec §8 scenario 3).
func runStaleIsolationSweep(ctx context.Context, registry *containment.IsolationRegistry, ttl time.Duration, log logr.Logger) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	checkInterval := ttl / 4
	if checkInterval < time.Minute {
		checkInterval = time.Minute
	}
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, descriptor := range registry.Stale(ttl) {
				if err := registry.Remove(ctx, descriptor.Namespace, descriptor.TargetID); err != nil {
					log.Error(err, "failed to revert stale isolation", "target", descriptor.TargetID, "namespace", descriptor.Namespace)
				}
			}
		}
	}
}

// newManager builds the controller-runtime Manager that runs the
// SelfHealingPolicy status-aggregation reconciler (spec's "Policy
// status reporting" supplemented feature) alongside the bus-driven
// agents above, which do not themselves need a Manager.
func newManager() (ctrl.Manager, error) {
	scheme := runtimescheme.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, err
	}
	if err := healingv1alpha1.AddToScheme(scheme); err != nil {
		return nil, err
	}

	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return nil, err
	}
	return ctrl.NewManager(restConfig, ctrl.Options{
		Scheme:                 scheme,
		HealthProbeBindAddress: "0",
		Metrics:                metricsserver.Options{BindAddress: "0"},
	})
}
