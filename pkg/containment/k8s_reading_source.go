package containment

import (
	"context"
	"fmt"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/recist-project/recist/pkg/k8s"
	"github.com/recist-project/recist/pkg/telemetry"
)

// K8sReadingSource implements ReadingSource against a live cluster: pod
// discovery comes from k8s.Client (spec §4.2 step 1's namespace/label
// scoping), sample values from telemetry.MetricsClient. crashLoop and
// oomKilled are read directly off container statuses rather than
// metrics, since client-go already reports them without a PromQL round
// trip.
type K8sReadingSource struct {
	client        k8s.Client
	metrics       telemetry.MetricsClient
	namespaces    []string
	labelSelector string
	lookback      time.Duration
}

func NewK8sReadingSource(client k8s.Client, metrics telemetry.MetricsClient, namespaces []string, labelSelector string, lookback time.Duration) *K8sReadingSource {
	if lookback <= 0 {
		lookback = time.Minute
	}
	return &K8sReadingSource{
		client:        client,
		metrics:       metrics,
		namespaces:    namespaces,
		labelSelector: labelSelector,
		lookback:      lookback,
	}
}

func (s *K8sReadingSource) CurrentReadings(ctx context.Context) ([]TargetReading, error) {
	var readings []TargetReading
	for _, namespace := range s.namespaces {
		pods, err := s.client.ListPodsWithLabel(ctx, namespace, s.labelSelector)
		if err != nil {
			return nil, fmt.Errorf("failed to list pods in namespace %s: %w", namespace, err)
		}
		if len(pods.Items) == 0 {
			continue
		}

		window := telemetry.TimeWindow{
			Start: time.Now().Add(-s.lookback).UTC(),
			End:   time.Now().UTC(),
			Step:  15 * time.Second,
		}
		podRegex := podNameRegex(pods.Items)

		cpu, err := s.latestByPod(ctx, fmt.Sprintf(`avg by (pod) (rate(container_cpu_usage_seconds_total{namespace=%q,pod=~%q}[1m]))`, namespace, podRegex), window)
		if err != nil {
			return nil, err
		}
		memory, err := s.latestByPod(ctx, fmt.Sprintf(`avg by (pod) (container_memory_working_set_bytes{namespace=%q,pod=~%q} / container_spec_memory_limit_bytes{namespace=%q,pod=~%q})`, namespace, podRegex, namespace, podRegex), window)
		if err != nil {
			return nil, err
		}
		latency, err := s.latestByPod(ctx, fmt.Sprintf(`avg by (pod) (http_request_duration_seconds{namespace=%q,pod=~%q}) * 1000`, namespace, podRegex), window)
		if err != nil {
			return nil, err
		}
		errorRate, err := s.latestByPod(ctx, fmt.Sprintf(`sum by (pod) (rate(http_requests_total{namespace=%q,pod=~%q,status=~"5.."}[1m])) / sum by (pod) (rate(http_requests_total{namespace=%q,pod=~%q}[1m]))`, namespace, podRegex, namespace, podRegex), window)
		if err != nil {
			return nil, err
		}
		headroom, err := s.latestByPod(ctx, fmt.Sprintf(`avg by (pod) (1 - container_cpu_usage_seconds_total{namespace=%q,pod=~%q} / container_spec_cpu_quota{namespace=%q,pod=~%q})`, namespace, podRegex, namespace, podRegex), window)
		if err != nil {
			return nil, err
		}

		for _, pod := range pods.Items {
			readings = append(readings, TargetReading{
				TargetID:     pod.Name,
				Namespace:    pod.Namespace,
				CPU:          cpu[pod.Name],
				Memory:       memory[pod.Name],
				LatencyMs:    latency[pod.Name],
				ErrorRate:    errorRate[pod.Name],
				CrashLoop:    isCrashLoop(pod),
				OOMKilled:    isOOMKilled(pod),
				CPUHeadroom:  headroom[pod.Name],
				ServiceGroup: serviceGroup(pod),
			})
		}
	}
	return readings, nil
}

// latestByPod runs selector over window and returns each series' most
// recent sample keyed by its "pod" label, discarding series whose
// backend has emitted nothing in the window.
func (s *K8sReadingSource) latestByPod(ctx context.Context, selector string, window telemetry.TimeWindow) (map[string]float64, error) {
	series, err := s.metrics.QueryMetrics(ctx, selector, window)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(series))
	for _, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		out[s.Labels["pod"]] = s.Points[len(s.Points)-1].Value
	}
	return out, nil
}

func podNameRegex(pods []corev1.Pod) string {
	names := make([]string, len(pods))
	for i, pod := range pods {
		names[i] = pod.Name
	}
	return strings.Join(names, "|")
}

func serviceGroup(pod corev1.Pod) string {
	if app := pod.Labels["app"]; app != "" {
		return app
	}
	return pod.Labels["app.kubernetes.io/name"]
}

// isCrashLoop reports whether any container is in CrashLoopBackOff
// (the waiting reason client-go surfaces once the kubelet gives up
// restarting a container on schedule) or has restarted more than 3 times.
func isCrashLoop(pod corev1.Pod) bool {
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.State.Waiting != nil && cs.State.Waiting.Reason == "CrashLoopBackOff" {
			return true
		}
		if cs.RestartCount > 3 {
			return true
		}
	}
	return false
}

func isOOMKilled(pod corev1.Pod) bool {
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.LastTerminationState.Terminated != nil && cs.LastTerminationState.Terminated.Reason == "OOMKilled" {
			return true
		}
	}
	return false
}
