package telemetry

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/recist-project/recist/internal/errors"
	"github.com/recist-project/recist/pkg/domain"
)

// EventsClient streams cluster events lazily via the client-go watch API
// (spec §4.1's stream_events operation).
type EventsClient interface {
	StreamEvents(ctx context.Context, namespace string) (<-chan domain.ClusterEvent, error)
}

type k8sEventsClient struct {
	clientset kubernetes.Interface
}

func NewK8sEventsClient(clientset kubernetes.Interface) EventsClient {
	return &k8sEventsClient{clientset: clientset}
}

func (c *k8sEventsClient) StreamEvents(ctx context.Context, namespace string) (<-chan domain.ClusterEvent, error) {
	watcher, err := c.clientset.CoreV1().Events(namespace).Watch(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.NewBackendUnavailableError("cluster-events", err)
	}

	out := make(chan domain.ClusterEvent)
	go func() {
		defer close(out)
		defer watcher.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case result, ok := <-watcher.ResultChan():
				if !ok {
					return
				}
				event, ok := result.Object.(*corev1.Event)
				if !ok {
					continue
				}
				select {
				case out <- toClusterEvent(event):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func toClusterEvent(e *corev1.Event) domain.ClusterEvent {
	ts := e.LastTimestamp.Time
	if ts.IsZero() {
		ts = e.EventTime.Time
	}
	return domain.ClusterEvent{
		Timestamp: ts.UTC(),
		Reason:    e.Reason,
		Object:    e.InvolvedObject.Name,
		Namespace: e.Namespace,
		Message:   e.Message,
	}
}
