package containment

import (
	"context"

	"github.com/recist-project/recist/pkg/k8s"
)

const preferredLabelKey = "recist.io/routing-preferred"

// NeighborRouter updates load-balancing preference for a healthy
// neighbor once it has been selected to absorb diverted load from a
// faulted target in the same service group (spec §4.2 step 5).
type NeighborRouter interface {
	PreferNeighbor(ctx context.Context, namespace, target string) error
}

// K8sNeighborRouter implements NeighborRouter by stamping a label a
// Service's selector is configured to prefer, the same mechanism
// K8sIsolationApplier uses to pull an isolated target out of routing.
type K8sNeighborRouter struct {
	client k8s.Client
}

func NewK8sNeighborRouter(client k8s.Client) *K8sNeighborRouter {
	return &K8sNeighborRouter{client: client}
}

func (r *K8sNeighborRouter) PreferNeighbor(ctx context.Context, namespace, target string) error {
	return r.client.SetPodLabel(ctx, namespace, target, preferredLabelKey, "true")
}
