package k8s

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

// ResourceRequirements is the quantity-string form of cpu/memory
// limits/requests carried on a ScaleVertical Action (spec §3), converted
// to the typed k8s form only at the point of mutation.
type ResourceRequirements struct {
	CPULimit      string
	MemoryLimit   string
	CPURequest    string
	MemoryRequest string
}

// ToK8sResourceRequirements parses each non-empty quantity string,
// omitting limits/requests entirely when none of their fields are set.
func (r ResourceRequirements) ToK8sResourceRequirements() (corev1.ResourceRequirements, error) {
	var out corev1.ResourceRequirements

	limits := corev1.ResourceList{}
	if r.CPULimit != "" {
		q, err := resource.ParseQuantity(r.CPULimit)
		if err != nil {
			return out, err
		}
		limits[corev1.ResourceCPU] = q
	}
	if r.MemoryLimit != "" {
		q, err := resource.ParseQuantity(r.MemoryLimit)
		if err != nil {
			return out, err
		}
		limits[corev1.ResourceMemory] = q
	}

	requests := corev1.ResourceList{}
	if r.CPURequest != "" {
		q, err := resource.ParseQuantity(r.CPURequest)
		if err != nil {
			return out, err
		}
		requests[corev1.ResourceCPU] = q
	}
	if r.MemoryRequest != "" {
		q, err := resource.ParseQuantity(r.MemoryRequest)
		if err != nil {
			return out, err
		}
		requests[corev1.ResourceMemory] = q
	}

	out.Limits = limits
	out.Requests = requests
	return out, nil
}
