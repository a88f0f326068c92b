package k8s

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

var _ = Describe("ResourceRequirements.ToK8sResourceRequirements", func() {
	Context("when converting valid resources", func() {
		It("should convert both limits and requests correctly", func() {
			input := ResourceRequirements{
				CPULimit:      "1000m",
				MemoryLimit:   "2Gi",
				CPURequest:    "500m",
				MemoryRequest: "1Gi",
			}
			expected := corev1.ResourceRequirements{
				Limits: corev1.ResourceList{
					corev1.ResourceCPU:    resource.MustParse("1000m"),
					corev1.ResourceMemory: resource.MustParse("2Gi"),
				},
				Requests: corev1.ResourceList{
					corev1.ResourceCPU:    resource.MustParse("500m"),
					corev1.ResourceMemory: resource.MustParse("1Gi"),
				},
			}

			result, err := input.ToK8sResourceRequirements()
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(expected))
		})

		It("should return an error for an unparseable quantity", func() {
			input := ResourceRequirements{CPULimit: "not-a-quantity"}
			_, err := input.ToK8sResourceRequirements()
			Expect(err).To(HaveOccurred())
		})
	})
})
