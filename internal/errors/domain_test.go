package errors

import (
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Domain Error Taxonomy", func() {
	It("maps BackendUnavailable to 503", func() {
		err := NewBackendUnavailableError("metrics", errors.New("dial tcp: refused"))
		Expect(err.Type).To(Equal(ErrorTypeBackendUnavailable))
		Expect(err.StatusCode).To(Equal(http.StatusServiceUnavailable))
		Expect(err.Unwrap()).To(HaveOccurred())
	})

	It("maps BackendTimeout to 504", func() {
		err := NewBackendTimeoutError("llm", errors.New("context deadline exceeded"))
		Expect(err.StatusCode).To(Equal(http.StatusGatewayTimeout))
	})

	It("maps PolicyForbidden to 403 and names the rejected action", func() {
		err := NewPolicyForbiddenError("updateResources")
		Expect(err.StatusCode).To(Equal(http.StatusForbidden))
		Expect(err.Message).To(ContainSubstring("updateResources"))
	})

	It("marks InvariantViolation as non-retryable by status", func() {
		err := NewInvariantViolationError("two active incidents for target pod/web-7")
		Expect(err.Type).To(Equal(ErrorTypeInvariantViolation))
		Expect(GetStatusCode(err)).To(Equal(http.StatusInternalServerError))
	})
})
