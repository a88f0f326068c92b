// Package sanitization redacts secrets from notification payloads
// before they leave the cluster (spec §6: Slack/email notifications
// referenced by SelfHealingPolicy.spec.notifications).
package sanitization

import (
	"fmt"
	"regexp"
	"strings"
)

const redactedMarker = "***REDACTED***"

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*\S+`),
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*\S+`),
	regexp.MustCompile(`(?i)(token|secret)\s*[:=]\s*\S+`),
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]+`),
}

// Sanitizer redacts secret-shaped substrings from notification text.
type Sanitizer struct {
	patterns []*regexp.Regexp
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{patterns: secretPatterns}
}

// SanitizeWithFallback runs the regex-based Sanitize and, if it panics
// (a pathological pattern against adversarial input), recovers and
// falls back to SafeFallback's simple string matching rather than
// letting an unsanitized payload escape.
func (s *Sanitizer) SanitizeWithFallback(input string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = s.SafeFallback(input)
			err = fmt.Errorf("sanitizer panicked, used safe fallback: %v", r)
		}
	}()
	return s.Sanitize(input), nil
}

// Sanitize replaces every secret-shaped substring with a redaction
// marker using the regex pattern set.
func (s *Sanitizer) Sanitize(input string) string {
	out := input
	for _, pattern := range s.patterns {
		out = pattern.ReplaceAllString(out, redactedMarker)
	}
	return out
}

var fallbackMarkers = []string{"password", "passwd", "api_key", "apikey", "token", "secret"}

// SafeFallback redacts using plain word-level substring matching only,
// with no regex engine involved, for use when Sanitize cannot be
// trusted (e.g. recovering from a pathological-pattern panic). A field
// naming a marker (e.g. "password:") redacts itself; if the marker's
// value isn't attached to the same field (no colon-value in "password:
// secret123"), the following field is redacted too, so the secret
// doesn't just move one field to the right.
func (s *Sanitizer) SafeFallback(input string) string {
	fields := strings.Fields(input)
	redactNext := false
	for i, field := range fields {
		if redactNext {
			fields[i] = "[REDACTED]"
			redactNext = false
			continue
		}
		marker, ok := matchedMarker(field)
		if !ok {
			continue
		}
		remainder := strings.TrimLeft(stripMarker(field, marker), ":= ")
		if remainder == "" {
			redactNext = true
		}
		fields[i] = "[REDACTED]"
	}
	return strings.Join(fields, " ")
}

func matchedMarker(field string) (string, bool) {
	lower := strings.ToLower(field)
	for _, marker := range fallbackMarkers {
		if strings.Contains(lower, marker) {
			return marker, true
		}
	}
	return "", false
}

func stripMarker(field, marker string) string {
	idx := strings.Index(strings.ToLower(field), marker)
	if idx < 0 {
		return field
	}
	return field[idx+len(marker):]
}
