package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/recist-project/recist/internal/errors"
)

// fencedJSON extracts the content of the first ```json ... ``` fence, or
// falls back to the first {...} span if the model omitted the fence.
// Both response shapes spec §6 describes (diagnosis and planning
// questions) are plain JSON objects, so one extractor serves both.
var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

func fencedJSON(response string) (string, error) {
	if m := fencedJSONPattern.FindStringSubmatch(response); m != nil {
		return m[1], nil
	}
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end < 0 || end < start {
		return "", errors.New(errors.ErrorTypeParse, "no JSON object found in llm response")
	}
	return response[start : end+1], nil
}

// DiagnosisResponse is the shape spec §6 asks the model for when
// diagnosing a fault.
type DiagnosisResponse struct {
	RootCause  string   `json:"root_cause"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

// ParseDiagnosisResponse parses a raw model response into a
// DiagnosisResponse, tolerating a fenced or bare JSON object.
func ParseDiagnosisResponse(response string) (DiagnosisResponse, error) {
	raw, err := fencedJSON(response)
	if err != nil {
		return DiagnosisResponse{}, err
	}
	var out DiagnosisResponse
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return DiagnosisResponse{}, errors.Wrap(err, errors.ErrorTypeParse, "failed to decode diagnosis response")
	}
	return out, nil
}

// PlanningQuestionResponse is the shape spec §6 asks the model for
// when a MetaCognitive micro-agent asks a planning question.
type PlanningQuestionResponse struct {
	SuccessProbability float64 `json:"success_probability"`
	Risk               string  `json:"risk"`
	DurationEstimate   string  `json:"duration_estimate"`
}

func ParsePlanningQuestionResponse(response string) (PlanningQuestionResponse, error) {
	raw, err := fencedJSON(response)
	if err != nil {
		return PlanningQuestionResponse{}, err
	}
	var out PlanningQuestionResponse
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return PlanningQuestionResponse{}, errors.Wrap(err, errors.ErrorTypeParse, "failed to decode planning question response")
	}
	return out, nil
}

// DiagnosisPrompt composes the prompt described in spec §4.3 step 5:
// structured logs (already truncated by the caller to fit model
// context), metric highlights, and k-NN priors.
func DiagnosisPrompt(logsBlock, metricHighlights string, priors []string) string {
	var b strings.Builder
	b.WriteString("You are diagnosing a Kubernetes workload fault. Respond with a single fenced JSON object:\n")
	b.WriteString("```json\n{\"root_cause\": string, \"confidence\": number between 0 and 1, \"evidence\": [string]}\n```\n\n")
	b.WriteString("Structured logs:\n")
	b.WriteString(logsBlock)
	b.WriteString("\n\nMetric highlights:\n")
	b.WriteString(metricHighlights)
	if len(priors) > 0 {
		b.WriteString("\n\nSimilar past incidents:\n")
		for i, p := range priors {
			fmt.Fprintf(&b, "%d. %s\n", i+1, p)
		}
	}
	return b.String()
}
