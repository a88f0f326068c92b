// Package logging provides a typed field builder for structured logging,
// threaded through every agent so log lines share a consistent shape
// regardless of which logging backend (logr/zap) ultimately consumes them.
package logging

import "time"

// Fields is a chainable builder over a structured log field map.
type Fields map[string]interface{}

func NewFields() Fields {
	return Fields{}
}

func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

func (f Fields) Operation(name string) Fields {
	f["operation"] = name
	return f
}

func (f Fields) Resource(resourceType, resourceName string) Fields {
	f["resource_type"] = resourceType
	if resourceName != "" {
		f["resource_name"] = resourceName
	}
	return f
}

func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

func (f Fields) UserID(id string) Fields {
	if id != "" {
		f["user_id"] = id
	}
	return f
}

func (f Fields) RequestID(id string) Fields {
	f["request_id"] = id
	return f
}

func (f Fields) TraceID(id string) Fields {
	f["trace_id"] = id
	return f
}

func (f Fields) StatusCode(code int) Fields {
	f["status_code"] = code
	return f
}

func (f Fields) Method(method string) Fields {
	f["method"] = method
	return f
}

func (f Fields) URL(url string) Fields {
	f["url"] = url
	return f
}

func (f Fields) Count(n int) Fields {
	f["count"] = n
	return f
}

func (f Fields) Size(bytes int64) Fields {
	f["size_bytes"] = bytes
	return f
}

func (f Fields) Version(v string) Fields {
	f["version"] = v
	return f
}

func (f Fields) Custom(key string, value interface{}) Fields {
	f[key] = value
	return f
}

// ToLogrus returns f as a logrus.Fields-compatible map (kept for adapters
// that still log through logrus-shaped sinks).
func (f Fields) ToLogrus() map[string]interface{} {
	return map[string]interface{}(f)
}

// Incident adds the identifiers every ReCiSt log line about an in-flight
// incident should carry.
func (f Fields) Incident(incidentID, targetID, phase string) Fields {
	f["incident_id"] = incidentID
	f["target_id"] = targetID
	f["phase"] = phase
	return f
}

func DatabaseFields(operation, table string) Fields {
	return NewFields().Component("database").Operation(operation).Resource("table", table)
}

func HTTPFields(method, url string, statusCode int) Fields {
	return NewFields().Component("http").Method(method).URL(url).StatusCode(statusCode)
}

func WorkflowFields(operation, workflowID string) Fields {
	return NewFields().Component("workflow").Operation(operation).Resource("workflow", workflowID)
}

func KubernetesFields(operation, resourceType, resourceName, namespace string) Fields {
	f := NewFields().Component("kubernetes").Operation(operation).Resource(resourceType, resourceName)
	if namespace != "" {
		f["namespace"] = namespace
	}
	return f
}

func AIFields(operation, model string) Fields {
	return NewFields().Component("ai").Operation(operation).Custom("model", model)
}

func MetricsFields(operation, metricName string, value float64) Fields {
	return NewFields().Component("metrics").Operation(operation).Custom("metric_name", metricName).Custom("value", value)
}

func SecurityFields(operation, subject string) Fields {
	return NewFields().Component("security").Operation(operation).Custom("subject", subject)
}

func PerformanceFields(operation string, d time.Duration, success bool) Fields {
	return NewFields().Component("performance").Operation(operation).Duration(d).Custom("success", success)
}
