// Package logging provides a small chainable builder for structured
// logrus.Fields, keeping key names consistent across every component that
// logs (database, http, workflow, kubernetes adapters, ai, metrics,
// security, performance, and investigation-specific fields).
package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Fields is a chainable set of structured logging key/value pairs.
type Fields map[string]interface{}

// NewFields returns an empty Fields builder.
func NewFields() Fields {
	return Fields{}
}

// Component sets the component field.
func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

// Operation sets the operation field.
func (f Fields) Operation(op string) Fields {
	f["operation"] = op
	return f
}

// Resource sets resource_type, and resource_name when name is non-empty.
func (f Fields) Resource(resourceType, name string) Fields {
	f["resource_type"] = resourceType
	if name != "" {
		f["resource_name"] = name
	}
	return f
}

// Duration sets duration_ms from d.
func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

// Error sets the error field from err.Error(), skipping nil errors.
func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

// UserID sets user_id, skipping empty values.
func (f Fields) UserID(id string) Fields {
	if id != "" {
		f["user_id"] = id
	}
	return f
}

// RequestID sets request_id.
func (f Fields) RequestID(id string) Fields {
	f["request_id"] = id
	return f
}

// TraceID sets trace_id.
func (f Fields) TraceID(id string) Fields {
	f["trace_id"] = id
	return f
}

// StatusCode sets status_code.
func (f Fields) StatusCode(code int) Fields {
	f["status_code"] = code
	return f
}

// Method sets method.
func (f Fields) Method(method string) Fields {
	f["method"] = method
	return f
}

// URL sets url.
func (f Fields) URL(url string) Fields {
	f["url"] = url
	return f
}

// Count sets count.
func (f Fields) Count(n int) Fields {
	f["count"] = n
	return f
}

// Size sets size_bytes.
func (f Fields) Size(bytes int64) Fields {
	f["size_bytes"] = bytes
	return f
}

// Version sets version.
func (f Fields) Version(v string) Fields {
	f["version"] = v
	return f
}

// Custom sets an arbitrary key.
func (f Fields) Custom(key string, value interface{}) Fields {
	f[key] = value
	return f
}

// ToLogrus converts Fields to logrus.Fields for passing to WithFields.
func (f Fields) ToLogrus() logrus.Fields {
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		lf[k] = v
	}
	return lf
}

// DatabaseFields builds fields for a database operation against table.
func DatabaseFields(operation, table string) Fields {
	return NewFields().Component("database").Operation(operation).Resource("table", table)
}

// HTTPFields builds fields for an HTTP request/response.
func HTTPFields(method, url string, statusCode int) Fields {
	return NewFields().Component("http").Method(method).URL(url).StatusCode(statusCode)
}

// WorkflowFields builds fields for a workflow operation.
func WorkflowFields(operation, id string) Fields {
	return NewFields().Component("workflow").Operation(operation).Resource("workflow", id)
}

// KubernetesFields builds fields for a Kubernetes resource operation,
// setting namespace only when non-empty.
func KubernetesFields(operation, resourceType, name, namespace string) Fields {
	fields := NewFields().Component("kubernetes").Operation(operation).Resource(resourceType, name)
	if namespace != "" {
		fields["namespace"] = namespace
	}
	return fields
}

// AIFields builds fields for an LLM/AI operation.
func AIFields(operation, model string) Fields {
	return NewFields().Component("ai").Operation(operation).Custom("model", model)
}

// MetricsFields builds fields for a recorded metric value.
func MetricsFields(operation, metricName string, value float64) Fields {
	return NewFields().Component("metrics").Operation(operation).
		Custom("metric_name", metricName).Custom("value", value)
}

// SecurityFields builds fields for a security-relevant operation on a
// subject (user, token, tenant).
func SecurityFields(operation, subject string) Fields {
	return NewFields().Component("security").Operation(operation).Custom("subject", subject)
}

// PerformanceFields builds fields summarizing an operation's timing and
// outcome.
func PerformanceFields(operation string, duration time.Duration, success bool) Fields {
	return NewFields().Component("performance").Operation(operation).
		Duration(duration).Custom("success", success)
}

// InvestigationFields builds fields identifying an investigation and,
// when present, the hypothesis currently being worked.
func InvestigationFields(investigationID, hypothesisID string) Fields {
	fields := NewFields().Component("investigation").Resource("investigation", investigationID)
	if hypothesisID != "" {
		fields["hypothesis_id"] = hypothesisID
	}
	return fields
}
