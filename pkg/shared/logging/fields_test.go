package logging

import (
	"errors"
	"testing"
	"time"
)

func TestNewFields(t *testing.T) {
	fields := NewFields()
	if fields == nil {
		t.Fatal("NewFields() returned nil")
	}
	if len(fields) != 0 {
		t.Errorf("NewFields() should be empty, got %d fields", len(fields))
	}
}

func TestStandardFields_Component(t *testing.T) {
	fields := NewFields().Component("orchestrator")

	if fields["component"] != "orchestrator" {
		t.Errorf("Component() = %v, want %v", fields["component"], "orchestrator")
	}
}

func TestStandardFields_Operation(t *testing.T) {
	fields := NewFields().Operation("investigate")

	if fields["operation"] != "investigate" {
		t.Errorf("Operation() = %v, want %v", fields["operation"], "investigate")
	}
}

func TestStandardFields_Resource(t *testing.T) {
	fields := NewFields().Resource("hypothesis", "h1")

	if fields["resource_type"] != "hypothesis" {
		t.Errorf("Resource() resource_type = %v, want %v", fields["resource_type"], "hypothesis")
	}
	if fields["resource_name"] != "h1" {
		t.Errorf("Resource() resource_name = %v, want %v", fields["resource_name"], "h1")
	}
}

func TestStandardFields_ResourceWithoutName(t *testing.T) {
	fields := NewFields().Resource("hypothesis", "")

	if fields["resource_type"] != "hypothesis" {
		t.Errorf("Resource() resource_type = %v, want %v", fields["resource_type"], "hypothesis")
	}
	if _, exists := fields["resource_name"]; exists {
		t.Error("Resource() should not set resource_name when empty")
	}
}

func TestStandardFields_Duration(t *testing.T) {
	duration := 220 * time.Millisecond
	fields := NewFields().Duration(duration)

	if fields["duration_ms"] != int64(220) {
		t.Errorf("Duration() = %v, want %v", fields["duration_ms"], int64(220))
	}
}

func TestStandardFields_Error(t *testing.T) {
	err := errors.New("schema discovery failed")
	fields := NewFields().Error(err)

	if fields["error"] != "schema discovery failed" {
		t.Errorf("Error() = %v, want %v", fields["error"], "schema discovery failed")
	}
}

func TestStandardFields_ErrorNil(t *testing.T) {
	fields := NewFields().Error(nil)

	if _, exists := fields["error"]; exists {
		t.Error("Error(nil) should not set error field")
	}
}

func TestStandardFields_UserID(t *testing.T) {
	fields := NewFields().UserID("tenant-acme")

	if fields["user_id"] != "tenant-acme" {
		t.Errorf("UserID() = %v, want %v", fields["user_id"], "tenant-acme")
	}
}

func TestStandardFields_UserIDEmpty(t *testing.T) {
	fields := NewFields().UserID("")

	if _, exists := fields["user_id"]; exists {
		t.Error("UserID(\"\") should not set user_id field")
	}
}

func TestStandardFields_RequestID(t *testing.T) {
	fields := NewFields().RequestID("inv-42")

	if fields["request_id"] != "inv-42" {
		t.Errorf("RequestID() = %v, want %v", fields["request_id"], "inv-42")
	}
}

func TestStandardFields_TraceID(t *testing.T) {
	fields := NewFields().TraceID("trace-abc")

	if fields["trace_id"] != "trace-abc" {
		t.Errorf("TraceID() = %v, want %v", fields["trace_id"], "trace-abc")
	}
}

func TestStandardFields_StatusCode(t *testing.T) {
	fields := NewFields().StatusCode(503)

	if fields["status_code"] != 503 {
		t.Errorf("StatusCode() = %v, want %v", fields["status_code"], 503)
	}
}

func TestStandardFields_Method(t *testing.T) {
	fields := NewFields().Method("POST")

	if fields["method"] != "POST" {
		t.Errorf("Method() = %v, want %v", fields["method"], "POST")
	}
}

func TestStandardFields_URL(t *testing.T) {
	fields := NewFields().URL("https://openlineage.internal/api/v1/lineage")

	if fields["url"] != "https://openlineage.internal/api/v1/lineage" {
		t.Errorf("URL() = %v, want %v", fields["url"], "https://openlineage.internal/api/v1/lineage")
	}
}

func TestStandardFields_Count(t *testing.T) {
	fields := NewFields().Count(7)

	if fields["count"] != 7 {
		t.Errorf("Count() = %v, want %v", fields["count"], 7)
	}
}

func TestStandardFields_Size(t *testing.T) {
	fields := NewFields().Size(4096)

	if fields["size_bytes"] != int64(4096) {
		t.Errorf("Size() = %v, want %v", fields["size_bytes"], int64(4096))
	}
}

func TestStandardFields_Version(t *testing.T) {
	fields := NewFields().Version("v0.4.1")

	if fields["version"] != "v0.4.1" {
		t.Errorf("Version() = %v, want %v", fields["version"], "v0.4.1")
	}
}

func TestStandardFields_Custom(t *testing.T) {
	fields := NewFields().Custom("tenant_id", "tenant-acme")

	if fields["tenant_id"] != "tenant-acme" {
		t.Errorf("Custom() = %v, want %v", fields["tenant_id"], "tenant-acme")
	}
}

func TestStandardFields_ChainedCalls(t *testing.T) {
	fields := NewFields().
		Component("orchestrator").
		Operation("investigate").
		Resource("hypothesis", "h1").
		Duration(80 * time.Millisecond).
		Count(3)

	expected := map[string]interface{}{
		"component":     "orchestrator",
		"operation":     "investigate",
		"resource_type": "hypothesis",
		"resource_name": "h1",
		"duration_ms":   int64(80),
		"count":         3,
	}

	for key, expectedValue := range expected {
		if fields[key] != expectedValue {
			t.Errorf("Chained calls: %s = %v, want %v", key, fields[key], expectedValue)
		}
	}
}

func TestStandardFields_ToLogrus(t *testing.T) {
	fields := NewFields().
		Component("orchestrator").
		Operation("investigate")

	logrusFields := fields.ToLogrus()

	if logrusFields == nil {
		t.Fatal("ToLogrus() should not return nil")
	}

	if logrusFields["component"] != "orchestrator" {
		t.Errorf("ToLogrus() component = %v, want %v", logrusFields["component"], "orchestrator")
	}
	if logrusFields["operation"] != "investigate" {
		t.Errorf("ToLogrus() operation = %v, want %v", logrusFields["operation"], "investigate")
	}
}

func TestDatabaseFields(t *testing.T) {
	fields := DatabaseFields("select", "orders")

	expected := map[string]interface{}{
		"component":     "database",
		"operation":     "select",
		"resource_type": "table",
		"resource_name": "orders",
	}

	for key, expectedValue := range expected {
		if fields[key] != expectedValue {
			t.Errorf("DatabaseFields() %s = %v, want %v", key, fields[key], expectedValue)
		}
	}
}

func TestHTTPFields(t *testing.T) {
	fields := HTTPFields("GET", "/lineage/upstream", 200)

	expected := map[string]interface{}{
		"component":   "http",
		"method":      "GET",
		"url":         "/lineage/upstream",
		"status_code": 200,
	}

	for key, expectedValue := range expected {
		if fields[key] != expectedValue {
			t.Errorf("HTTPFields() %s = %v, want %v", key, fields[key], expectedValue)
		}
	}
}

func TestWorkflowFields(t *testing.T) {
	fields := WorkflowFields("resume", "sweep-7")

	expected := map[string]interface{}{
		"component":     "workflow",
		"operation":     "resume",
		"resource_type": "workflow",
		"resource_name": "sweep-7",
	}

	for key, expectedValue := range expected {
		if fields[key] != expectedValue {
			t.Errorf("WorkflowFields() %s = %v, want %v", key, fields[key], expectedValue)
		}
	}
}

func TestKubernetesFields(t *testing.T) {
	fields := KubernetesFields("watch", "configmap", "data-source-config", "investigator-system")

	expected := map[string]interface{}{
		"component":     "kubernetes",
		"operation":     "watch",
		"resource_type": "configmap",
		"resource_name": "data-source-config",
		"namespace":     "investigator-system",
	}

	for key, expectedValue := range expected {
		if fields[key] != expectedValue {
			t.Errorf("KubernetesFields() %s = %v, want %v", key, fields[key], expectedValue)
		}
	}
}

func TestKubernetesFieldsWithoutNamespace(t *testing.T) {
	fields := KubernetesFields("watch", "configmap", "data-source-config", "")

	if _, exists := fields["namespace"]; exists {
		t.Error("KubernetesFields() should not set namespace when empty")
	}
}

func TestAIFields(t *testing.T) {
	fields := AIFields("generate_hypotheses", "claude-3-sonnet")

	expected := map[string]interface{}{
		"component": "ai",
		"operation": "generate_hypotheses",
		"model":     "claude-3-sonnet",
	}

	for key, expectedValue := range expected {
		if fields[key] != expectedValue {
			t.Errorf("AIFields() %s = %v, want %v", key, fields[key], expectedValue)
		}
	}
}

func TestMetricsFields(t *testing.T) {
	fields := MetricsFields("record", "judge_discrimination_score", 0.62)

	expected := map[string]interface{}{
		"component":   "metrics",
		"operation":   "record",
		"metric_name": "judge_discrimination_score",
		"value":       0.62,
	}

	for key, expectedValue := range expected {
		if fields[key] != expectedValue {
			t.Errorf("MetricsFields() %s = %v, want %v", key, fields[key], expectedValue)
		}
	}
}

func TestSecurityFields(t *testing.T) {
	fields := SecurityFields("authorize_query", "tenant-acme")

	expected := map[string]interface{}{
		"component": "security",
		"operation": "authorize_query",
		"subject":   "tenant-acme",
	}

	for key, expectedValue := range expected {
		if fields[key] != expectedValue {
			t.Errorf("SecurityFields() %s = %v, want %v", key, fields[key], expectedValue)
		}
	}
}

func TestPerformanceFields(t *testing.T) {
	duration := 340 * time.Millisecond
	fields := PerformanceFields("execute_probe_query", duration, true)

	expected := map[string]interface{}{
		"component":   "performance",
		"operation":   "execute_probe_query",
		"duration_ms": int64(340),
		"success":     true,
	}

	for key, expectedValue := range expected {
		if fields[key] != expectedValue {
			t.Errorf("PerformanceFields() %s = %v, want %v", key, fields[key], expectedValue)
		}
	}
}

func TestInvestigationFields(t *testing.T) {
	fields := InvestigationFields("inv-42", "h1")

	expected := map[string]interface{}{
		"component":     "investigation",
		"resource_type": "investigation",
		"resource_name": "inv-42",
		"hypothesis_id": "h1",
	}

	for key, expectedValue := range expected {
		if fields[key] != expectedValue {
			t.Errorf("InvestigationFields() %s = %v, want %v", key, fields[key], expectedValue)
		}
	}
}

func TestInvestigationFieldsWithoutHypothesis(t *testing.T) {
	fields := InvestigationFields("inv-42", "")

	if _, exists := fields["hypothesis_id"]; exists {
		t.Error("InvestigationFields() should not set hypothesis_id when empty")
	}
}
