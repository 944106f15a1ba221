// Package monitor defines the persisted and in-memory data model described
// in spec.md §3: Monitor, MonitorResult, ScriptResult, and ValidationResult.
package monitor

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yeheng/monitor/internal/monitorerr"
)

// Status is the single status word assigned to a check (spec GLOSSARY).
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// Monitor is an immutable-except-through-CRUD description of a probe
// target (spec §3).
type Monitor struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	Endpoint        string            `json:"endpoint"`
	Method          string            `json:"method"`
	Headers         map[string]string `json:"headers,omitempty"`
	Body            string            `json:"body,omitempty"`
	ExpectedStatus  int               `json:"expected_status"`
	TimeoutSeconds  int               `json:"timeout_seconds"`
	IntervalSeconds int               `json:"interval_seconds"`
	Script          string            `json:"script,omitempty"`
	Enabled         bool              `json:"enabled"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NormalizedMethod returns the monitor's HTTP method, degrading unknown
// tokens to GET per spec §3/§4.2.
func (m Monitor) NormalizedMethod() string {
	switch strings.ToUpper(strings.TrimSpace(m.Method)) {
	case "GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS":
		return strings.ToUpper(strings.TrimSpace(m.Method))
	default:
		return "GET"
	}
}

// Timeout returns the per-check wall-clock ceiling as a time.Duration.
func (m Monitor) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// HasScript reports whether the monitor carries a validation script.
func (m Monitor) HasScript() bool {
	return strings.TrimSpace(m.Script) != ""
}

// Validate enforces the invariants from spec §3: interval in (0, 59],
// timeout > 0, endpoint present.
func (m Monitor) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return monitorerr.New(monitorerr.KindValidation, "name is required")
	}
	if strings.TrimSpace(m.Endpoint) == "" {
		return monitorerr.New(monitorerr.KindValidation, "endpoint is required")
	}
	if m.TimeoutSeconds <= 0 {
		return monitorerr.New(monitorerr.KindValidation, "timeout must be a strictly positive number of seconds")
	}
	if m.IntervalSeconds <= 0 || m.IntervalSeconds > 59 {
		return monitorerr.New(monitorerr.KindValidation, "interval must satisfy 1 <= interval <= 59 seconds (sub-minute granularity is required)")
	}
	return nil
}

// MonitorResult is an append-only record of one probe attempt (spec §3).
type MonitorResult struct {
	ID           uuid.UUID `json:"id"`
	MonitorID    uuid.UUID `json:"monitor_id"`
	Status       Status    `json:"status"`
	ResponseTime int32     `json:"response_time"` // milliseconds, truncated to 32-bit signed
	ResponseCode *int      `json:"response_code,omitempty"`
	ResponseBody string    `json:"response_body,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

// ScriptResult is the in-memory outcome of one Script Engine evaluation
// (spec §3, §4.3).
type ScriptResult struct {
	Success         bool        `json:"success"`
	Result          interface{} `json:"result,omitempty"`
	Error           *Diagnosis  `json:"error,omitempty"`
	ExecutionTimeMS int64       `json:"execution_time_ms"`
}

// Diagnosis is the structured error-diagnosis record a failed script
// evaluation produces (spec §4.3, §7).
type Diagnosis struct {
	Kind          string `json:"kind"`
	Message       string `json:"message"`
	ScriptPreview string `json:"script_preview,omitempty"`
	Suggestion    string `json:"suggestion,omitempty"`
}

// ValidationContext is the read-only object exposed to a validation
// script as the global `context` (spec §6).
type ValidationContext struct {
	StatusCode   int               `json:"status_code"`
	Headers      map[string]string `json:"headers"`
	Body         string            `json:"body"`
	ResponseTime int               `json:"response_time"`
}

// ValidationResult adapts a ScriptResult for the executor: it derives
// Passed from Success plus the JavaScript truthiness of Result
// (spec §3, §4.3).
type ValidationResult struct {
	Passed       bool
	Message      string
	ScriptResult ScriptResult
}
