package client

import "github.com/yeheng/monitor/internal/monitor"

// Re-export the core data types so callers never need to import the
// internal monitor package directly.
type (
	Monitor           = monitor.Monitor
	MonitorResult     = monitor.MonitorResult
	ScriptResult      = monitor.ScriptResult
	ValidationContext = monitor.ValidationContext
	ValidationResult  = monitor.ValidationResult
)

// EvaluateScriptRequest is the body for POST {basePath}/scripts/evaluate.
type EvaluateScriptRequest struct {
	Script  string            `json:"script"`
	Context ValidationContext `json:"context"`
}

// LoginRequest is the body for POST {basePath}/auth/login.
type LoginRequest struct {
	Method   string `json:"method,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
}

// LoginResult is the decoded response from a successful login.
type LoginResult struct {
	Success  bool     `json:"success"`
	UserID   string   `json:"user_id,omitempty"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Token    *struct {
		Type      string `json:"type"`
		Value     string `json:"value"`
		ExpiresAt string `json:"expires_at"`
	} `json:"token,omitempty"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
