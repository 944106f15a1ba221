package scripting

import (
	"testing"
)

func TestExecuteScript_StrictModeRejectsUndeclaredAssignment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.EnableStrictMode = true
	e := New(cfg)

	result := e.ExecuteScript("undeclaredGlobal = 1;", map[string]interface{}{})
	if result.Success {
		t.Fatalf("expected strict-mode assignment to an undeclared variable to fail, got success")
	}
}

func TestExecuteScript_NonStrictAllowsUndeclaredAssignment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.EnableStrictMode = false
	e := New(cfg)

	result := e.ExecuteScript("undeclaredGlobal = 1; undeclaredGlobal", map[string]interface{}{})
	if !result.Success {
		t.Fatalf("expected non-strict assignment to succeed, got error: %+v", result.Error)
	}
}

func TestExecuteScript_VerbatimExpressionValuePreserved(t *testing.T) {
	e := New(DefaultConfig())
	result := e.ExecuteScript("1 + 1", map[string]interface{}{})
	if !result.Success {
		t.Fatalf("expected success, got error: %+v", result.Error)
	}
	if result.Result != float64(2) {
		t.Fatalf("expected completion value 2, got %v", result.Result)
	}
}
