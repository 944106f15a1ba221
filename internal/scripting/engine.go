// Package scripting implements the Script Engine (spec.md §4.3): a
// sandboxed JavaScript evaluator with enforced memory, stack, and
// wall-time ceilings, a security policy, and structured error
// diagnosis.
//
// Grounded on the retrieved cryguy-worker repo's internal/v8engine
// package (the teacher, loykin-provisr, has no scripting engine): the
// isolate-per-evaluation construction, the WithResourceConstraints heap
// ceiling, and the time.AfterFunc + TerminateExecution watchdog pattern
// all come from execute.go and pool.go there.
package scripting

import (
	"fmt"
	"sync/atomic"
	"time"

	v8 "github.com/tommie/v8go"

	"github.com/yeheng/monitor/internal/bridge"
	"github.com/yeheng/monitor/internal/monitor"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultMemoryLimit = 8 * 1024 * 1024
	DefaultStackSize   = 512 * 1024
)

// Config carries the Script Engine's construction parameters (spec §4.3).
type Config struct {
	Timeout          time.Duration
	MemoryLimitBytes uint64
	StackSizeBytes   uint64
	Policy           SecurityPolicy
}

// DefaultConfig returns the engine defaults named in spec §4.3, with the
// "default" security preset.
func DefaultConfig() Config {
	return Config{
		Timeout:          DefaultTimeout,
		MemoryLimitBytes: DefaultMemoryLimit,
		StackSizeBytes:   DefaultStackSize,
		Policy:           DefaultPolicy(),
	}
}

// Engine evaluates JavaScript source against an injected context inside
// a fresh V8 isolate per call. MemoryLimitBytes sets the isolate's heap
// ceiling through v8go's resource constraints. StackSizeBytes is carried
// in Config but is not applied: no stack ceiling is set on the isolate.
type Engine struct {
	cfg Config
}

// New constructs an Engine with the given configuration.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// ExecuteScript evaluates source against contextJSON, a Go value that is
// marshaled to JSON and reparsed inside the sandbox as the global
// `context`, per spec §4.3.
func (e *Engine) ExecuteScript(source string, contextJSON interface{}) monitor.ScriptResult {
	start := time.Now()

	heapLimit := e.cfg.MemoryLimitBytes
	var iso *v8.Isolate
	if heapLimit > 0 {
		iso = v8.NewIsolate(v8.WithResourceConstraints(heapLimit/2, heapLimit))
	} else {
		iso = v8.NewIsolate()
	}
	defer iso.Dispose()

	ctx := v8.NewContext(iso)
	defer ctx.Close()

	var timedOut atomic.Bool
	watchdog := time.AfterFunc(e.cfg.Timeout, func() {
		timedOut.Store(true)
		iso.TerminateExecution()
	})
	defer watchdog.Stop()

	result := e.runInContext(ctx, source, contextJSON, &timedOut)
	result.ExecutionTimeMS = time.Since(start).Milliseconds()
	return result
}

func (e *Engine) runInContext(ctx *v8.Context, source string, contextJSON interface{}, timedOut *atomic.Bool) (result monitor.ScriptResult) {
	defer func() {
		if r := recover(); r != nil {
			if timedOut.Load() {
				result = monitor.ScriptResult{
					Success: false,
					Error: &monitor.Diagnosis{
						Kind:    kindRuntimeError,
						Message: fmt.Sprintf("script execution timed out (limit: %v)", e.cfg.Timeout),
					},
				}
				return
			}
			result = monitor.ScriptResult{
				Success: false,
				Error: &monitor.Diagnosis{
					Kind:    kindException,
					Message: fmt.Sprintf("sandbox panic: %v", r),
				},
			}
		}
	}()

	if err := bridge.InjectJSON(ctx, "context", contextJSON); err != nil {
		return monitor.ScriptResult{
			Success: false,
			Error:   diagnose(source, err.Error()),
		}
	}

	if _, err := ctx.RunScript(buildPrelude(e.cfg.Policy), "prelude.js"); err != nil {
		return monitor.ScriptResult{
			Success: false,
			Error:   diagnose(source, err.Error()),
		}
	}

	var toRun string
	if needsWrapping(source) {
		deadline := time.Now().Add(e.cfg.Timeout).UnixMilli()
		toRun = wrapSource(source, deadline)
	} else {
		toRun = source
	}
	if e.cfg.Policy.EnableStrictMode {
		toRun = "'use strict';\n" + toRun
	}

	val, err := ctx.RunScript(toRun, "script.js")
	if timedOut.Load() {
		return monitor.ScriptResult{
			Success: false,
			Error: &monitor.Diagnosis{
				Kind:    kindRuntimeError,
				Message: fmt.Sprintf("script execution timed out (limit: %v)", e.cfg.Timeout),
			},
		}
	}
	if err != nil {
		return monitor.ScriptResult{
			Success: false,
			Error:   diagnose(source, err.Error()),
		}
	}

	hostVal, err := bridge.ToHost(ctx, val)
	if err != nil {
		return monitor.ScriptResult{
			Success: false,
			Error:   diagnose(source, err.Error()),
		}
	}

	return monitor.ScriptResult{
		Success: true,
		Result:  hostVal,
	}
}

// ExecuteValidationScript wraps ExecuteScript with the typed validation
// context and derives Passed by JavaScript truthiness (spec §4.3).
func (e *Engine) ExecuteValidationScript(source string, vc monitor.ValidationContext) monitor.ValidationResult {
	sr := e.ExecuteScript(source, vc)
	if !sr.Success {
		msg := "script evaluation failed"
		if sr.Error != nil {
			msg = sr.Error.Message
		}
		return monitor.ValidationResult{
			Passed:       false,
			Message:      msg,
			ScriptResult: sr,
		}
	}
	passed := isTruthy(sr.Result)
	msg := "validation passed"
	if !passed {
		msg = "validation script returned a falsy value"
	}
	return monitor.ValidationResult{
		Passed:       passed,
		Message:      msg,
		ScriptResult: sr,
	}
}

// isTruthy applies JavaScript truthiness to a bridged host value (spec
// §4.3): false, null, 0, NaN, "", [] empty, absent -> not passed; any
// object -> passed.
func isTruthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		if typ, ok := t["__type"]; ok {
			switch typ {
			case bridge.TypeUndefined, bridge.TypeNaN:
				return false
			case bridge.TypeInfinity:
				return true
			}
		}
		return true
	default:
		return true
	}
}
