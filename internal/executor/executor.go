// Package executor implements the Check Executor (spec.md §4.2): it
// fires one HTTP probe for a Monitor, classifies the outcome, runs the
// optional validation script against the response, and persists exactly
// one MonitorResult row. Grounded on the teacher's internal/job package
// for the run-one-unit-of-work/track-completion shape, generalized from
// launching a child process to issuing an HTTP request.
package executor

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yeheng/monitor/internal/metrics"
	"github.com/yeheng/monitor/internal/monitor"
	"github.com/yeheng/monitor/internal/monitorerr"
	"github.com/yeheng/monitor/internal/scripting"
	"github.com/yeheng/monitor/internal/store"
)

// maxBodyBytes caps how much of a response body is read and persisted,
// so a misbehaving endpoint cannot exhaust executor memory.
const maxBodyBytes = 1 << 20 // 1 MiB

// Store is the subset of store.Store the executor needs to persist a
// check's outcome.
type Store interface {
	InsertResult(ctx context.Context, r *monitor.MonitorResult) error
}

var _ Store = store.Store(nil)

// ScriptEngine is the subset of scripting.Engine the executor needs.
type ScriptEngine interface {
	ExecuteValidationScript(source string, vc monitor.ValidationContext) monitor.ValidationResult
}

var _ ScriptEngine = (*scripting.Engine)(nil)

// Executor runs one check per call to Run.
type Executor struct {
	httpClient *http.Client
	engine     ScriptEngine
	store      Store
	logger     *slog.Logger
}

// New constructs an Executor. logger may be nil, in which case
// slog.Default() is used.
func New(httpClient *http.Client, engine ScriptEngine, st Store, logger *slog.Logger) *Executor {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{httpClient: httpClient, engine: engine, store: st, logger: logger}
}

// Run fires one check for m, persists the resulting MonitorResult, and
// returns it. Persistence failure is logged, not returned, so a store
// outage never aborts a scheduled firing (spec §4.2).
func (e *Executor) Run(ctx context.Context, m monitor.Monitor) *monitor.MonitorResult {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, m.Timeout())
	defer cancel()

	result := e.probe(checkCtx, m, start)

	metrics.IncCheck(m.Name, string(result.Status))
	metrics.ObserveCheckDuration(m.Name, time.Since(start).Seconds())

	if err := e.store.InsertResult(ctx, result); err != nil {
		e.logger.Error("persisting monitor result failed",
			"monitor", m.Name, "monitor_id", m.ID, "error", err)
	}
	return result
}

func (e *Executor) probe(ctx context.Context, m monitor.Monitor, start time.Time) *monitor.MonitorResult {
	req, err := e.buildRequest(ctx, m)
	if err != nil {
		return e.errorResult(m, start, err)
	}

	resp, err := e.httpClient.Do(req)
	elapsedMS := int32(time.Since(start).Milliseconds())
	if err != nil {
		if ctx.Err() != nil {
			return e.timeoutResult(m, elapsedMS, ctx.Err())
		}
		return e.errorResult(m, start, err)
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return e.errorResult(m, start, err)
	}
	elapsedMS = int32(time.Since(start).Milliseconds())
	body := string(bodyBytes)

	statusOK := resp.StatusCode == m.ExpectedStatus
	status := monitor.StatusFailure
	if statusOK {
		status = monitor.StatusSuccess
	}

	var scriptResult *monitor.ScriptResult
	if m.HasScript() && e.canScript(status) {
		vc := monitor.ValidationContext{
			StatusCode:   resp.StatusCode,
			Headers:      flattenHeaders(resp.Header),
			Body:         body,
			ResponseTime: int(elapsedMS),
		}
		vr := e.engine.ExecuteValidationScript(m.Script, vc)
		scriptResult = &vr.ScriptResult
		outcome := "passed"
		if !vr.Passed {
			outcome = "failed"
		}
		if !vr.ScriptResult.Success {
			outcome = "error"
		}
		metrics.IncScriptEvaluation(m.Name, outcome)
		metrics.ObserveScriptDuration(m.Name, float64(vr.ScriptResult.ExecutionTimeMS)/1000)

		// The script verdict overrides the status-code verdict (spec §4.2).
		if vr.Passed {
			status = monitor.StatusSuccess
		} else {
			status = monitor.StatusFailure
		}
	}

	code := resp.StatusCode
	r := &monitor.MonitorResult{
		ID:           uuid.New(),
		MonitorID:    m.ID,
		Status:       status,
		ResponseTime: elapsedMS,
		ResponseCode: &code,
		ResponseBody: body,
		CheckedAt:    start.UTC(),
	}
	if scriptResult != nil && !scriptResult.Success && scriptResult.Error != nil {
		msg := scriptResult.Error.Message
		r.ErrorMessage = &msg
	}
	return r
}

// canScript reports whether the classification permits invoking the
// script engine: a bare failure (wrong status code) still runs the
// script so it can reclassify the check, but the script never runs
// against a transport failure.
func (e *Executor) canScript(status monitor.Status) bool {
	return status == monitor.StatusSuccess || status == monitor.StatusFailure
}

func (e *Executor) buildRequest(ctx context.Context, m monitor.Monitor) (*http.Request, error) {
	var bodyReader io.Reader
	if m.Body != "" {
		bodyReader = strings.NewReader(m.Body)
	}
	req, err := http.NewRequestWithContext(ctx, m.NormalizedMethod(), m.Endpoint, bodyReader)
	if err != nil {
		return nil, monitorerr.Wrap(monitorerr.KindHTTPClient, "building check request", err)
	}
	for k, v := range m.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// timeoutMessage is the literal error_message recorded for a ceiling-elapsed
// check (spec §4.2 step 4, §8 scenario 3). The triggering cause (usually the
// context deadline) is still logged at debug level, not discarded.
const timeoutMessage = "Request timeout"

func (e *Executor) timeoutResult(m monitor.Monitor, elapsedMS int32, cause error) *monitor.MonitorResult {
	e.logger.Debug("check timed out", "monitor", m.Name, "monitor_id", m.ID, "cause", cause)
	msg := timeoutMessage
	return &monitor.MonitorResult{
		ID:           uuid.New(),
		MonitorID:    m.ID,
		Status:       monitor.StatusTimeout,
		ResponseTime: elapsedMS,
		ErrorMessage: &msg,
		CheckedAt:    time.Now().UTC(),
	}
}

func (e *Executor) errorResult(m monitor.Monitor, start time.Time, cause error) *monitor.MonitorResult {
	msg := cause.Error()
	return &monitor.MonitorResult{
		ID:           uuid.New(),
		MonitorID:    m.ID,
		Status:       monitor.StatusError,
		ResponseTime: int32(time.Since(start).Milliseconds()),
		ErrorMessage: &msg,
		CheckedAt:    start.UTC(),
	}
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
