package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIdempotentAndCountersWork(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))

	IncCheck("api-health", "success")
	IncCheck("api-health", "success")
	ObserveCheckDuration("api-health", 0.25)
	IncScriptEvaluation("api-health", "passed")
	ObserveScriptDuration("api-health", 0.01)
	SetScheduledMonitors(3)
	SetNextSchedule("api-health", 1700000000)
	IncStoreError("insert_result")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	wantNames := map[string]bool{
		"monitor_checks_total":                   false,
		"monitor_checks_duration_seconds":        false,
		"monitor_script_evaluations_total":       false,
		"monitor_script_duration_seconds":        false,
		"monitor_scheduler_active_monitors":      false,
		"monitor_scheduler_next_run_unix_seconds": false,
		"monitor_store_errors_total":             false,
	}
	for _, mf := range mfs {
		n := mf.GetName()
		if _, ok := wantNames[n]; ok {
			wantNames[n] = true
			assert.NotEmpty(t, mf.GetMetric(), "metric %s has no samples", n)
		}
	}
	for n, ok := range wantNames {
		assert.True(t, ok, "expected to find metric %s", n)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	regOK.Store(false)
	require.NoError(t, Register(prometheus.DefaultRegisterer))

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	IncCheck("x", "success")

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "monitor_checks_total")
}

func TestConcurrentIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			IncCheck("c", "success")
			IncScriptEvaluation("c", "passed")
		}()
	}
	wg.Wait()
	_, err := reg.Gather()
	require.NoError(t, err)
}

func TestMetricsBeforeRegister(t *testing.T) {
	originalState := regOK.Load()
	regOK.Store(false)
	defer regOK.Store(originalState)

	IncCheck("test", "success")
	ObserveCheckDuration("test", 1.0)
	IncScriptEvaluation("test", "passed")
	ObserveScriptDuration("test", 1.0)
	SetScheduledMonitors(1)
	SetNextSchedule("test", 0)
	IncStoreError("test")
}

func TestRegisterError(t *testing.T) {
	errorRegisterer := &errorRegisterer{shouldError: true}

	originalState := regOK.Load()
	regOK.Store(false)
	defer regOK.Store(originalState)

	err := Register(errorRegisterer)
	require.Error(t, err)
	assert.Equal(t, "test registration error", err.Error())
}

type errorRegisterer struct {
	shouldError bool
}

func (e *errorRegisterer) Register(prometheus.Collector) error {
	if e.shouldError {
		return errors.New("test registration error")
	}
	return nil
}

func (e *errorRegisterer) MustRegister(...prometheus.Collector) {}
func (e *errorRegisterer) Unregister(prometheus.Collector) bool { return false }
