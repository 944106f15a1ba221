package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/yeheng/monitor/internal/api"
	"github.com/yeheng/monitor/internal/scripting"
	"github.com/yeheng/monitor/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open("sqlite://:memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensuring schema: %v", err)
	}

	r := api.NewRouter(api.Options{
		Store:  st,
		Engine: scripting.New(scripting.DefaultConfig()),
	})
	srv := httptest.NewServer(r.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_HealthAndMonitorCRUD(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{BaseURL: srv.URL})
	ctx := context.Background()

	if !c.Health(ctx) {
		t.Fatal("expected server to report healthy")
	}

	created, err := c.CreateMonitor(ctx, Monitor{
		Name:            "homepage",
		Endpoint:        "http://example.invalid",
		Method:          "GET",
		ExpectedStatus:  200,
		TimeoutSeconds:  5,
		IntervalSeconds: 10,
		Enabled:         true,
	})
	if err != nil {
		t.Fatalf("CreateMonitor: %v", err)
	}

	fetched, err := c.GetMonitor(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("GetMonitor: %v", err)
	}
	if fetched.Name != "homepage" {
		t.Fatalf("expected name homepage, got %s", fetched.Name)
	}

	list, err := c.ListMonitors(ctx)
	if err != nil {
		t.Fatalf("ListMonitors: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 monitor, got %d", len(list))
	}

	if err := c.DeleteMonitor(ctx, created.ID.String()); err != nil {
		t.Fatalf("DeleteMonitor: %v", err)
	}
	if _, err := c.GetMonitor(ctx, created.ID.String()); err == nil {
		t.Fatal("expected an error fetching a deleted monitor")
	}
}

func TestClient_EvaluateScript(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{BaseURL: srv.URL})

	result, err := c.EvaluateScript(context.Background(), EvaluateScriptRequest{
		Script:  "context.status_code === 200",
		Context: ValidationContext{StatusCode: 200},
	})
	if err != nil {
		t.Fatalf("EvaluateScript: %v", err)
	}
	if !result.Passed {
		t.Fatalf("expected script to pass, got %+v", result)
	}
}
