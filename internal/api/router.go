// Package api is the REST layer (spec.md ambient API surface): gin
// handlers for monitor CRUD, health, operator login, and ad-hoc script
// evaluation, backed by the store, scheduler, and script engine.
//
// Grounded on the teacher's internal/server/router.go: a Router wrapping
// its collaborators plus a basePath, a Handler() building a gin engine
// with gin.Recovery(), and a NewServer standalone-server helper with the
// same timeout profile.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeheng/monitor/internal/auth"
	"github.com/yeheng/monitor/internal/scheduler"
	"github.com/yeheng/monitor/internal/scripting"
	"github.com/yeheng/monitor/internal/store"
)

// Router wires the store, scheduler, script engine, and auth service
// into gin handlers.
type Router struct {
	store       store.Store
	scheduler   *scheduler.Scheduler // optional; nil disables /monitors refresh-on-write
	engine      *scripting.Engine
	authService *auth.AuthService // optional; nil disables auth entirely
	mw          *auth.Middleware
	basePath    string
	logger      *slog.Logger
}

// Options configures a Router. Scheduler and AuthService may be nil.
type Options struct {
	Store       store.Store
	Scheduler   *scheduler.Scheduler
	Engine      *scripting.Engine
	AuthService *auth.AuthService
	AuthEnabled bool
	BasePath    string
	Logger      *slog.Logger
}

// NewRouter constructs a Router from Options.
func NewRouter(opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var mw *auth.Middleware
	if opts.AuthService != nil {
		mw = auth.NewMiddleware(opts.AuthService, opts.AuthEnabled)
	}
	return &Router{
		store:       opts.Store,
		scheduler:   opts.Scheduler,
		engine:      opts.Engine,
		authService: opts.AuthService,
		mw:          mw,
		basePath:    sanitizeBase(opts.BasePath),
		logger:      logger,
	}
}

// Handler returns an http.Handler powered by gin that can be mounted in
// any server or mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())

	group := g.Group(r.basePath)
	group.GET("/health", r.handleHealth)

	if r.authService != nil {
		group.POST("/auth/login", r.handleLogin)
	}

	protected := group.Group("")
	if r.mw != nil {
		protected.Use(r.mw.GinAuth())
	}
	protected.POST("/monitors", r.handleCreateMonitor)
	protected.GET("/monitors", r.handleListMonitors)
	protected.GET("/monitors/:id", r.handleGetMonitor)
	protected.PUT("/monitors/:id", r.handleUpdateMonitor)
	protected.DELETE("/monitors/:id", r.handleDeleteMonitor)
	protected.GET("/monitors/:id/results", r.handleListResults)
	protected.POST("/scripts/evaluate", r.handleEvaluateScript)

	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr string, opts Options) (*http.Server, error) {
	r := NewRouter(opts)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
	case <-time.After(100 * time.Millisecond):
	}

	return server, nil
}

func (r *Router) handleHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, okResp{OK: true})
}
