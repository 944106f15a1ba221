// Command apiserver runs the REST API (spec.md ambient API surface)
// against a store opened from the configured DATABASE_URL (environment
// or the --config file), optionally
// serving Prometheus metrics on a second listener.
//
// Grounded on cmd/provisr/main.go's cobra root + PersistentPreRun
// metrics-server pattern.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/yeheng/monitor/internal/api"
	"github.com/yeheng/monitor/internal/auth"
	"github.com/yeheng/monitor/internal/config"
	"github.com/yeheng/monitor/internal/logger"
	"github.com/yeheng/monitor/internal/metrics"
	"github.com/yeheng/monitor/internal/scripting"
	"github.com/yeheng/monitor/internal/store"
)

func main() {
	var (
		configPath  string
		addr        string
		basePath    string
		authEnabled bool
	)

	root := &cobra.Command{
		Use:   "apiserver",
		Short: "Serve the monitor REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			log, err := logger.New(logger.Config(cfg.Log))
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}

			st, err := store.Open(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err := st.EnsureSchema(context.Background()); err != nil {
				return fmt.Errorf("ensuring schema: %w", err)
			}

			authSvc, err := auth.NewAuthService(auth.AuthConfig{
				DatabaseDSN: cfg.DatabaseURL,
				JWTSecret:   cfg.JWTSecret,
				TokenTTL:    cfg.JWTExpiry(),
				BcryptCost:  cfg.BcryptCost,
			})
			if err != nil {
				return fmt.Errorf("building auth service: %w", err)
			}
			defer func() { _ = authSvc.Close() }()

			engine := scripting.New(scripting.Config{
				Timeout:          cfg.Engine.EngineTimeout(),
				MemoryLimitBytes: cfg.Engine.MemoryLimitBytes,
				StackSizeBytes:   cfg.Engine.StackSizeBytes,
				Policy:           scripting.Preset(cfg.Engine.SecurityPreset),
			})

			if cfg.Metrics.Enabled {
				if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
					log.Warn("metrics already registered", "error", err)
				}
				go func() {
					log.Info("serving metrics", "listen", cfg.Metrics.Listen)
					if err := http.ListenAndServe(cfg.Metrics.Listen, metrics.Handler()); err != nil && err != http.ErrServerClosed {
						log.Error("metrics server stopped", "error", err)
					}
				}()
			}

			srv, err := api.NewServer(addr, api.Options{
				Store:       st,
				Engine:      engine,
				AuthService: authSvc,
				AuthEnabled: authEnabled,
				BasePath:    basePath,
				Logger:      log,
			})
			if err != nil {
				return fmt.Errorf("starting API server: %w", err)
			}
			log.Info("serving API", "addr", addr, "base_path", basePath)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	root.Flags().StringVar(&configPath, "config", "", "path to YAML config file")
	root.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	root.Flags().StringVar(&basePath, "base-path", "", "API mount prefix")
	root.Flags().BoolVar(&authEnabled, "auth-enabled", false, "require authentication on monitor endpoints")

	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
