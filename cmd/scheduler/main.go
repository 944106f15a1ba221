// Command scheduler runs the Cron Dispatcher (spec.md §4.1) standalone:
// it loads enabled monitors from the store and fires the Check Executor
// on each one's schedule until interrupted.
//
// Grounded on cmd/provisr/main.go's "cron" subcommand, which loads a
// config-defined schedule and blocks until interrupted.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/yeheng/monitor/internal/config"
	"github.com/yeheng/monitor/internal/executor"
	"github.com/yeheng/monitor/internal/logger"
	"github.com/yeheng/monitor/internal/metrics"
	"github.com/yeheng/monitor/internal/scheduler"
	"github.com/yeheng/monitor/internal/scripting"
	"github.com/yeheng/monitor/internal/store"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "scheduler",
		Short: "Run scheduled endpoint checks",
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

			engine := scripting.New(scripting.Config{
				Timeout:          cfg.Engine.EngineTimeout(),
				MemoryLimitBytes: cfg.Engine.MemoryLimitBytes,
				StackSizeBytes:   cfg.Engine.StackSizeBytes,
				Policy:           scripting.Preset(cfg.Engine.SecurityPreset),
			})

			ex := executor.New(http.DefaultClient, engine, st, log)
			sch := scheduler.New(st, ex, log)

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

			if err := sch.Start(context.Background()); err != nil {
				return fmt.Errorf("starting scheduler: %w", err)
			}
			log.Info("scheduler started", "monitors", sch.ScheduledMonitors())

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop
			sch.Stop()
			return nil
		},
	}

	root.Flags().StringVar(&configPath, "config", "", "path to YAML config file")

	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
