package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"adjudicator/internal/platform/httpserver"
	"adjudicator/internal/platform/telemetry"
	"adjudicator/internal/ratelimit"
	"adjudicator/internal/refund/handler"
	"adjudicator/internal/refund/pipeline"
	httptransport "adjudicator/internal/transport/http"
)

const queueBuffer = 256

func serveCmd() *cobra.Command {
	var noMonitor bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, intake workers and the monitor schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), !noMonitor)
		},
	}
	cmd.Flags().BoolVar(&noMonitor, "no-monitor", false, "do not schedule monitor sweeps in this process")
	return cmd
}

func runServe(parent context.Context, withMonitor bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, flush, err := loadConfig()
	if err != nil {
		return err
	}
	defer flush()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.WithoutCancel(ctx)) }()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("wire service: %w", err)
	}
	defer a.Close()

	worker := pipeline.NewWorker(a.pipeline, cfg.Pipeline.Workers, queueBuffer, log)
	limiter := ratelimit.New(a.limits, "submit", cfg.RateLimit.Submissions, cfg.RateLimit.Window,
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(ratelimit.NewMetrics(a.metrics)),
	)
	router := httptransport.NewRouter(httptransport.Deps{
		Refunds:     handler.New(a.pipeline, worker, log),
		Validator:   tokenService(cfg),
		Metrics:     a.metrics.Handler(),
		Logger:      log,
		SubmitLimit: limiter.PerSubject,
		Ready:       a.ready,
	})

	if withMonitor {
		m := newMonitor(a)
		if err := m.Start(cfg.Monitor.Schedule); err != nil {
			return fmt.Errorf("schedule monitor: %w", err)
		}
		defer m.Stop()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(ctx, httpserver.New(cfg.Server.Addr, router), log)
	})
	g.Go(func() error {
		return worker.Run(ctx)
	})
	if a.relay != nil {
		g.Go(func() error {
			return ignoreCanceled(a.relay.Run(ctx))
		})
	}
	log.Info("adjudicator started", "addr", cfg.Server.Addr, "workers", cfg.Pipeline.Workers, "monitor", withMonitor)
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
