package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead_engine_backend/internal/bootstrap"
	apphttp "lead_engine_backend/internal/http"
	"lead_engine_backend/internal/http/router"
	"lead_engine_backend/internal/leads/handler"
	"lead_engine_backend/internal/scheduler"
	"lead_engine_backend/platform/config"
	"lead_engine_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "scheduler", cfg.SchedulerMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Composition Root
	// ========================================================================

	rt, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		panic("failed to initialize application: " + err.Error())
	}
	defer rt.Close()

	g, gctx := errgroup.WithContext(ctx)

	switch cfg.SchedulerMode {
	case config.SchedulerModeAsynq:
		// The scheduler binary owns the recurring runs; the API only enqueues.
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize scheduler client", "error", err)
			panic("failed to initialize scheduler client: " + err.Error())
		}
		defer func() { _ = client.Close() }()
		rt.Leads.SetJobTrigger(client)
	case config.SchedulerModeInProcess:
		runner, err := scheduler.NewInProcess(cfg, cfg.GetLocation(), rt.Jobs, log)
		if err != nil {
			log.Error("failed to initialize in-process scheduler", "error", err)
			panic("failed to initialize in-process scheduler: " + err.Error())
		}
		g.Go(func() error { return runner.Run(gctx) })
		rt.Leads.SetJobTrigger(handler.JobTriggerFunc(rt.Jobs.Run))
	default:
		log.Warn("recurring jobs disabled; use POST /api/v1/jobs/:name/run to run them")
		rt.Leads.SetJobTrigger(handler.JobTriggerFunc(rt.Jobs.Run))
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   rt.Store,
		Metrics:  rt.Metrics,
		EventBus: rt.EventBus,
		Modules: []apphttp.Module{
			rt.Leads,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		rt.Close()
		os.Exit(1)
	}
	log.Info("server stopped")
}
