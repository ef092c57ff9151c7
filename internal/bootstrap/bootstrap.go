// Package bootstrap is the shared composition root of the api and scheduler
// binaries: it builds the store, the event subscribers and the lead services.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lead_engine_backend/internal/diagnostics"
	"lead_engine_backend/internal/email"
	"lead_engine_backend/internal/events"
	"lead_engine_backend/internal/leads"
	"lead_engine_backend/internal/leads/repository"
	"lead_engine_backend/internal/leads/summary"
	"lead_engine_backend/internal/metrics"
	"lead_engine_backend/internal/notification"
	"lead_engine_backend/internal/scheduler"
	"lead_engine_backend/internal/sheets"
	"lead_engine_backend/internal/whatsapp"
	"lead_engine_backend/platform/config"
	"lead_engine_backend/platform/db"
	"lead_engine_backend/platform/logger"
	"lead_engine_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Runtime holds the fully wired application dependencies.
type Runtime struct {
	Config      *config.Config
	Log         *logger.Logger
	Store       repository.Store
	EventBus    *events.InMemoryBus
	Metrics     *metrics.Metrics
	Diagnostics diagnostics.Recorder
	Notifier    *notification.Notifier
	Leads       *leads.Module
	Jobs        *scheduler.Jobs

	closers []func()
}

// New wires every component. Call Close when done.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Log: log, Metrics: metrics.New()}

	recorder, err := rt.initDiagnostics(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Diagnostics = recorder

	store, err := rt.initStore(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Store = store

	// Event bus for decoupled communication between modules
	rt.EventBus = events.NewInMemoryBus(log)
	rt.Metrics.RegisterHandlers(rt.EventBus)

	// Notification module subscribes to domain events (not HTTP-facing)
	whatsappClient := whatsapp.NewClient(cfg, cfg.GetPhoneRegion(), log)
	if whatsappClient == nil {
		log.Warn("WHATSAPP_API_URL not configured; notifications are logged only")
	}
	var sender notification.Sender
	if whatsappClient != nil {
		sender = whatsappClient
	}
	rt.Notifier = notification.NewNotifier(sender, cfg.GetDefaultAdminContact(), cfg.GetNotifyTimeout(), recorder, rt.Metrics, log)
	notification.New(rt.Notifier, log).RegisterHandlers(rt.EventBus)

	if err := rt.initSheets(ctx, cfg, recorder); err != nil {
		rt.Close()
		return nil, err
	}

	var mailer summary.Mailer
	if smtpSender := email.NewSMTPSender(cfg); smtpSender != nil {
		mailer = smtpSender
		log.Info("daily summary e-mail enabled", "to", cfg.GetSummaryEmailTo())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	leadsModule, err := leads.NewModule(store, rt.EventBus, rt.Notifier, mailer, recorder, val, cfg, log)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("initialize leads module: %w", err)
	}
	rt.Leads = leadsModule
	rt.Jobs = scheduler.NewJobs(leadsModule.FollowUpScanner(), leadsModule.SummaryService(), rt.Metrics, log)

	return rt, nil
}

// Close waits for in-flight event handlers and releases resources in
// reverse order of acquisition.
func (rt *Runtime) Close() {
	if rt.EventBus != nil {
		rt.EventBus.Wait()
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

func (rt *Runtime) initDiagnostics(cfg *config.Config) (diagnostics.Recorder, error) {
	if cfg.GetRedisURL() == "" {
		return diagnostics.NewMemoryRecorder(cfg.GetDiagnosticsMaxEntries(), rt.Log, rt.Metrics), nil
	}

	client, err := diagnostics.NewRedisClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rt.closers = append(rt.closers, func() { _ = client.Close() })
	return diagnostics.NewRedisRecorder(client, cfg.GetDiagnosticsKey(), cfg.GetDiagnosticsMaxEntries(), rt.Log, rt.Metrics), nil
}

func (rt *Runtime) initStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.GetStoreDriver() == config.StoreDriverMemory {
		rt.Log.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemory(), nil
	}

	if err := WithRetry(ctx, rt.Log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		return nil, fmt.Errorf("run database migrations: %w", err)
	}
	rt.Log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := WithRetry(ctx, rt.Log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	rt.closers = append(rt.closers, pool.Close)
	rt.Log.Info("database connection established")

	return repository.New(pool), nil
}

func (rt *Runtime) initSheets(ctx context.Context, cfg *config.Config, recorder diagnostics.Recorder) error {
	if !cfg.IsMinIOEnabled() {
		rt.Log.Warn("MINIO_ENDPOINT not configured; spreadsheet mirror disabled")
		return nil
	}

	var store *sheets.MinIOStore
	if err := WithRetry(ctx, rt.Log, "ensure sheets bucket", 5, 2*time.Second, func() error {
		s, err := sheets.NewMinIOStore(ctx, cfg)
		if err != nil {
			return err
		}
		store = s
		return nil
	}); err != nil {
		return fmt.Errorf("initialize sheets store: %w", err)
	}

	mirror := sheets.NewMirror(store, cfg.GetLeadsSheetName(), cfg.GetLogSheetName(), cfg.GetLocation(), recorder, rt.Log)
	mirror.RegisterHandlers(rt.EventBus)
	rt.Log.Info("spreadsheet mirror initialized", "bucket", cfg.GetMirrorBucket())
	return nil
}

// WithRetry runs fn until it succeeds, with quadratic backoff between attempts.
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
