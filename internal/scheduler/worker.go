package scheduler

import (
	"context"
	"fmt"

	"lead_engine_backend/platform/config"
	"lead_engine_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker executes job tasks from the asynq queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	jobs   *Jobs
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, jobs *Jobs, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		jobs:   jobs,
		log:    log,
	}

	mux.HandleFunc(TaskFollowUpScan, w.handleFollowUpScan)
	mux.HandleFunc(TaskDailySummary, w.handleDailySummary)

	return w, nil
}

func (w *Worker) handleFollowUpScan(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseJobPayload(task); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return w.jobs.RunFollowUpScan(ctx)
}

func (w *Worker) handleDailySummary(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseJobPayload(task); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return w.jobs.RunDailySummary(ctx)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
