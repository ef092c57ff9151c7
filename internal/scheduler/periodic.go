package scheduler

import (
	"context"
	"fmt"
	"time"

	"lead_engine_backend/platform/config"
	"lead_engine_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic registers the recurring job tasks with an asynq scheduler.
// Run exactly one Periodic per deployment; workers may scale out.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, loc *time.Location, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: loc,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Error("periodic enqueue failed", "error", err)
				return
			}
			log.Debug("periodic task enqueued", "task", info.Type, "id", info.ID)
		},
	})

	queue := asynq.Queue(queueName(cfg))
	payload := JobPayload{Trigger: "schedule"}

	followUpTask, err := NewFollowUpScanTask(payload)
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(everySpec(cfg.GetFollowUpInterval()), followUpTask, queue); err != nil {
		return nil, fmt.Errorf("register follow-up scan: %w", err)
	}

	summaryTask, err := NewDailySummaryTask(payload)
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(cfg.GetSummaryCron(), summaryTask, queue); err != nil {
		return nil, fmt.Errorf("register daily summary: %w", err)
	}

	return &Periodic{scheduler: scheduler, log: log}, nil
}

func (p *Periodic) Run(ctx context.Context) error {
	if err := p.scheduler.Start(); err != nil {
		return fmt.Errorf("start periodic scheduler: %w", err)
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
	return nil
}

func everySpec(interval time.Duration) string {
	return "@every " + interval.String()
}
