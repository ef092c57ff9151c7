package scheduler

import (
	"context"
	"time"

	"lead_engine_backend/internal/leads/followup"
	"lead_engine_backend/internal/leads/summary"
	"lead_engine_backend/platform/logger"
)

const (
	JobFollowUpScan = "followup_scan"
	JobDailySummary = "daily_summary"
)

// FollowUpRunner runs one follow-up scan cycle.
type FollowUpRunner interface {
	Run(ctx context.Context) (followup.Result, error)
}

// SummaryRunner builds and sends the daily report.
type SummaryRunner interface {
	Run(ctx context.Context) (summary.Report, error)
}

// JobMetrics is the metrics hook for job runs.
type JobMetrics interface {
	JobRun(job string, duration time.Duration, err error)
	FollowUps(reminders, stale int)
}

// Jobs runs the recurring jobs the same way for every trigger: cron,
// asynq or a manual HTTP call.
type Jobs struct {
	followUp FollowUpRunner
	summary  SummaryRunner
	metrics  JobMetrics
	log      *logger.Logger
}

func NewJobs(followUp FollowUpRunner, summary SummaryRunner, metrics JobMetrics, log *logger.Logger) *Jobs {
	return &Jobs{followUp: followUp, summary: summary, metrics: metrics, log: log}
}

func (j *Jobs) RunFollowUpScan(ctx context.Context) error {
	start := time.Now()
	res, err := j.followUp.Run(ctx)
	elapsed := time.Since(start)

	if j.metrics != nil {
		j.metrics.JobRun(JobFollowUpScan, elapsed, err)
	}
	if err != nil {
		j.log.WithJob(JobFollowUpScan).Error("follow-up scan failed", "error", err)
		return err
	}
	if j.metrics != nil {
		j.metrics.FollowUps(res.Reminders, res.Stale)
	}

	j.log.JobRun(JobFollowUpScan, float64(elapsed.Milliseconds()),
		"scanned", res.Scanned,
		"reminders", res.Reminders,
		"stale", res.Stale,
		"failed", res.Failed,
	)
	return nil
}

func (j *Jobs) RunDailySummary(ctx context.Context) error {
	start := time.Now()
	report, err := j.summary.Run(ctx)
	elapsed := time.Since(start)

	if j.metrics != nil {
		j.metrics.JobRun(JobDailySummary, elapsed, err)
	}
	if err != nil {
		j.log.WithJob(JobDailySummary).Error("daily summary failed", "error", err)
		return err
	}

	j.log.JobRun(JobDailySummary, float64(elapsed.Milliseconds()),
		"total", report.Total,
		"overdue", report.Overdue,
		"conversion", report.Conversion,
	)
	return nil
}

// Run dispatches a job by name. Unknown names report false.
func (j *Jobs) Run(ctx context.Context, job string) (bool, error) {
	switch job {
	case JobFollowUpScan:
		return true, j.RunFollowUpScan(ctx)
	case JobDailySummary:
		return true, j.RunDailySummary(ctx)
	default:
		return false, nil
	}
}
