package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"lead_engine_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues one-off job runs for the asynq worker.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Trigger enqueues an immediate run of the named job. It reports false
// for unknown job names.
func (c *Client) Trigger(ctx context.Context, job string) (bool, error) {
	payload := JobPayload{TriggeredAt: time.Now().UTC(), Trigger: "manual"}

	var (
		task *asynq.Task
		err  error
	)
	switch job {
	case JobFollowUpScan:
		task, err = NewFollowUpScanTask(payload)
	case JobDailySummary:
		task, err = NewDailySummaryTask(payload)
	default:
		return false, nil
	}
	if err != nil {
		return true, err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return true, err
}

func queueName(cfg config.SchedulerConfig) string {
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	return queue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
