package scheduler

import (
	"context"
	"fmt"

	"leadcrm_backend/platform/config"
	"leadcrm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues the lead maintenance jobs on their cron schedules.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

// NewPeriodic registers a job for every non-empty cron spec.
func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	s := asynq.NewScheduler(opt, nil)
	queue := queueName(cfg)

	jobs := []struct {
		spec     string
		typename string
	}{
		{cfg.GetScoreRecomputeCron(), TaskRecomputeScores},
		{cfg.GetDistributionCron(), TaskDistributeUnassigned},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		task, err := newJobTask(job.typename, JobPayload{Trigger: TriggerPeriodic})
		if err != nil {
			return nil, err
		}
		if _, err := s.Register(job.spec, task, asynq.Queue(queue), asynq.Unique(uniqueWindow)); err != nil {
			return nil, fmt.Errorf("register %s with %q: %w", job.typename, job.spec, err)
		}
		log.Info("registered periodic job", "task", job.typename, "spec", job.spec)
	}

	return &Periodic{scheduler: s, log: log}, nil
}

// Run starts the scheduler and blocks until ctx is done.
func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	if err := p.scheduler.Start(); err != nil {
		p.log.Error("periodic scheduler failed to start", "error", err)
		return
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
}
