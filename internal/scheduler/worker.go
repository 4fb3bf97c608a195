package scheduler

import (
	"context"
	"fmt"

	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/config"
	"leadcrm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// LeadJobs is the slice of the lead orchestrator the worker drives.
type LeadJobs interface {
	RecomputeAllScores(ctx context.Context, actor domain.Actor) (transport.BulkResultResponse, error)
	AutoDistribute(ctx context.Context, actor domain.Actor) (transport.DistributeResponse, bool, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	jobs   LeadJobs
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, jobs LeadJobs, log *logger.Logger) (*Worker, error) {
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

	w := newWorker(jobs, log)
	w.server = server
	return w, nil
}

func newWorker(jobs LeadJobs, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:  mux,
		jobs: jobs,
		log:  log,
	}

	mux.HandleFunc(TaskRecomputeScores, w.handleRecomputeScores)
	mux.HandleFunc(TaskDistributeUnassigned, w.handleDistributeUnassigned)

	return w
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

// handleRecomputeScores rescores all leads. Per-lead failures are logged
// and do not retry the batch.
func (w *Worker) handleRecomputeScores(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseJobPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	result, err := w.jobs.RecomputeAllScores(ctx, domain.SystemActor())
	if apperr.Is(err, apperr.KindPartialFailure) {
		w.log.Warn("score recompute finished with failures", "trigger", payload.Trigger, "succeeded", len(result.Succeeded), "failed", len(result.Failed))
		return nil
	}
	if err != nil {
		return err
	}

	w.log.Info("score recompute job done", "trigger", payload.Trigger, "succeeded", len(result.Succeeded))
	return nil
}

// handleDistributeUnassigned runs a scheduled distribution. Nothing happens
// while distribution is disabled.
func (w *Worker) handleDistributeUnassigned(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseJobPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	result, ran, err := w.jobs.AutoDistribute(ctx, domain.SystemActor())
	if apperr.Is(err, apperr.KindPartialFailure) {
		w.log.Warn("distribution finished with failures", "trigger", payload.Trigger, "assigned", result.Assigned, "failed", len(result.Failed))
		return nil
	}
	if err != nil {
		return err
	}
	if !ran {
		w.log.Info("distribution disabled, job skipped", "trigger", payload.Trigger)
		return nil
	}

	w.log.Info("distribution job done", "trigger", payload.Trigger, "assigned", result.Assigned)
	return nil
}
