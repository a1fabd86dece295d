package jobqueue

import (
	"context"
	"time"

	"movingintake/platform/config"
	"movingintake/platform/logger"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Worker polls the job queue and dispatches claimed jobs to registered
// handlers, honoring the worker_role handler filter. Each of PollerConcurrency
// loops runs independently; the DB's SKIP LOCKED claim keeps them disjoint.
type Worker struct {
	repo       *Repository
	dispatcher *Dispatcher
	handlers   map[string]Handler
	jobTypes   []string
	cfg        config.PollerConfig
	log        *logger.Logger
	limiter    *rate.Limiter
}

// NewWorker builds a Worker scoped to the job types permitted for role.
func NewWorker(repo *Repository, dispatcher *Dispatcher, role string, cfg config.PollerConfig, log *logger.Logger) *Worker {
	jobTypes := RoleHandlerSet(role)
	all := dispatcher.Handlers()
	filtered := make(map[string]Handler, len(jobTypes))
	for _, jt := range jobTypes {
		if h, ok := all[jt]; ok {
			filtered[jt] = h
		}
	}

	// Self-throttle claim-batch throughput independent of DB load: at most
	// one claim round per poll interval, shared across all of this worker's loops.
	limit := rate.Every(cfg.GetPollInterval())

	return &Worker{
		repo:       repo,
		dispatcher: dispatcher,
		handlers:   filtered,
		jobTypes:   jobTypes,
		cfg:        cfg,
		log:        log,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Run starts PollerConcurrency independent poll loops and a periodic
// stale-lease sweep, blocking until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if len(w.jobTypes) == 0 {
		w.log.Warn("job worker has no handlers for its role; idling")
		<-ctx.Done()
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)

	concurrency := w.cfg.GetPollerConcurrency()
	if concurrency < 1 {
		concurrency = 1
	}
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			return w.loop(ctx)
		})
	}

	g.Go(func() error {
		return w.staleSweepLoop(ctx)
	})

	return g.Wait()
}

func (w *Worker) loop(ctx context.Context) error {
	batchSize := w.cfg.GetBatchSize()
	if batchSize < 1 {
		batchSize = 5
	}

	for {
		if err := w.limiter.Wait(ctx); err != nil {
			return nil
		}

		jobs, err := w.repo.ClaimBatch(ctx, w.jobTypes, batchSize)
		if err != nil {
			w.log.Error("job claim failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.cfg.GetPollInterval() * 2):
			}
			continue
		}

		if len(jobs) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.cfg.GetPollInterval()):
			}
			continue
		}

		for _, job := range jobs {
			w.execute(ctx, job)
		}
	}
}

func (w *Worker) execute(ctx context.Context, job Job) {
	handler, ok := w.handlers[job.JobType]
	if !ok {
		w.log.Warn("no handler registered for job type", "job_type", job.JobType)
		return
	}

	w.log.JobClaimed(ctx, job.ID.String(), job.JobType, job.Attempts)

	if err := handler(ctx, job); err != nil {
		delay := Backoff(job.Attempts, w.cfg.GetBaseRetryDelay(), w.cfg.GetMaxRetryDelay())
		if failErr := w.repo.Fail(ctx, job.ID, err.Error(), delay); failErr != nil {
			w.log.Error("failed to record job failure", "job_id", job.ID, "error", failErr)
		}
		w.log.JobFailed(ctx, job.ID.String(), job.JobType, err.Error(), job.Attempts, job.MaxAttempts)
		return
	}

	if err := w.repo.Complete(ctx, job.ID); err != nil {
		w.log.Error("failed to mark job completed", "job_id", job.ID, "error", err)
	}
}

func (w *Worker) staleSweepLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.GetLeaseHorizon() / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n, err := w.repo.ResetStale(ctx, w.cfg.GetLeaseHorizon()); err != nil {
				w.log.Warn("stale job reset failed", "error", err)
			} else if n > 0 {
				w.log.Info("reset stale jobs", "count", n)
			}
		}
	}
}

// RecoverLeases resets jobs stuck running past the lease horizon back to
// pending. Handlers must tolerate re-execution. Satisfies
// scheduler.SweepHandler alongside MediaCleanup.
func (w *Worker) RecoverLeases(ctx context.Context) error {
	_, err := w.repo.ResetStale(ctx, w.cfg.GetLeaseHorizon())
	return err
}

// MediaCleanup satisfies scheduler.SweepHandler by delegating to the
// dispatcher's media cleaner.
func (w *Worker) MediaCleanup(ctx context.Context) error {
	return w.dispatcher.MediaCleanup(ctx)
}
