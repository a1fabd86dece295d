package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"

	"movingintake/platform/config"
	"movingintake/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// SweepHandler executes a periodic sweep tick. Implemented by internal/jobqueue.
type SweepHandler interface {
	MediaCleanup(ctx context.Context) error
	RecoverLeases(ctx context.Context) error
}

// Scheduler registers cron entries that fire media_cleanup and lease-recovery
// ticks on asynq's Redis-backed schedule, independent of the job queue's own
// DB-polling loop.
type Scheduler struct {
	sched *asynq.Scheduler
	cfg   config.SchedulerConfig
}

// NewScheduler builds the cron-side scheduler. Call Run to start it.
func NewScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*Scheduler, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	sched := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		LogLevel: asynq.InfoLevel,
	})

	return &Scheduler{sched: sched, cfg: cfg}, nil
}

// Run registers the cron entries and blocks until the scheduler stops.
func (s *Scheduler) Run() error {
	mediaTask, err := NewMediaCleanupTask()
	if err != nil {
		return fmt.Errorf("build media cleanup task: %w", err)
	}
	if _, err := s.sched.Register(s.cfg.GetMediaCleanupCron(), mediaTask, asynq.Queue(s.cfg.GetAsynqQueueName())); err != nil {
		return fmt.Errorf("register media cleanup cron: %w", err)
	}

	leaseTask, err := NewLeaseRecoveryTask()
	if err != nil {
		return fmt.Errorf("build lease recovery task: %w", err)
	}
	if _, err := s.sched.Register(s.cfg.GetLeaseRecoveryCron(), leaseTask, asynq.Queue(s.cfg.GetAsynqQueueName())); err != nil {
		return fmt.Errorf("register lease recovery cron: %w", err)
	}

	return s.sched.Run()
}

// Shutdown stops the scheduler.
func (s *Scheduler) Shutdown() {
	if s == nil || s.sched == nil {
		return
	}
	s.sched.Shutdown()
}

// Worker consumes the sweep ticks emitted by Scheduler and dispatches them
// to the job queue's sweep handlers.
type Worker struct {
	srv     *asynq.Server
	handler SweepHandler
	log     *logger.Logger
}

// NewWorker builds the asynq consumer side for sweep ticks.
func NewWorker(cfg config.SchedulerConfig, handler SweepHandler, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{cfg.GetAsynqQueueName(): 1},
	})

	return &Worker{srv: srv, handler: handler, log: log}, nil
}

// Run starts consuming sweep ticks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskMediaCleanup, func(ctx context.Context, _ *asynq.Task) error {
		if err := w.handler.MediaCleanup(ctx); err != nil {
			w.log.Error("media cleanup sweep failed", "error", err)
			return err
		}
		return nil
	})
	mux.HandleFunc(TaskLeaseRecovery, func(ctx context.Context, _ *asynq.Task) error {
		if err := w.handler.RecoverLeases(ctx); err != nil {
			w.log.Error("lease recovery sweep failed", "error", err)
			return err
		}
		return nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- w.srv.Run(mux) }()

	select {
	case <-ctx.Done():
		w.srv.Shutdown()
		return nil
	case err := <-errCh:
		return err
	}
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
