package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"movingintake/internal/adapters/storage"
	"movingintake/internal/email"
	"movingintake/internal/engine"
	apphttp "movingintake/internal/http"
	"movingintake/internal/http/router"
	"movingintake/internal/inbound"
	"movingintake/internal/jobqueue"
	"movingintake/internal/leadstore"
	"movingintake/internal/notify"
	"movingintake/internal/pricing"
	"movingintake/internal/scheduler"
	"movingintake/internal/tenants"
	"movingintake/internal/whatsapp"
	"movingintake/platform/config"
	"movingintake/platform/db"
	"movingintake/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config: "+err.Error())
		os.Exit(1)
	}

	log := logger.New(cfg.Env)

	if err := db.RunMigrations(ctx, cfg, cfg.GetMigrationsDir()); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connect", 5, 500*time.Millisecond, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// ========================================================================
	// Domain wiring
	// ========================================================================

	crypto, err := tenants.NewCrypto([]byte(cfg.GetCredentialEncryptionKey()))
	if err != nil {
		log.Error("credential crypto init failed", "error", err)
		os.Exit(1)
	}
	tenantRepo := tenants.New(pool)
	tenantSvc := tenants.NewService(tenantRepo, crypto, cfg.GetTenantCacheTTL(), log)

	leadRepo := leadstore.NewLeadRepository(pool)
	inboundRepo := leadstore.NewInboundRepository(pool)
	mediaRepo := leadstore.NewMediaRepository(pool)
	sessions := engine.NewStore(pool)

	catalog, err := pricing.LoadCatalog(cfg.GetPricingConfigPath())
	if err != nil {
		log.Error("pricing catalog load failed", "error", err)
		os.Exit(1)
	}

	waClient := whatsapp.NewClient(10 * time.Second)
	waAdapter := whatsapp.NewAdapter(waClient, tenantSvc)

	var storageSvc storage.StorageService
	if cfg.IsMinIOEnabled() {
		storageSvc, err = storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("minio init failed", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("MINIO_ENDPOINT not configured; media capture disabled")
	}

	var emailSender notify.EmailSender
	if cfg.GetEmailEnabled() {
		emailSender = email.NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName())
	}

	notifyCfg := notify.Config{
		TargetLang:           cfg.GetOperatorLeadTargetLang(),
		DispatchCrewFallback: cfg.GetDispatchCrewFallbackEnabled(),
	}
	notifySvc := notify.NewService(leadRepo, tenantSvc, catalog, whatsapp.NotifyChatSender{Adapter: waAdapter}, emailSender, notifyCfg, log)

	var mediaProcessor jobqueue.MediaProcessor
	var mediaCleaner jobqueue.MediaCleaner
	if storageSvc != nil {
		fetcher := notify.NewHTTPMediaFetcher(10 * time.Second)
		mediaSvc := notify.NewMediaService(storageSvc, cfg.GetMinioBucketMediaAssets(), mediaRepo, fetcher, cfg.GetMediaTTL(), log)
		mediaProcessor = notify.JobQueueMediaProcessor{MediaService: mediaSvc}
		mediaCleaner = mediaSvc
	}

	jobRepo := jobqueue.New(pool)
	dispatcher := jobqueue.NewDispatcher(waAdapter, mediaProcessor, notifySvc, mediaCleaner, jobRepo)
	jobWorker := jobqueue.NewWorker(jobRepo, dispatcher, cfg.GetWorkerRole(), cfg, log)

	engineCfg := engine.Config{MaxDateDays: cfg.GetMaxDateDays(), StaleHintAfter: cfg.GetSessionStaleHint()}
	uc := inbound.NewUseCase(tenantSvc, inboundRepo, sessions, leadRepo, jobRepo, catalog, engineCfg, engine.SystemClock{}, log, cfg.GetSessionTTL())
	inboundModule := inbound.NewModule(uc)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	go func() {
		if err := jobWorker.Run(workerCtx); err != nil {
			log.Error("job worker stopped", "error", err)
		}
	}()

	var sweepScheduler *scheduler.Scheduler
	var sweepWorker *scheduler.Worker
	if cfg.GetRedisURL() != "" {
		sweepScheduler, err = scheduler.NewScheduler(cfg, log)
		if err != nil {
			log.Error("sweep scheduler init failed", "error", err)
			os.Exit(1)
		}
		sweepWorker, err = scheduler.NewWorker(cfg, jobWorker, log)
		if err != nil {
			log.Error("sweep worker init failed", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := sweepScheduler.Run(); err != nil {
				log.Error("sweep scheduler stopped", "error", err)
			}
		}()
		go func() {
			if err := sweepWorker.Run(workerCtx); err != nil {
				log.Error("sweep worker stopped", "error", err)
			}
		}()
	} else {
		log.Warn("REDIS_URL not configured; periodic media_cleanup/lease_recovery sweeps disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: pool,
		Modules: []apphttp.Module{
			inboundModule,
		},
	}

	ginEngine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.GetHTTPAddr())
		srvErr <- ginEngine.Run(cfg.GetHTTPAddr())
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		cancelWorker()
		if sweepScheduler != nil {
			sweepScheduler.Shutdown()
		}
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
