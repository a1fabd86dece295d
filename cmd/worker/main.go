// Command worker runs the job-queue poller and, when configured, the
// asynq-backed periodic sweep consumer, without an HTTP server. It shares
// every domain wiring path with cmd/api except the gin router, so a
// deployment can split "dispatch" and "core" roles across processes per
// WORKER_ROLE while both talk to the same database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"movingintake/internal/adapters/storage"
	"movingintake/internal/email"
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

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	crypto, err := tenants.NewCrypto([]byte(cfg.GetCredentialEncryptionKey()))
	if err != nil {
		log.Error("credential crypto init failed", "error", err)
		os.Exit(1)
	}
	tenantRepo := tenants.New(pool)
	tenantSvc := tenants.NewService(tenantRepo, crypto, cfg.GetTenantCacheTTL(), log)

	leadRepo := leadstore.NewLeadRepository(pool)
	mediaRepo := leadstore.NewMediaRepository(pool)

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

	errCh := make(chan error, 2)
	go func() { errCh <- jobWorker.Run(ctx) }()

	if cfg.GetRedisURL() != "" {
		sweepWorker, err := scheduler.NewWorker(cfg, jobWorker, log)
		if err != nil {
			log.Error("sweep worker init failed", "error", err)
			os.Exit(1)
		}
		go func() { errCh <- sweepWorker.Run(ctx) }()
	} else {
		log.Warn("REDIS_URL not configured; periodic sweeps disabled")
	}

	log.Info("worker started", "role", cfg.GetWorkerRole())

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("worker stopped with error", "error", err)
			os.Exit(1)
		}
	}
}
