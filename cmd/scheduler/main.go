package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"leadcrm_backend/internal/bootstrap"
	"leadcrm_backend/internal/email"
	"leadcrm_backend/internal/events"
	"leadcrm_backend/internal/leads"
	"leadcrm_backend/internal/notification"
	"leadcrm_backend/internal/notification/inapp"
	"leadcrm_backend/internal/scheduler"
	"leadcrm_backend/platform/config"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/validator"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if cfg.StoreBackend == config.StoreBackendMemory {
		// Jobs would run against a private copy of the data.
		log.Error("scheduler requires STORE_BACKEND=postgres")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open stores", "error", err)
		panic("failed to open stores: " + err.Error())
	}
	defer stores.Close()

	redisClient, err := bootstrap.NewRedisClient(cfg)
	if err != nil || redisClient == nil {
		log.Error("scheduler requires REDIS_URL", "error", err)
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	eventBus := events.NewInMemoryBus(log)

	leadsModule := leads.NewModule(stores.Leads, eventBus, bootstrap.NewLocker(redisClient, log), validator.New(), cfg, log)

	// Assignments made by jobs still notify their new owners.
	notificationModule := notification.New(inapp.NewService(stores.Notifications, log), email.NewSender(cfg), leadsModule.Directory(), log)
	notificationModule.RegisterHandlers(eventBus)

	worker, err := scheduler.NewWorker(cfg, leadsModule.Orchestrator(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	// Leads captured while no worker was running get an owner right away.
	if err := client.EnqueueDistribution(ctx, scheduler.TriggerStartup); err != nil {
		log.Warn("failed to enqueue startup distribution", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		periodic.Run(gctx)
		return nil
	})
	_ = g.Wait()

	eventBus.Wait()
	log.Info("scheduler stopped")
}
