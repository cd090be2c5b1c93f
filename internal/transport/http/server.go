package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medremind/internal/cache"
	"medremind/internal/config"
	"medremind/internal/database"
	"medremind/internal/handler"
	"medremind/internal/queue"
	appredis "medremind/internal/redis"
	"medremind/internal/repository"
	"medremind/internal/scheduler"
	"medremind/internal/service"
	"medremind/internal/worker"
)

func Run() error {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// 3. Connect to Redis
	redisClient, err := appredis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	// 4. Repositories
	tokenRepo := repository.NewDeviceTokenRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)
	medicationRepo := repository.NewMedicationReminderRepository(db)
	appointmentRepo := repository.NewAppointmentReminderRepository(db)

	// 5. Push provider
	var sender service.PushSender
	switch cfg.PushProvider {
	case "fcm":
		fcmClient, err := service.NewFCMClient(ctx, cfg.FCMProjectID, cfg.FCMClientEmail, cfg.FCMPrivateKey)
		if err != nil {
			return fmt.Errorf("failed to init FCM client: %w", err)
		}
		sender = fcmClient
	case "expo":
		sender = service.NewExpoPushClient()
	default:
		return fmt.Errorf("unknown push provider %q", cfg.PushProvider)
	}
	log.Printf("[Server] Push provider: %s", cfg.PushProvider)

	// 6. Delivery pipeline
	badgeCache := cache.NewBadgeCache(redisClient.Client)
	reclaimer := service.NewReclaimer(tokenRepo)
	dispatcher := service.NewDispatcher(sender, deliveryRepo, tokenRepo, prefRepo, badgeCache, reclaimer)

	// 7. Services
	publisher := queue.NewPublisher(redisClient.Client)
	notifService := service.NewNotificationService(deliveryRepo, tokenRepo, prefRepo, badgeCache)
	reminderService := service.NewReminderService(medicationRepo, appointmentRepo, publisher)

	// 8. Queue workers for appointment confirmation pushes
	consumer := queue.NewConsumer(redisClient.Client)
	workerHandler := worker.NewHandler(dispatcher, loc)
	workerManager := worker.NewManager(consumer, workerHandler, worker.DefaultManagerConfig())
	if err := workerManager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer workerManager.Stop()

	// 9. Scheduled reminder jobs
	matcher := scheduler.NewMatcher(dispatcher)
	medicationSource := scheduler.NewMedicationSource(medicationRepo, loc)
	appointmentSource := scheduler.NewAppointmentSource(appointmentRepo, loc)
	sched := scheduler.NewScheduler(matcher, medicationSource, appointmentSource, scheduler.Config{
		MedicationWindowStart: cfg.MedicationWindowStart,
		MedicationWindowEnd:   cfg.MedicationWindowEnd,
		AppointmentHour:       cfg.AppointmentHour,
	}, loc)
	sched.Start(ctx)
	defer sched.Stop()

	// 10. HTTP server
	router := NewRouter(RouterConfig{
		NotificationHandler: handler.NewNotificationHandler(notifService),
		ReminderHandler:     handler.NewReminderHandler(reminderService),
		JWTSecret:           cfg.JWTSecret,
	})

	srv := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		log.Printf("[Server] Received %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
