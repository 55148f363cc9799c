package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"rosterwatch/internal/config"
	"rosterwatch/internal/database"
	"rosterwatch/internal/httpapi"
	"rosterwatch/internal/logger"
	"rosterwatch/internal/mqtt"
	"rosterwatch/internal/notify"
	"rosterwatch/internal/reconciler"
	"rosterwatch/internal/redis"
	"rosterwatch/internal/repository"
	"rosterwatch/internal/scraper"
	"rosterwatch/internal/service"
	"rosterwatch/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format, "rosterwatch")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("Starting rosterwatch",
		zap.Duration("cycle_interval", cfg.Scheduler.Interval),
		zap.Int("workers", cfg.Scheduler.Workers),
		zap.String("event_stream", cfg.Notify.EventStream),
	)

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	redisClient := redis.NewClient(&cfg.Redis)
	if err := redis.Ping(context.Background(), redisClient); err != nil {
		zlog.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	custodyRepo := repository.NewCustodyRepository(db, zlog, cfg.Persist.BatchSize, cfg.Persist.TouchThreshold)
	subRepo := repository.NewSubscriptionRepository(db, zlog)
	notifRepo := repository.NewNotificationRepository(db, zlog)
	facRepo := repository.NewFacilityRepository(db, zlog)

	events := notify.NewStreamPublisher(redisClient, cfg.Notify.EventStream)
	dispatcher := notify.NewDispatcher(zlog, notifRepo, subRepo, events)
	dispatcher.RegisterTransport("log", transport.NewLog(zlog))
	dispatcher.RegisterTransport("webhook", transport.NewWebhook(cfg.Notify.WebhookTimeout, zlog))

	// The push channel needs a broker; without one the service still runs
	// and push subscribers fall back to the log transport.
	if mqttClient, err := mqtt.NewClient(&cfg.MQTT); err != nil {
		zlog.Warn("MQTT unavailable, push channel disabled", zap.Error(err))
	} else {
		defer mqttClient.Disconnect()
		dispatcher.RegisterTransport("push",
			transport.NewMQTTPush(mqttClient, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS, zlog))
	}

	adapters := scraper.NewRegistry()
	adapters.Register("http-json", scraper.NewHTTPJSONAdapter(
		cfg.Scraper.Timeout, cfg.Scraper.UserAgent, cfg.Scraper.Retries, zlog))

	svc := service.New(
		cfg, zlog,
		facRepo, subRepo,
		service.RepoCustodyStore{Repo: custodyRepo},
		adapters,
		reconciler.New(zlog),
		dispatcher,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := svc.Start(ctx); err != nil && err != context.Canceled {
			zlog.Error("Scheduler exited", zap.Error(err))
		}
	}()

	mux := http.NewServeMux()
	subHandler := httpapi.NewSubscriptionHandler(subRepo, zlog)
	rosterHandler := httpapi.NewRosterHandler(custodyRepo, facRepo, zlog)
	mux.Handle("/api/v1/subscriptions", subHandler)
	mux.Handle("/api/v1/subscriptions/", subHandler)
	mux.Handle("/api/v1/provision", subHandler)
	mux.Handle("/api/v1/facilities", rosterHandler)
	mux.Handle("/api/v1/facilities/", rosterHandler)

	server := &http.Server{
		Addr:    cfg.HTTP.ListenAddr,
		Handler: mux,
	}
	go func() {
		zlog.Info("HTTP API listening", zap.String("addr", cfg.HTTP.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	zlog.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Error during HTTP shutdown", zap.Error(err))
	}

	zlog.Info("Service stopped")
}
