package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"monetization-ledger/internal/cache"
	"monetization-ledger/internal/config"
	"monetization-ledger/internal/database"
	"monetization-ledger/internal/handlers"
	"monetization-ledger/internal/kafka"
	"monetization-ledger/internal/lock"
	"monetization-ledger/internal/logger"
	"monetization-ledger/internal/middleware"
	"monetization-ledger/internal/repository"
	"monetization-ledger/internal/services"

	"github.com/gin-gonic/gin"
)

func main() {
	log := logger.SetupLogger(config.GetEnv("LOG_LEVEL", "info"))

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	log = logger.SetupLogger(cfg.LogLevel)

	// db connection
	db, err := database.SetupDatabase(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if cfg.DBSeed {
		if err := database.SeedDatabase(db); err != nil {
			log.WithError(err).Warn("Failed to seed database")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisEnabled {
		client, err := lock.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer client.Close()
		locker = lock.NewRedis(client, cfg.LockTTL, log)
		log.WithField("addr", cfg.RedisAddr).Info("Using Redis day locks")
	}

	snapshots, err := cache.New(cfg.SnapshotCacheMB, cfg.SnapshotCacheTTL, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create snapshot cache")
	}
	defer snapshots.Close()

	store := repository.NewGormStore(db, log)

	recorder := services.NewRecorder(store, cfg.DefaultCurrency, log)
	queue := services.NewEventQueue(recorder, log, cfg.EventQueueSize, cfg.EventBatchSize, cfg.EventFlushInterval)
	processorDone := make(chan struct{})
	go func() {
		queue.StartProcessor(ctx)
		close(processorDone)
	}()

	amortizer := services.NewAmortizer(store, store, locker, cfg.DefaultCurrency, log)
	computer := services.NewMetricsComputer(store, amortizer, locker, snapshots, cfg.QueryTimeout, cfg.DefaultCurrency, log)
	selector := services.NewAdSelector(store, services.NewShuffleRanker(rand.NewSource(time.Now().UnixNano())), log)
	feed := services.NewFeedAssembler(store, selector, queue, cfg.FeedAdInterval, cfg.FeedMaxLimit, log)
	reports := services.NewReportService(store, cfg.DefaultCurrency, log)

	var sink services.EventSink = queue
	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(kafka.NewKafkaWriter(cfg.KafkaBroker, cfg.KafkaTopic), log)
		defer func() {
			if err := producer.Close(); err != nil {
				log.WithError(err).Error("Failed to close Kafka writer")
			}
		}()
		sink = producer

		consumer := kafka.NewConsumer(kafka.NewKafkaReader(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaGroupID), log)
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx, recorder); err != nil {
				log.WithError(err).Error("Kafka consumer stopped")
			}
		}()
		log.WithField("topic", cfg.KafkaTopic).Info("Publishing ledger events to Kafka")
	}

	server := handlers.NewServer(handlers.Dependencies{
		Logger:    log,
		Users:     store,
		Ads:       store,
		Feed:      feed,
		Premium:   services.NewPremiumResolver(store, log),
		Snapshots: computer,
		Reports:   reports,
		Sink:      sink,
	})

	// Setup Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggingMiddleware(log))
	r.Use(middleware.CORSMiddleware())

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	server.RegisterRoutes(r, limiter.Middleware())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.WithField("port", cfg.Port).Info("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	cancel()
	<-processorDone
	log.Info("Server exited")
}
