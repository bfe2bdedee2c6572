package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/config"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/email"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/ffmpeg"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/gemini"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/metrics"
	miniostorage "github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/minio"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/pdf"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/postgres"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/rabbitmq"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/tracing"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/usecase"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting slidesync-processing-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	// Migrations
	err = postgres.RunMigrations(cfg.DatabaseURL, "migrations")
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:      cfg.MinIOEndpoint,
		AccessKey:     cfg.MinIOAccessKey,
		SecretKey:     cfg.MinIOSecretKey,
		UseSSL:        cfg.MinIOUseSSL,
		MediaBucket:   cfg.MinIOMediaBucket,
		ResultsBucket: cfg.MinIOResultsBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	statusPub := rabbitmq.NewStatusPublisher(pub, cfg.RabbitMQStatusQueue)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Infra adapters
	repo := postgres.NewJobRepository(pool)
	sampler := ffmpeg.NewSampler(cfg.SamplerTargetFrames, cfg.FrameMaxEdgePx, cfg.FrameJPEGQuality, log)
	rasterizer := pdf.NewRasterizer(cfg.PageRenderDPI, cfg.PageMaxEdgePx, cfg.PageJPEGQuality, log)
	model := gemini.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, log)
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	// Use case
	uc := usecase.NewSyncDeckUseCase(
		repo, storage, sampler, rasterizer, model,
		statusPub, dlqPub, notifier,
		log,
		usecase.SyncDeckConfig{
			TempDir:             cfg.TempDir,
			MaxRetries:          cfg.MaxRetries,
			VideoInlineMaxBytes: cfg.VideoInlineMaxBytes,
			DeckInlineMaxBytes:  cfg.DeckInlineMaxBytes,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:          cfg.RabbitMQURL,
		Queue:        cfg.RabbitMQSyncQueue,
		Exchange:     cfg.RabbitMQExchange,
		DLQ:          cfg.RabbitMQDLQ,
		StatusQueue:  cfg.RabbitMQStatusQueue,
		Prefetch:     cfg.RabbitMQPrefetch,
		WorkerCount:  cfg.WorkerCount,
		BaseDelayMs:  cfg.RetryBaseDelayMs,
		JobTimeoutMs: cfg.JobTimeoutMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("slidesync-processing-service started, consuming messages")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("slidesync-processing-service stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
