package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"SpendLens/internal/usecase"
	pkgch "SpendLens/pkg/clickhouse"
	"SpendLens/pkg/config"
	xhttp "SpendLens/pkg/http"
	pkgkafka "SpendLens/pkg/kafka"
	applogger "SpendLens/pkg/logger"
	"SpendLens/pkg/queue"
)

// App encapsulates the entire application lifecycle: the HTTP API,
// the optional ingest sources (Kafka topic, WebSocket feed), the
// rescan queue worker and the infrastructure clients behind them.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	httpHandler xhttp.Handler
	collector   *usecase.FeedCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	rescanQueue *queue.RedisQueue
	producer    *pkgkafka.Producer
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies. Optional
// pieces (collector, consumer, queue, producer, ClickHouse) may be nil
// and are simply not started.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpHandler xhttp.Handler,
	collector *usecase.FeedCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	rescanQueue *queue.RedisQueue,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		httpHandler: httpHandler,
		collector:   collector,
		consumer:    consumer,
		kh:          kh,
		rescanQueue: rescanQueue,
		producer:    producer,
		chClient:    chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Rescan queue worker
	if a.rescanQueue != nil {
		if err := a.rescanQueue.Start(); err != nil {
			a.log.Error("rescan queue start error", applogger.Error(err))
			return err
		}
		a.rescanQueue.StartRetryProcessor()
		a.log.Info("rescan queue started")
	}

	// WebSocket transaction feed
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.log.Error("feed collector error", applogger.Error(err))
			}
		}()
		a.log.Info("feed collector started", applogger.Strings("accounts", a.cfg.Feed.Accounts))
	}

	// Kafka ingest topic
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// HTTP API
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services, ingest side first so no
// writes land after the stores close.
func (a *App) shutdown(ctx context.Context) error {
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.log.Warn("feed collector stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.rescanQueue != nil {
		if err := a.rescanQueue.Stop(ctx); err != nil {
			a.log.Warn("rescan queue stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
