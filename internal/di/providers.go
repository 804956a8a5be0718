package di

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"SpendLens/internal/domain/repository"
	"SpendLens/internal/handler/api"
	mid "SpendLens/internal/middleware"
	internalrepo "SpendLens/internal/repository"
	icache "SpendLens/internal/service/cache"
	"SpendLens/internal/service/txfeed"
	"SpendLens/internal/services/insight"
	"SpendLens/internal/usecase"
	pkgcache "SpendLens/pkg/cache"
	pkgch "SpendLens/pkg/clickhouse"
	"SpendLens/pkg/config"
	pkgkafka "SpendLens/pkg/kafka"
	"SpendLens/pkg/logger"
	"SpendLens/pkg/metrics"
	"SpendLens/pkg/queue"
	"SpendLens/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lc := &logger.Config{Level: "info", Format: "json", Output: "stdout"}
	if cfg.Environment == "development" {
		lc.Level = "debug"
		lc.Format = "console"
	}
	l, err := logger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when no
// host is configured (transactions then live in process memory).
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.ClickHouse.Host == "" {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideTransactionStore creates ClickHouse-backed storage, falling
// back to the in-memory store when ClickHouse is not configured.
func ProvideTransactionStore(chClient *pkgch.Client, cfg *config.Config) (repository.TransactionStore, error) {
	if chClient == nil {
		return internalrepo.NewMemoryTransactionStore(), nil
	}
	store := internalrepo.NewClickHouseTransactionStore(chClient.DB(), cfg.ClickHouse.Database+".transactions")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("transaction store: %w", err)
	}
	return store, nil
}

// ProvideRedisClient creates a shared Redis client for the exclusion
// store and rescan queue, or nil when Redis is disabled.
func ProvideRedisClient(cfg *config.Config) *goredis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideExclusionStore creates the "not recurring" decision store.
func ProvideExclusionStore(cli *goredis.Client) repository.ExclusionStore {
	if cli == nil {
		return internalrepo.NewMemoryExclusionStore()
	}
	return internalrepo.NewRedisExclusionStore(cli)
}

// ProvideResponseCache creates the API response cache: layered
// memory+Redis when Redis is enabled, in-process TTL map otherwise.
func ProvideResponseCache(cfg *config.Config) (icache.BytesCache, error) {
	if !cfg.Redis.Enabled {
		return icache.NewTTLCache(), nil
	}

	host, port := splitHostPort(cfg.Redis.Addr)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix("spendlens"),
	)
	if err != nil {
		return nil, fmt.Errorf("response cache: %w", err)
	}
	return icache.NewLayeredBytesCache(pkgcache.NewLayeredCache(rc)), nil
}

func splitHostPort(addr string) (string, int) {
	host, portStr, ok := strings.Cut(addr, ":")
	if !ok {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideKafkaProducer creates a Kafka producer, or nil without brokers.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the Kafka-backed results publisher.
func ProvidePublisher(producer *pkgkafka.Producer) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer)
}

// ProvideKafkaConsumer creates the ingest-topic consumer, or nil when
// no ingest topic is configured.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.IngestTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideDetectionConfig builds the detection thresholds from YAML,
// starting from the documented defaults so an absent detection block
// still behaves as documented.
func ProvideDetectionConfig(cfg *config.Config) insight.Config {
	c := insight.DefaultConfig()

	a := cfg.Detection.Anomaly
	if a.AmountStdDevThreshold > 0 {
		c.Anomaly.AmountStdDevThreshold = a.AmountStdDevThreshold
	}
	if a.MinTransactionsForStats > 0 {
		c.Anomaly.MinTransactionsForStats = a.MinTransactionsForStats
	}
	if a.DuplicateSimilarity > 0 {
		c.Anomaly.DuplicateSimilarity = a.DuplicateSimilarity
	}
	if a.DuplicateWindowHours > 0 {
		c.Anomaly.DuplicateWindowHours = float64(a.DuplicateWindowHours)
	}
	if a.FrequencyThreshold24h > 0 {
		c.Anomaly.FrequencyThreshold24h = a.FrequencyThreshold24h
	}
	if a.FrequencyThreshold7d > 0 {
		c.Anomaly.FrequencyThreshold7d = a.FrequencyThreshold7d
	}

	r := cfg.Detection.Recurring
	if r.MinOccurrences > 0 {
		c.Recurring.MinOccurrences = r.MinOccurrences
	}
	if r.MinOccurrencesYearly > 0 {
		c.Recurring.MinOccurrencesYearly = r.MinOccurrencesYearly
	}
	if r.AmountVariance > 0 {
		c.Recurring.AmountVariance = r.AmountVariance
	}
	if r.IntervalToleranceDays > 0 {
		c.Recurring.IntervalToleranceDays = float64(r.IntervalToleranceDays)
	}
	if r.MissedPaymentsAllowance > 0 {
		c.Recurring.MissedPaymentsAllowance = float64(r.MissedPaymentsAllowance)
	}
	if r.ConfidenceThreshold > 0 {
		c.Recurring.ConfidenceThreshold = r.ConfidenceThreshold
	}
	if r.ExcludeVariableAmounts != nil {
		c.Recurring.ExcludeVariableAmounts = *r.ExcludeVariableAmounts
	}
	return c
}

// ProvideInsightService wires the scan orchestrator over the two
// detection passes.
func ProvideInsightService(
	store repository.TransactionStore,
	exclusions repository.ExclusionStore,
	pub repository.Publisher,
	m repository.Metrics,
	l *logger.Logger,
	cfg *config.Config,
) *usecase.InsightService {
	dc := ProvideDetectionConfig(cfg)
	return usecase.NewInsightService(
		store,
		exclusions,
		insight.NewDetector(dc.Anomaly),
		insight.NewRecurringDetector(dc.Recurring),
		pub,
		m,
		l,
		cfg.Kafka.ResultsTopic,
	)
}

// ProvideRescanQueue creates the Redis-backed rescan queue with its
// job registered, or nil without Redis.
func ProvideRescanQueue(cli *goredis.Client, svc *usecase.InsightService, l *logger.Logger) *queue.RedisQueue {
	if cli == nil {
		return nil
	}
	qc := &queue.QueueConfig{
		Workers:    1, // one scan at a time, matching the in-flight guard
		QueueSize:  16,
		RetryLimit: 5,
		RetryDelay: 15 * time.Second,
	}
	return queue.NewRedisConsumer(l, qc, cli,
		[]queue.Job{usecase.NewRescanJob(svc)},
		queue.WithKeyPrefix("spendlens"),
	)
}

// ProvideIngestProcessor creates the shared store-writing processor.
func ProvideIngestProcessor(
	store repository.TransactionStore,
	m repository.Metrics,
	q *queue.RedisQueue,
) *usecase.IngestProcessor {
	p := usecase.NewIngestProcessor(store, m)
	if q != nil {
		p.WithRescan(usecase.NewRescanScheduler(q, 30*time.Second))
	}
	return p
}

// ProvideFeedCollector creates the WebSocket feed consumer, or nil
// when the feed is disabled.
func ProvideFeedCollector(
	cfg *config.Config,
	proc *usecase.IngestProcessor,
	m repository.Metrics,
) *usecase.FeedCollector {
	if !cfg.Feed.Enabled {
		return nil
	}
	stream := txfeed.New(
		cfg.Feed.Token,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Accounts,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
	pipe := mid.NewIngestPipeline(proc, m, "feed",
		mid.WithDedupeTTL(5*time.Minute),
		mid.WithBufferSize(2000),
	)
	return usecase.NewFeedCollector(stream, proc, m, pipe)
}

// ProvideKafkaTransactionsHandler registers the ingest-topic handler.
func ProvideKafkaTransactionsHandler(proc *usecase.IngestProcessor, m repository.Metrics, cfg *config.Config) *usecase.KafkaTransactionsHandler {
	return usecase.NewKafkaTransactionsHandler(cfg.Kafka.IngestTopic, proc, m)
}

// ProvideInsightsHandler creates the Echo handler with its response
// cache attached.
func ProvideInsightsHandler(l *logger.Logger, svc *usecase.InsightService, cfg *config.Config) (*api.InsightsEchoHandler, error) {
	h := api.NewInsightsEchoHandler(l, svc)
	c, err := ProvideResponseCache(cfg)
	if err != nil {
		return nil, err
	}
	h.SetCache(c)
	return h, nil
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	handler *api.InsightsEchoHandler,
	collector *usecase.FeedCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTransactionsHandler,
	rescanQueue *queue.RedisQueue,
	producer *pkgkafka.Producer,
	pub repository.Publisher,
	chClient *pkgch.Client,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NewHookChain(
			pkgkafka.NewTracingHook(l, 2*time.Second),
		))
	}
	// Ship aggregated error logs to Kafka when a logs topic is set.
	if pub != nil && cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   time.Minute,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      pub,
		})
	}
	return server.New(cfg, l, handler, collector, consumer, kh, rescanQueue, producer, chClient)
}
