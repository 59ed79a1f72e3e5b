package di

import (
	"context"
	"fmt"
	"time"

	domrepo "FinScan/internal/domain/repository"
	"FinScan/internal/handler/api"
	"FinScan/internal/observer"
	"FinScan/internal/provider"
	internalrepo "FinScan/internal/repository"
	"FinScan/internal/scoring"
	"FinScan/internal/service/ratelimit"
	"FinScan/internal/universe"
	"FinScan/internal/usecase"
	"FinScan/pkg/cache"
	pkgch "FinScan/pkg/clickhouse"
	"FinScan/pkg/config"
	xhttp "FinScan/pkg/http"
	pkgkafka "FinScan/pkg/kafka"
	applogger "FinScan/pkg/logger"
	"FinScan/pkg/metrics"
	"FinScan/pkg/server"
)

// ProvideMetrics creates a Prometheus recorder, or a no-op when disabled.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

// ProvideCache returns Redis when enabled, otherwise an in-process cache.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected", applogger.String("host", cfg.Redis.Host))
	return rc, nil
}

// ProvideClickHouseClient connects and creates the schema; nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, internalrepo.HistorySchema(db), internalrepo.ResultSchema(db)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer; nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Compression, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger, cfg.Kafka.Producer.Async),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideMarketDataProvider assembles the quote source and the history source.
func ProvideMarketDataProvider(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (domrepo.MarketDataProvider, error) {
	var base domrepo.MarketDataProvider
	switch cfg.Provider.Type {
	case "memory":
		m, err := provider.LoadFixtures(cfg.Provider.Fixtures)
		if err != nil {
			return nil, err
		}
		base = m
	default:
		base = provider.NewHTTP(cfg.Provider.BaseURL, cfg.Provider.Timeout)
	}

	var history domrepo.HistorySource
	var sink domrepo.CandleStore
	if ch != nil {
		store := internalrepo.NewCHHistoryStore(ch, cfg.ClickHouse.Database)
		store.SetLogger(l)
		sink = store
		if cfg.Provider.History == "clickhouse" {
			history = store
			sink = nil
		}
	}
	if cfg.Provider.History == "alpaca" {
		history = provider.NewAlpacaHistory(provider.AlpacaConfig{
			APIKey:    cfg.Provider.Alpaca.APIKey,
			APISecret: cfg.Provider.Alpaca.APISecret,
			DataURL:   cfg.Provider.Alpaca.DataURL,
			Feed:      cfg.Provider.Alpaca.Feed,
		})
	}

	composite := provider.NewComposite(base, history, l)
	if sink != nil && history != nil {
		composite.WithCandleSink(sink)
	}

	l.Info("market data provider ready",
		applogger.String("type", cfg.Provider.Type),
		applogger.String("history", cfg.Provider.History),
	)
	return composite, nil
}

// ProvideUniverse builds the resolver from the configured universe, or the
// built-in one when none is configured.
func ProvideUniverse(cfg *config.Config, l *applogger.Logger) *universe.Resolver {
	var refs []universe.Reference
	for _, u := range cfg.Scanner.Universe {
		refs = append(refs, universe.Reference{Symbol: u.Symbol, Sector: u.Sector})
	}
	return universe.NewResolver(refs, l)
}

// ProvideEngine selects the scoring strategy.
func ProvideEngine(cfg *config.Config) (*scoring.Engine, error) {
	s, ok := scoring.Resolve(cfg.Scanner.Scoring)
	if !ok {
		return nil, fmt.Errorf("unknown scoring strategy %q", cfg.Scanner.Scoring)
	}
	return scoring.NewEngine(s), nil
}

// ProvideHub creates the websocket hub; nil when disabled.
func ProvideHub(cfg *config.Config, l *applogger.Logger) *observer.Hub {
	if !cfg.WebSocket.Enabled {
		return nil
	}
	return observer.NewHub(cfg.WebSocket.SendBuffer, l)
}

// ProvideLatest keeps the last ranking in the cache.
func ProvideLatest(cfg *config.Config, c cache.Service) *observer.Latest {
	return observer.NewLatest(c, cfg.Redis.LatestTTL)
}

// ProvideScanner creates the scanner and registers every enabled observer.
func ProvideScanner(
	cfg *config.Config,
	l *applogger.Logger,
	p domrepo.MarketDataProvider,
	resolver *universe.Resolver,
	engine *scoring.Engine,
	m domrepo.Metrics,
	latest *observer.Latest,
	hub *observer.Hub,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
) *usecase.MarketScanner {
	s := usecase.NewMarketScanner(p, resolver, engine,
		usecase.WithLogger(l),
		usecase.WithMetrics(m),
		usecase.WithNotifyTimeout(cfg.Scanner.NotifyTimeout),
	)
	s.Register("log", observer.NewLog(l, 5))
	s.Register("latest", latest)
	if hub != nil {
		s.Register("websocket", hub)
	}
	if producer != nil {
		s.Register("kafka", observer.NewKafka(producer, observer.Topics{
			Results:   cfg.Kafka.Topics.Results,
			Completed: cfg.Kafka.Topics.Completed,
			Alerts:    cfg.Kafka.Topics.Alerts,
		}))
	}
	if ch != nil {
		store := internalrepo.NewCHResultStore(ch, cfg.ClickHouse.Database)
		store.SetLogger(l)
		s.Register("clickhouse", observer.NewStore(store))
	}
	l.Info("scanner ready", applogger.Strings("observers", s.Observers().Names()))
	return s
}

// ProvideScheduler registers the configured profiles; nil when there are none.
func ProvideScheduler(cfg *config.Config, l *applogger.Logger, s *usecase.MarketScanner, c cache.Service) (*usecase.Scheduler, error) {
	if len(cfg.Schedules) == 0 {
		return nil, nil
	}
	profiles := make([]usecase.Profile, 0, len(cfg.Schedules))
	for _, sc := range cfg.Schedules {
		profiles = append(profiles, usecase.Profile{Name: sc.Name, Cron: sc.Cron, Request: sc.Request})
	}
	opts := []usecase.SchedulerOption{usecase.WithSchedulerLogger(l)}
	if cfg.Redis.Enabled {
		opts = append(opts, usecase.WithSchedulerLock(c, 30*time.Minute))
	}
	return usecase.NewScheduler(s, profiles, opts...)
}

// ProvideKafkaConsumer consumes scan requests; nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger, s *usecase.MarketScanner) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
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
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewScanRequestHandler(cfg.Kafka.Topics.Requests, s, l))
	return consumer, nil
}

// ProvideHTTPHandler exposes the scan API.
func ProvideHTTPHandler(cfg *config.Config, l *applogger.Logger, s *usecase.MarketScanner, latest *observer.Latest, hub *observer.Hub, sched *usecase.Scheduler) *api.ScanEchoHandler {
	opts := []api.ScanHandlerOption{
		api.WithLatest(latest),
		api.WithObservers(s.Observers()),
		api.WithRateLimit(ratelimit.New(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSec)),
	}
	if hub != nil {
		opts = append(opts, api.WithHub(hub, cfg.WebSocket.Path))
	}
	if sched != nil {
		opts = append(opts, api.WithSchedules(sched))
	}
	return api.NewScanEchoHandler(l, s, opts...)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.ScanEchoHandler) *xhttp.Server {
	path := ""
	if cfg.Metrics.Enabled {
		path = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithMetrics(path, nil, nil),
		xhttp.WithLogger(l),
	)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	sched *usecase.Scheduler,
	consumer *pkgkafka.Consumer,
	hub *observer.Hub,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	c cache.Service,
) *server.App {
	opts := []server.Option{server.WithCloser("cache", c)}
	if sched != nil {
		opts = append(opts, server.WithScheduler(sched))
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer))
	}
	if hub != nil {
		opts = append(opts, server.WithHub(hub))
	}
	if producer != nil {
		opts = append(opts, server.WithCloser("kafka producer", producer))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch))
	}
	return server.New(cfg, l, srv, opts...)
}
