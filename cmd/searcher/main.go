// Command searcher loads a corpus, builds its index and serves BM25 and
// boolean search over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/searchlab/termindex/internal/analytics"
	"github.com/searchlab/termindex/internal/indexer"
	"github.com/searchlab/termindex/internal/ingestion/loader"
	"github.com/searchlab/termindex/internal/searcher/cache"
	"github.com/searchlab/termindex/internal/searcher/executor"
	"github.com/searchlab/termindex/internal/searcher/handler"
	"github.com/searchlab/termindex/internal/searcher/ranker"
	"github.com/searchlab/termindex/pkg/health"
	"github.com/searchlab/termindex/pkg/kafka"
	"github.com/searchlab/termindex/pkg/logger"
	"github.com/searchlab/termindex/pkg/metrics"
	"github.com/searchlab/termindex/pkg/middleware"
	pkgredis "github.com/searchlab/termindex/pkg/redis"
	"github.com/searchlab/termindex/pkg/resilience"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var corpusFlags loader.Flags
	flagSet := pflag.NewFlagSet("searcher", pflag.ContinueOnError)
	corpusFlags.AddFlags(flagSet)
	port := flagSet.IntP("port", "p", 0, "HTTP port (default from config)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			fmt.Fprintf(os.Stderr, "Usage: searcher [flags]\n\nServe BM25 and boolean search over a corpus.\n\nFlags:\n")
			flagSet.PrintDefaults()
			return nil
		}
		return err
	}

	cfg, err := corpusFlags.Config()
	if err != nil {
		return err
	}
	if flagSet.Changed("port") {
		cfg.Server.Port = *port
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "source", cfg.Corpus.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	corpus, err := loader.Corpus(ctx, cfg)
	if err != nil {
		return err
	}
	engine := indexer.NewEngine(corpus, indexer.WithMetrics(m))
	params := ranker.Params{K1: cfg.Search.BM25.K1, B: cfg.Search.BM25.B}
	exec := executor.New(engine, params,
		executor.WithMetrics(m),
		executor.WithConcurrency(cfg.Search.BatchConcurrency),
	)

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		stats := engine.Stats()
		if stats.Documents == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "empty index"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", stats.Documents, stats.Terms),
		}
	})

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			breaker := resilience.NewBreaker("redis-cache", resilience.BreakerConfig{
				FailureThreshold: cfg.Redis.BreakerThreshold,
				ResetTimeout:     cfg.Redis.BreakerResetTimeout,
			}, resilience.WithStateChange(func(_, to resilience.State) {
				m.CacheBreakerState.Set(float64(to))
			}))
			queryCache = cache.New(cache.NewBreakerStore(redisClient, breaker), cfg.Redis.CacheTTL, m,
				cache.WithComputeTimeout(cfg.Server.WriteTimeout),
			)
			checker.Register("redis", health.PingCheck(redisClient.Ping, health.StatusDegraded))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	collectorOpts := []analytics.CollectorOption{}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		collectorOpts = append(collectorOpts, analytics.WithPublisher(producer))
		slog.Info("publishing search events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.SearchTopic)
	}
	collector := analytics.NewCollector(analytics.NewAggregator(), cfg.Kafka.BufferSize, collectorOpts...)
	collector.Start(ctx)
	defer collector.Close()

	h := handler.New(exec, engine, handler.Options{
		Params:       params,
		Cache:        queryCache,
		Collector:    collector,
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxResults:   cfg.Search.MaxResults,
	})
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var waitMetrics func()
	if cfg.Metrics.Enabled {
		waitMetrics = metrics.StartServer(ctx, cfg.Metrics.Port, registry)
	}

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: middleware.Chain(mux,
			middleware.RequestID,
			middleware.Metrics(m),
			middleware.Timeout(cfg.Server.WriteTimeout),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving http: %w", err)
	}
	// ListenAndServe returns as soon as Shutdown starts; in-flight handlers
	// still use the collector and cache until Shutdown returns.
	<-shutdownDone
	if waitMetrics != nil {
		waitMetrics()
	}
	slog.Info("search service stopped")
	return nil
}
