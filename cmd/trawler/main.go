// Package main runs the market trawler: it walks every region of the
// EVE Online market through the ESI API in a continuous cycle and feeds
// each page to the configured handlers (database upsert, history
// archive, stats, metrics).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"esi-market-trawler/internal/esi"
	"esi-market-trawler/internal/observability"
	"esi-market-trawler/internal/stats"
	"esi-market-trawler/internal/storage"
	chstore "esi-market-trawler/internal/storage/clickhouse"
	"esi-market-trawler/internal/storage/memory"
	"esi-market-trawler/internal/storage/migrations"
	pgstore "esi-market-trawler/internal/storage/postgres"
	"esi-market-trawler/internal/trawler"
)

func main() {
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (empty disables the history archive)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	strategy := flag.String("strategy", "continuous", "Wait strategy between cycles: continuous, hourly or advance")
	statsFile := flag.String("stats-file", "", "File to write the stats snapshot to (empty disables)")
	baseURL := flag.String("base-url", esi.DefaultBaseURL, "ESI API base URL")
	maxRPS := flag.Int("max-rps", esi.DefaultMaxPerSecond, "Maximum API calls per second")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")

	flag.Parse()

	logger := log.New(os.Stdout, "[trawler] ", log.LstdFlags)

	creds := esi.Credentials{
		ClientID:     os.Getenv("ESI_CLIENT_ID"),
		Secret:       os.Getenv("ESI_SECRET"),
		RefreshToken: os.Getenv("ESI_REFRESH_TOKEN"),
	}
	if creds.ClientID == "" || creds.Secret == "" || creds.RefreshToken == "" {
		logger.Fatal("ESI_CLIENT_ID, ESI_SECRET and ESI_REFRESH_TOKEN are required")
	}

	waitFactory, ok := trawler.WaitStrategies[*strategy]
	if !ok {
		logger.Fatalf("Unknown wait strategy %q (want continuous, hourly or advance)", *strategy)
	}

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orderStore, archive, statsStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Stats aggregation and persistence.
	collector := stats.NewCollector()
	writer := stats.NewWriter(stats.WriterOptions{
		Collector: collector,
		FileName:  *statsFile,
		Store:     statsStore,
		Logger:    logger,
	})
	go collector.Run(ctx)
	go writer.Run(ctx)

	// Handler fan-out: stats first so progress is visible even when a
	// later handler fails the cycle.
	metrics := observability.NewMetrics("")
	handlers := []trawler.Handler{
		stats.NewHandler(collector),
		observability.NewTrawlHandler(metrics),
		trawler.NewStoreHandler(orderStore),
	}
	if archive != nil {
		handlers = append(handlers, trawler.NewArchiveHandler(archive))
	}

	client := esi.New(
		esi.WithBaseURL(*baseURL),
		esi.WithMaxPerSecond(*maxRPS),
		esi.WithTokenSource(esi.NewTokenSource(creds)),
	)

	tr := trawler.New(trawler.Options{
		Client:   client,
		Handlers: handlers,
		Wait:     waitFactory(),
		Logger:   logger,
	})

	go serveMetrics(logger, *metricsAddr)

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	logger.Printf("Starting trawl with %s strategy", *strategy)
	err = tr.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Trawler error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the order store, optional history archive and
// stats store, running migrations first.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (storage.OrderStore, storage.OrderArchive, storage.StatsStore, func(), error) {
	if useMemory {
		var archive storage.OrderArchive
		if clickhouseDSN != "" {
			archive = memory.NewOrderArchive()
		}
		return memory.NewOrderStore(), archive, memory.NewStatsStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	var archive storage.OrderArchive
	cleanup := func() { pool.Close() }

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		archive = chstore.NewOrderHistoryStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return pgstore.NewOrderStore(pool), archive, pgstore.NewStatsStore(pool), cleanup, nil
}

// serveMetrics exposes Prometheus metrics and a health check.
func serveMetrics(logger *log.Logger, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	logger.Printf("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("Metrics server error: %v", err)
	}
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
