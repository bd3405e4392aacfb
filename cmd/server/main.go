package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/prepwise/interviewd/internal/config"
	"github.com/prepwise/interviewd/internal/database"
	"github.com/prepwise/interviewd/internal/interview"
	"github.com/prepwise/interviewd/internal/migrations"
	"github.com/prepwise/interviewd/internal/scoring"
	"github.com/prepwise/interviewd/internal/server"
	"github.com/prepwise/interviewd/internal/session"
	"github.com/prepwise/interviewd/internal/sessioncache"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	// --- Session cache ---
	var cache sessioncache.Store
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		cache = sessioncache.NewRedis(rdb, cfg.SnapshotMaxAge)
		logger.Info("connected to redis")
	} else {
		cache = sessioncache.NewMemory()
		logger.Info("using in-memory session cache")
	}

	// --- Services ---
	if cfg.OpenAIKey == "" {
		logger.Warn("OPENAI_API_KEY not set; question generation and scoring will fail")
	}
	oracle := scoring.NewClient(cfg.OpenAIKey, cfg.OpenAIModel)

	store := interview.NewStore(db)
	svc := interview.NewService(store, oracle, logger, cfg.CompletionSlack)

	if err := server.SeedDemo(ctx, logger, store); err != nil {
		return fmt.Errorf("seeding demo data: %w", err)
	}

	broker := server.NewBroker()
	sessions := session.NewRegistry(svc, cache, broker, logger, session.Options{
		SnapshotMaxAge: cfg.SnapshotMaxAge,
	})

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		DB:       db,
		Store:    store,
		Service:  svc,
		Sessions: sessions,
		Cache:    cache,
		Broker:   broker,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		sessions.CloseAll()
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
