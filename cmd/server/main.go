package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/d60-Lab/columnfeed/config"
	"github.com/d60-Lab/columnfeed/internal/api/handler"
	"github.com/d60-Lab/columnfeed/internal/cache"
	"github.com/d60-Lab/columnfeed/internal/feed"
	"github.com/d60-Lab/columnfeed/internal/model"
	"github.com/d60-Lab/columnfeed/internal/repository"
	"github.com/d60-Lab/columnfeed/internal/service"
	"github.com/d60-Lab/columnfeed/internal/store"
	"github.com/d60-Lab/columnfeed/pkg/logger"
	"github.com/d60-Lab/columnfeed/pkg/tracing"
)

const serviceName = "columnfeed"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.Tracing.Endpoint)
	if err != nil {
		logger.Error("tracing init failed", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		logger.Error("postgres connect failed", zap.Error(err))
		os.Exit(1)
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.UserProfile{},
		&model.Follow{},
		&model.Muting{},
		&model.RenoteMuting{},
		&model.Blocking{},
		&model.Channel{},
		&model.ChannelFollowing{},
	); err != nil {
		logger.Error("postgres migrate failed", zap.Error(err))
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("redis connect failed", zap.Error(err))
		os.Exit(1)
	}

	st, err := openStore(ctx, cfg.Scylla)
	if err != nil {
		logger.Error("store init failed", zap.Error(err))
		os.Exit(1)
	}

	repo := repository.NewRelationRepository(db)
	relations := cache.NewRelations(rdb, repo, cfg.Cache.TTL)
	engine := feed.NewEngine(st, cfg.Feed.QueryLimit, cfg.Feed.MaxPartitions)

	noteService := service.NewNoteService(st, relations.LocalFollowers)
	notificationService := service.NewNotificationService(st, engine)
	h := handler.NewHandler(
		service.NewFeedService(engine, relations),
		noteService,
		service.NewRelationshipService(repo, relations),
		notificationService,
		service.NewReactionService(st, noteService, notificationService),
		service.NewCountService(st, rdb),
	)
	router := handler.NewRouter(h, serviceName, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}

// openStore connects to the configured Scylla cluster, or falls back to
// the in-memory store when no hosts are configured.
func openStore(ctx context.Context, cfg config.ScyllaConfig) (store.Store, error) {
	if len(cfg.Hosts) == 0 {
		logger.Warn("no scylla hosts configured, using in-memory store")
		return store.NewMemory(), nil
	}
	consistency := gocql.LocalQuorum
	if cfg.Consistency != "" {
		if err := consistency.UnmarshalText([]byte(strings.ToUpper(cfg.Consistency))); err != nil {
			return nil, err
		}
	}
	sc, err := store.NewScylla(store.ScyllaConfig{
		Hosts:       cfg.Hosts,
		Keyspace:    cfg.Keyspace,
		LocalDC:     cfg.LocalDC,
		Timeout:     cfg.Timeout,
		Consistency: consistency,
	})
	if err != nil {
		return nil, err
	}
	if err := sc.Migrate(ctx); err != nil {
		return nil, err
	}
	return sc, nil
}
