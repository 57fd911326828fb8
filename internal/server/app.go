// Package server assembles and runs the taskkeeper server: storage, cache,
// services, the HTTP API and the gRPC health endpoint.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/taskkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/taskkeeper/internal/dbx"
	"github.com/dmitrijs2005/taskkeeper/internal/logging"
	"github.com/dmitrijs2005/taskkeeper/internal/server/auth"
	"github.com/dmitrijs2005/taskkeeper/internal/server/cache"
	"github.com/dmitrijs2005/taskkeeper/internal/server/config"
	gs "github.com/dmitrijs2005/taskkeeper/internal/server/grpc"
	"github.com/dmitrijs2005/taskkeeper/internal/server/httpserver"
	"github.com/dmitrijs2005/taskkeeper/internal/server/password"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskkeeper/internal/server/services"
	"github.com/dmitrijs2005/taskkeeper/internal/tracing"
)

type App struct {
	config *config.Config
	logger logging.Logger

	db          *sql.DB
	rdb         *redis.Client
	stopTracing tracing.ShutdownFunc
	httpServer  *http.Server
	grpcServer  *gs.GRPCServer
}

// NewApp opens the database, applies migrations and wires every component.
// Any failure here is fatal for the process.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewJSONLogger(os.Stdout, level)

	stopTracing, err := tracing.Setup(ctx, "taskkeeper-server", buildinfo.Version, cfg.OtelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("tracing init error: %w", err)
	}

	db, err := dbx.Open(ctx, "pgx", cfg.DatabaseDSN, dbx.PoolOptions{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		_ = stopTracing(ctx)
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		_ = stopTracing(ctx)
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	var rdb *redis.Client
	var listCache cache.TaskListCache = cache.NopTaskListCache{}
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		// The cache is optional; an unreachable redis only costs cache misses.
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "redis unavailable, task cache degraded", "addr", cfg.RedisAddr, "error", err)
		}
		listCache = cache.NewRedisTaskListCache(rdb, cfg.TaskListCacheTTL)
	}

	app, err := assemble(cfg, logger, db, m, listCache)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = db.Close()
		_ = stopTracing(ctx)
		return nil, err
	}
	app.rdb = rdb
	app.stopTracing = stopTracing
	return app, nil
}

func assemble(cfg *config.Config, logger logging.Logger, db *sql.DB, m repomanager.RepositoryManager, c cache.TaskListCache) (*App, error) {
	hasher, err := password.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	issuer, err := auth.NewIssuer([]byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
	if err != nil {
		return nil, err
	}

	users := services.NewUserService(db, m, hasher, issuer, logger)
	tasks := services.NewTaskService(db, m, c, logger)

	api := httpserver.NewServer(users, tasks, issuer, db, logger, cfg.RequestTimeout)

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		httpServer: &http.Server{
			Addr:              cfg.EndpointAddrHTTP,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		grpcServer:  gs.NewGRPCServer(cfg.EndpointAddrGRPC, db, 10*time.Second, logger),
		stopTracing: func(context.Context) error { return nil },
	}, nil
}

// Run serves until ctx is cancelled, a termination signal arrives, or a
// server fails. Shutdown drains HTTP within ShutdownTimeout and then closes
// redis and the database.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	app.logger.Info(ctx, "Starting app...", "http", app.config.EndpointAddrHTTP, "grpc", app.config.EndpointAddrGRPC)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cancel(fmt.Errorf("http server: %w", err))
		}
	}()

	if app.config.EndpointAddrGRPC != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.grpcServer.Run(ctx); err != nil {
				cancel(fmt.Errorf("grpc server: %w", err))
			}
		}()
	}

	<-ctx.Done()
	runErr := context.Cause(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	app.logger.Info(context.Background(), "Stopping app...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancelShutdown()

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "http shutdown", "error", err)
	}
	wg.Wait()

	app.close(shutdownCtx)

	if runErr != nil {
		app.logger.Error(context.Background(), "app stopped with error", "error", runErr)
	}
	return runErr
}

func (app *App) close(ctx context.Context) {
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error(ctx, "redis close", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	if err := app.stopTracing(ctx); err != nil {
		app.logger.Error(ctx, "tracing shutdown", "error", err)
	}
}
