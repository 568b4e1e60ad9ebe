package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/shipops/api/handler"
	"github.com/fastygo/shipops/internal/config"
	"github.com/fastygo/shipops/internal/infrastructure/buffer"
	"github.com/fastygo/shipops/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/shipops/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/shipops/internal/infrastructure/redis"
	"github.com/fastygo/shipops/internal/metrics"
	"github.com/fastygo/shipops/internal/middleware"
	"github.com/fastygo/shipops/internal/router"
	"github.com/fastygo/shipops/internal/services"
	"github.com/fastygo/shipops/internal/services/lifecycle"
	"github.com/fastygo/shipops/pkg/httpcontext"
	"github.com/fastygo/shipops/repository"
	"github.com/fastygo/shipops/repository/postgres"
	redisRepo "github.com/fastygo/shipops/repository/redis"
	auditUC "github.com/fastygo/shipops/usecase/audit"
	taskUC "github.com/fastygo/shipops/usecase/task"
	transportUC "github.com/fastygo/shipops/usecase/transport"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLogger, err := bootstrap()
			if err != nil {
				return err
			}
			defer zapLogger.Sync()
			return serve(cmd.Context(), cfg, zapLogger)
		},
	}
}

func serve(parent context.Context, cfg *config.Config, zapLogger *zap.Logger) error {
	manager := lifecycle.New(parent, cfg.Context.ShutdownTimeout, zapLogger)
	appCtx := manager.Context()

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Error("migrations failed", zap.Error(err))
		return err
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Error("postgres connection failed", zap.Error(err))
		return err
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	var (
		locker     repository.TaskLocker
		redisCheck monitor.Check
	)
	if cfg.Transport.LockEnabled {
		redisClient, err := redisInfra.NewClient(cfg.Redis)
		if err != nil {
			zapLogger.Warn("redis unavailable, task locking disabled", zap.Error(err))
		} else {
			locker = redisRepo.NewTaskLocker(redisClient, cfg.Transport.LockTTL, cfg.Transport.LockWait)
			redisCheck = redisInfra.Ping(redisClient)
			manager.Register("redis", func(ctx context.Context) error {
				return redisClient.Close()
			})
		}
	}

	bufferStore, err := buffer.Open(cfg.Buffer.Path, "buffer")
	if err != nil {
		zapLogger.Error("failed to open buffer store", zap.Error(err))
		manager.Shutdown(context.Background())
		return err
	}
	manager.Register("buffer", func(ctx context.Context) error {
		return bufferStore.Close()
	})

	mon := monitor.New(pool.Ping, redisCheck, bufferStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	userRepo := postgres.NewUserRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)

	bufferProcessor := services.NewBufferProcessor(
		bufferStore,
		mon,
		taskRepo,
		auditRepo,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Buffer.SyncInterval,
			BatchSize:  cfg.Buffer.BatchSize,
			MaxRetries: cfg.Buffer.MaxRetry,
			Retention:  cfg.Buffer.Retention(),
		},
	)
	bufferProcessor.Start()
	manager.Register("buffer_processor", func(ctx context.Context) error {
		bufferProcessor.Stop(ctx)
		return nil
	})

	bufferBridge := services.NewBufferBridge(bufferProcessor)

	appMetrics := metrics.New(func() float64 {
		return float64(bufferProcessor.Size())
	})

	auditUseCase := auditUC.New(auditRepo, bufferBridge, zapLogger)
	taskUseCase := taskUC.New(taskRepo, bufferBridge, zapLogger)
	transportUseCase := transportUC.New(taskRepo, auditUseCase, locker, appMetrics, zapLogger, transportUC.Config{
		MaxRetries: cfg.Transport.MaxRetries,
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Task:   apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Leg:    apiHandler.NewLegHandler(transportUseCase, userRepo, ctxAdapter, zapLogger),
		Audit:  apiHandler.NewAuditHandler(auditUseCase, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}
	if cfg.HTTP.EnableMetrics {
		handlers.Metrics = appMetrics.Handler()
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	manager.Go("http_server", func() error {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	if err := manager.Wait(); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
		return err
	}
	return nil
}
