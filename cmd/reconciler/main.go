package main

import (
	"context"
	"log"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/shoplake/reconciler/api/handler"
	"github.com/shoplake/reconciler/internal/config"
	"github.com/shoplake/reconciler/internal/infrastructure/monitor"
	pgInfra "github.com/shoplake/reconciler/internal/infrastructure/postgres"
	redisInfra "github.com/shoplake/reconciler/internal/infrastructure/redis"
	"github.com/shoplake/reconciler/internal/router"
	"github.com/shoplake/reconciler/internal/services"
	"github.com/shoplake/reconciler/internal/services/lifecycle"
	"github.com/shoplake/reconciler/pkg/httpcontext"
	"github.com/shoplake/reconciler/pkg/logger"
	"github.com/shoplake/reconciler/repository"
	boltRepo "github.com/shoplake/reconciler/repository/bolt"
	pgRepo "github.com/shoplake/reconciler/repository/postgres"
	redisRepo "github.com/shoplake/reconciler/repository/redis"
	"github.com/shoplake/reconciler/usecase/aggregate"
	"github.com/shoplake/reconciler/usecase/audit"
	"github.com/shoplake/reconciler/usecase/ingest"
	"github.com/shoplake/reconciler/usecase/transform"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Warehouse, zapLogger)
	if err != nil {
		zapLogger.Fatal("warehouse connection failed", zap.Error(err))
	}
	manager.Register("warehouse", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	// The identity cache is advisory; a missing Redis degrades to extra
	// no-op warehouse writes instead of blocking startup.
	var identityCache repository.IdentityCache
	var redisClient *redislib.Client
	if cfg.Redis.Enabled {
		redisClient, err = redisInfra.NewClient(cfg.Redis)
		if err != nil {
			zapLogger.Warn("redis unavailable, continuing without identity cache", zap.Error(err))
			redisClient = nil
		} else {
			manager.Register("redis", func(ctx context.Context) error {
				return redisClient.Close()
			})
			identityCache = redisRepo.NewIdentityCache(redisClient, cfg.Redis.CacheTTL)
		}
	}

	rawStore, err := boltRepo.Open(cfg.RawStore.Path, cfg.RawStore.Bucket)
	if err != nil {
		zapLogger.Fatal("failed to open raw event store", zap.Error(err))
	}
	manager.Register("raw_store", func(ctx context.Context) error {
		return rawStore.Close()
	})

	mon := monitor.New(pool, redisClient, rawStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	factRepo := pgRepo.NewFactRepository(pool)
	aggRepo := pgRepo.NewAggregateRepository(pool)
	dimRepo := pgRepo.NewDimensionRepository(pool)

	if cfg.Ingest.BootstrapOnStart {
		bootstrap := ingest.NewBootstrap(rawStore, cfg.Ingest.BootstrapDir, zapLogger)
		if stats, err := bootstrap.Run(appCtx); err != nil {
			zapLogger.Error("historical bootstrap failed", zap.Error(err))
		} else {
			zapLogger.Info("historical bootstrap complete",
				zap.Int("inserted", stats.Inserted),
				zap.Int("updated", stats.Updated))
		}
	}

	pipeline := services.NewPipeline(
		rawStore,
		transform.NewNormalizer(cfg.Pipeline.UnknownVendor, zapLogger),
		transform.NewProjector(factRepo, identityCache, zapLogger),
		audit.New(audit.Config{
			LateArrivalDays:  cfg.Pipeline.LateArrivalDays,
			ExtendedLateDays: cfg.Pipeline.ExtendedLateDays,
		}, zapLogger),
		aggregate.NewService(factRepo, aggRepo, zapLogger),
		aggregate.NewDimensions(dimRepo, cfg.Pipeline.DimensionStartYear, cfg.Pipeline.DimensionEndYear, zapLogger),
		ingest.NewLive(rawStore, cfg.Ingest.LiveDir, zapLogger),
		services.NewReportWriter(cfg.Pipeline.ReportDir, zapLogger),
		mon,
		zapLogger,
		services.PipelineConfig{
			Schedule:   cfg.Pipeline.Schedule,
			RunTimeout: cfg.Pipeline.RunTimeout,
		},
	)
	pipeline.Start()
	manager.Register("pipeline", func(ctx context.Context) error {
		pipeline.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Health:   apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
		Pipeline: apiHandler.NewPipelineHandler(pipeline, ctxAdapter, zapLogger),
		Quality:  apiHandler.NewQualityHandler(pipeline, ctxAdapter, zapLogger),
	}

	r := router.New(handlers)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
