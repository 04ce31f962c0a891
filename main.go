package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storyboard-server/config"
	"storyboard-server/logger"
	"storyboard-server/models"
	"storyboard-server/routers"
	"storyboard-server/routers/api"
	"storyboard-server/service"
	"storyboard-server/storyboard"
	"storyboard-server/tracing"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	db, err := models.OpenDB(cfg.MySQL.DSN)
	if err != nil {
		return err
	}
	if err := models.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("database initialized")

	queue := service.NewQueue(cfg.Redis, log)
	defer queue.Close()
	log.Info("queue initialized", zap.String("redis", cfg.Redis.Addr))

	gen, err := newGenerator(cfg, log)
	if err != nil {
		return err
	}

	store := models.NewProjectStore(db, log)
	shots := service.NewProjectShots(store)
	opts := []service.BatchOption{service.WithDelay(time.Duration(cfg.Generation.BatchDelayMS) * time.Millisecond)}
	if cfg.Generation.Mirror {
		media, err := service.NewMediaStore(cfg.MinIO, log)
		if err != nil {
			return err
		}
		if err := media.EnsureBucket(ctx); err != nil {
			return err
		}
		opts = append(opts, service.WithMirror(media))
		log.Info("minio initialized", zap.String("bucket", cfg.MinIO.Bucket))
	}
	runner := service.NewBatchRunner(gen, shots, log, opts...)

	processor := service.NewProcessor(db, store, runner, log)
	if err := processor.Start(cfg.Redis, cfg.Generation.Concurrency); err != nil {
		return fmt.Errorf("start processor: %w", err)
	}

	assemblerOpts := []storyboard.Option{storyboard.WithLogger(log.Named("assembler"))}
	if cfg.Generation.Seed != 0 {
		assemblerOpts = append(assemblerOpts, storyboard.WithSeed(cfg.Generation.Seed))
	}
	svc := service.NewStoryboardService(store, shots, db, queue,
		storyboard.NewAssembler(assemblerOpts...), log,
		service.WithMirroring(cfg.Generation.Mirror))

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           routers.InitRouter(api.NewHandler(svc, log), cfg.Server, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		processor.Shutdown()
		if tErr := shutdownTracing(shutdownCtx); tErr != nil {
			log.Warn("tracing shutdown failed", zap.Error(tErr))
		}
		return err
	})
	return g.Wait()
}

func newGenerator(cfg *config.Config, log *zap.Logger) (service.Generator, error) {
	switch cfg.Generation.Provider {
	case "mock":
		return service.NewMockProvider(
			time.Duration(cfg.Generation.ImageDelayMS)*time.Millisecond,
			time.Duration(cfg.Generation.VideoDelayMS)*time.Millisecond,
		), nil
	case "worker":
		return service.NewWorkerProvider(
			cfg.Worker.Addr,
			time.Duration(cfg.Worker.PollIntervalMS)*time.Millisecond,
			time.Duration(cfg.Worker.TimeoutSec)*time.Second,
			log,
		), nil
	}
	return nil, fmt.Errorf("unknown generation provider %q", cfg.Generation.Provider)
}
