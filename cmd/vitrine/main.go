package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/52poke/vitrine/internal/assets"
	"github.com/52poke/vitrine/internal/cache"
	"github.com/52poke/vitrine/internal/cep"
	"github.com/52poke/vitrine/internal/config"
	"github.com/52poke/vitrine/internal/http"
	"github.com/52poke/vitrine/internal/lang"
	"github.com/52poke/vitrine/internal/logging"
	"github.com/52poke/vitrine/internal/session"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.Development, cfg.LogPath, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := lang.Register(); err != nil {
		logger.Fatal("load locale catalogs", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, ready, closeBackend := newBackend(cfg, logger)
	defer closeBackend()
	store := cache.NewStore(backend, cache.WithTTL(cfg.SelectionTTL))

	assetStore, err := newAssetStore(ctx, cfg)
	if err != nil {
		logger.Fatal("configure assets", zap.Error(err))
	}

	cepClient := cep.NewClient(cfg.ViaCEPBaseURL, cfg.LookupTimeout)
	sessions := session.NewRegistry(cfg.SessionCookieName, cepClient, logger)
	sweeper, err := session.NewSweeper(sessions, cfg.SessionSweepSchedule, cfg.SessionIdleTimeout, logger)
	if err != nil {
		logger.Fatal("configure session sweeper", zap.Error(err))
	}
	sweeper.Start()

	handler := httpx.NewHandler(store, sessions, &assets.Handler{Store: assetStore, Logger: logger}, logger)
	handler.Ready = ready

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      httpx.WithRequestLog(logger, handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sweeper.Stop(shutdownCtx)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Bool("s3_assets", cfg.S3Configured()))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("serve", zap.Error(err))
	}
}

func newBackend(cfg config.Config, logger *zap.Logger) (cache.Backend, func(context.Context) error, func()) {
	if cfg.StoreBackend != config.BackendRedis {
		return cache.NewMemoryBackend(), nil, func() {}
	}
	client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	backend := cache.NewRedisBackend(client, cfg.RedisPrefix)
	backend.Retention = cfg.RedisRetention
	return backend, backend.Ping, func() {
		if err := client.Close(); err != nil {
			logger.Warn("close redis", zap.Error(err))
		}
	}
}

func newAssetStore(ctx context.Context, cfg config.Config) (assets.Store, error) {
	if !cfg.S3Configured() {
		return assets.NewDirStore(os.DirFS(cfg.AssetsDir)), nil
	}
	client, err := assets.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return assets.NewS3Store(cfg.S3Bucket, cfg.S3Prefix, client), nil
}
