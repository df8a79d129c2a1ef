package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/mmhlko/post-feed/internal/config"
	"github.com/mmhlko/post-feed/internal/db"
	"github.com/mmhlko/post-feed/internal/handler"
	"github.com/mmhlko/post-feed/internal/logging"
	"github.com/mmhlko/post-feed/internal/service"
	"github.com/mmhlko/post-feed/internal/storage"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.Server.LogLevel, cfg.Server.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	gin.SetMode(gin.ReleaseMode)

	tokens, err := service.NewTokenServiceFromConfig(cfg.Auth)
	if err != nil {
		return err
	}
	cookie, err := handler.NewCookieConfig(cfg.Auth, tokens.RefreshTTL())
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	slots, closeSlots, err := openRefreshSlots(ctx, cfg, store, tokens, logger)
	if err != nil {
		return err
	}
	defer closeSlots()

	files, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}

	routerCfg := handler.RouterConfig{
		Auth:        service.NewAuthService(store, slots, tokens, logger),
		Profiles:    service.NewProfileService(store, files, logger),
		Posts:       service.NewPostService(store, files, logger),
		Cookie:      cookie,
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	if disk, ok := files.(*storage.Disk); ok {
		routerCfg.UploadsDir = disk.Dir()
		routerCfg.UploadsPrefix = disk.PublicPrefix()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.NewRouter(routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (db.Store, func(), error) {
	if strings.EqualFold(cfg.Driver, "memory") {
		logger.Warn("using in-memory store, data is lost on restart")
		return db.NewMemory(), func() {}, nil
	}

	pool, err := db.NewPostgresPool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect postgres: %w", err)
	}
	pg := &db.Postgres{Pool: pool}
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return pg, pool.Close, nil
}

func openRefreshSlots(ctx context.Context, cfg config.Config, store db.Store, tokens *service.TokenService, logger *slog.Logger) (db.RefreshSlots, func(), error) {
	switch strings.ToLower(cfg.Auth.RefreshStore) {
	case "", "postgres":
		return store, func() {}, nil
	case "redis":
		client, err := db.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		logger.Info("refresh slots stored in redis", "addr", cfg.Redis.Addr)
		closeFn := func() { _ = client.Close() }
		return db.NewRedisRefreshStore(client, cfg.Redis.Prefix, tokens.RefreshTTL()), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown refresh store %q", cfg.Auth.RefreshStore)
	}
}
