package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/importfull/inventory-api/internal/config"
	"github.com/importfull/inventory-api/internal/database"
	"github.com/importfull/inventory-api/internal/filestore"
	"github.com/importfull/inventory-api/internal/handler"
	"github.com/importfull/inventory-api/internal/logger"
	"github.com/importfull/inventory-api/internal/notify"
	"github.com/importfull/inventory-api/internal/repository"
	"github.com/importfull/inventory-api/internal/router"
	"github.com/importfull/inventory-api/internal/service"
	"github.com/importfull/inventory-api/internal/settings"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log, err := logger.New(cfg.Env, cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	files, err := filestore.New(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	settingsStore := settings.New(files, cfg.Storage.SettingsFolder, log)
	settingsStore.Load(ctx)

	products := repository.NewProductRepo(db)
	competitors := repository.NewCompetitorRepo(db)
	users := repository.NewUserRepo(db)

	auth, err := service.NewAuthService(cfg, users, log)
	if err != nil {
		return err
	}
	if cfg.BreakGlass.Enabled() {
		log.Warn("break-glass identity is configured", zap.String("audit", "breakglass"), zap.String("username", cfg.BreakGlass.Username))
	}
	dispatcher := notify.NewDispatcher(cfg.Webhook, service.NewEventPublisher(cfg.RabbitURL, log), log)

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable, rate limit and response cache disabled")
	} else {
		defer rdb.Close()
	}

	e := router.New(router.Deps{
		Log:       log,
		Resolver:  auth,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),

		Auth:        handler.NewAuthHandler(auth, log),
		Products:    handler.NewProductHandler(products, dispatcher, log),
		Files:       handler.NewProductFilesHandler(products, files, cfg.Storage.RootFolder, log),
		Competitors: handler.NewCompetitorHandler(competitors, log),
		Metadata:    handler.NewMetadataHandler(products, log),
		Settings:    handler.NewSettingsHandler(settingsStore, log),
		Logo:        handler.NewLogoHandler(files, cfg.Storage.RootFolder, settingsStore, log),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
