package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"shortlink/auth"
	"shortlink/cache"
	"shortlink/config"
	"shortlink/database"
	"shortlink/handlers"
	"shortlink/reaper"
	"shortlink/services"
	"shortlink/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and the expiry reaper",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		db, err := database.Connect(cfg, logger)
		if err != nil {
			return err
		}
		if cfg.Database.Driver == "postgres" {
			if err := database.Migrate(cfg.MigrateURL()); err != nil {
				return err
			}
		}

		var linkCache cache.LinkCache
		if cfg.Redis.Enabled {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err := client.Ping(cmd.Context()).Err(); err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer client.Close()
			linkCache = cache.NewRedisCache(client, logger)
			logger.Info("redis cache enabled", "addr", cfg.Redis.Addr)
		} else {
			linkCache = cache.NewMemoryCache(cfg.Redis.LocalCapacity)
			logger.Info("in-process cache enabled", "capacity", cfg.Redis.LocalCapacity)
		}

		linkStore := storage.NewLinkStore(db)
		userStore := storage.NewUserStore(db)
		tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		linkService := services.NewLinkService(linkStore, linkCache, logger).
			WithCodeLength(cfg.Links.CodeLength).
			WithDefaultTTL(time.Duration(cfg.Links.DefaultTTLDays) * 24 * time.Hour).
			WithCacheTTL(cfg.Redis.TTL)

		reapCtx, stopReaper := context.WithCancel(context.Background())
		defer stopReaper()
		go reaper.New(linkStore, cfg.Reaper.Interval, logger).Run(reapCtx)

		if cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		router := gin.New()
		router.Use(gin.Recovery())
		handlers.SetupRoutes(router, linkService, userStore, tokens)

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server starting", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case sig := <-shutdown:
			logger.Info("shutdown signal received", "signal", sig.String())
			stopReaper()

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown failed", "error", err)
				_ = srv.Close()
			}
		}

		logger.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
