package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfantasy/vgp/internal/middleware"
	"github.com/bitfantasy/vgp/internal/vgp/handler"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "Run AutoMigrate before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info("Starting vgp service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	if autoMigrate {
		if err := migrate(a.db); err != nil {
			return err
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(cmd.Context()).Err(); err != nil {
			a.logger.Warn("Redis ping failed, submissions will fail until it is reachable", zap.Error(err))
		}
	}
	if a.cfg.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required (JWT_SECRET)")
	}

	// 设置Gin模式
	if a.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.CORS())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	handlers := handler.NewHandlers(a.svc, a.repos, a.metrics)
	handler.RegisterRoutes(router, handlers, a.cfg.JWT.Secret)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Server starting", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("start server: %w", err)
	}

	a.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Error("Server forced to shutdown", zap.Error(err))
	}

	a.logger.Info("Server exited")
	return nil
}
