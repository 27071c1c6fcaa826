package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hiqiancheng/PoliPlay/internal/app"
	"github.com/hiqiancheng/PoliPlay/internal/config"
	"github.com/hiqiancheng/PoliPlay/internal/handler"
	"github.com/hiqiancheng/PoliPlay/internal/logger"
	"github.com/hiqiancheng/PoliPlay/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("Starting PoliPlay server...")

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg.CORS.AllowOrigins))

	router.GET("/health", handler.HealthCheck(a.DB))
	handler.RegisterRoutes(router, handler.NewPolicyHandler(a.Service, log))

	if cfg.Export.Provider == config.ExportDocx {
		router.Static("/exports", cfg.Export.Docx.Dir)
	}

	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("PoliPlay server is running",
		zap.String("address", serverAddr),
		zap.String("database", cfg.Database.Type),
		zap.String("export", cfg.Export.Provider),
		zap.Any("providers", a.ProvidersInfo()))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
