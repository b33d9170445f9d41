package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/voxbridge/server/adapters/stt"
	"github.com/voxbridge/server/adapters/translation"
	"github.com/voxbridge/server/internal/api"
	"github.com/voxbridge/server/internal/rooms"
	"github.com/voxbridge/server/internal/websocket"
	"github.com/voxbridge/server/usecase"
)

func main() {
	godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Collaborator adapters, selected from the environment.
	speechToText := stt.NewFromEnv(logger)
	translator := translation.NewFromEnv(logger)

	// Core components: registry and hub first, then the broadcaster that
	// sends through the hub, then the recognition flows on top.
	registry := rooms.NewRegistry()
	hub := websocket.NewHub(registry, logger)
	broadcaster := rooms.NewBroadcaster(registry, hub, logger)

	fanout := usecase.NewTranslationFanout(translator, logger)
	realtime := usecase.NewRealtimeService(speechToText, fanout, broadcaster, logger)
	discrete := usecase.NewDiscreteService(speechToText, fanout, broadcaster, logger)
	hub.SetServices(realtime, discrete)

	monitor := websocket.NewConnectionMonitor(hub, logger)
	monitor.Start()
	defer monitor.Stop()

	api.InitRoutes(e, hub, speechToText, translator, logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("VoxBridge server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
