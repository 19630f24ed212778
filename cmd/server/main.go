package main

import (
	"club-backend/internal/api"
	"club-backend/internal/api/handlers"
	"club-backend/internal/app"
	"club-backend/internal/config"
	"club-backend/internal/logger"
	"club-backend/internal/repository/sqlstore"
	"club-backend/internal/service/llm"
	"club-backend/internal/telemetry"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Log.Debug("No .env file found, using process environment")
	}

	appConfig, err := config.LoadConfig()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}

	shutdownTelemetry, err := telemetry.Init(context.Background(), appConfig.Telemetry)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize telemetry")
	}

	// Initialize database
	store, err := sqlstore.New(appConfig.Database)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	completer, err := llm.NewCompletionClient(appConfig.Chatbot)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Log.Warn("No completion backend configured, replies will come from the club profile")
		completer = nil
	case err != nil:
		logger.Log.WithError(err).Fatal("Failed to create completion client")
	default:
		logger.Log.WithFields(logrus.Fields{
			"provider": completer.Name(),
			"model":    appConfig.Chatbot.Model,
		}).Info("Completion backend ready")
	}

	cfg := app.NewConfig(store, appConfig)
	router := api.NewRouter(cfg, handlers.NewChatHandlers(cfg, completer))

	port := appConfig.Server.Port
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.WithField("port", port).Info("Server starting")
		logger.Log.Infof("Health check: http://localhost:%s/api/health", port)
		logger.Log.Infof("Chat endpoint: http://localhost:%s/api/chatbot/chat", port)
		logger.Log.Infof("Chat websocket: ws://localhost:%s/api/chatbot/ws", port)
		logger.Log.Infof("Conversations endpoint: http://localhost:%s/api/chatbot/conversations", port)
		logger.Log.Infof("Club profile endpoint: http://localhost:%s/api/chatbot/club", port)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}
	if err := shutdownTelemetry(ctx); err != nil {
		logger.Log.WithError(err).Warn("Telemetry shutdown failed")
	}

	logger.Log.Info("Server exited")
}
