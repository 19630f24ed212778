package api

import (
	"club-backend/internal/api/handlers"
	"club-backend/internal/app"
	"club-backend/internal/auth"
	"club-backend/internal/logger"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the chatbot API under /api/chatbot plus the health check
func NewRouter(config *app.Config, chatHandlers *handlers.ChatHandlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS(config.AppConfig.Server.AllowedOrigins))

	r.Get("/api/health", handlers.HealthHandler)

	r.Route("/api/chatbot", func(r chi.Router) {
		r.Use(auth.Middleware(config.AppConfig.Auth.JWTSecret))

		// the socket outlives any per-request deadline
		r.Get("/ws", chatHandlers.ChatSocketHandler)

		r.Group(func(r chi.Router) {
			if timeout := config.AppConfig.Server.RequestTimeout; timeout > 0 {
				r.Use(middleware.Timeout(timeout))
			}

			r.Get("/club", chatHandlers.ClubHandler)
			r.Post("/chat", chatHandlers.ChatHandler)
			r.Get("/conversations", chatHandlers.GetConversationsHandler)
			r.Post("/conversations", chatHandlers.CreateConversationHandler)
			r.Get("/conversations/{id}", chatHandlers.GetConversationHandler)
			r.Delete("/conversations/{id}", chatHandlers.DeleteConversationHandler)
			r.Get("/conversations/{id}/messages", chatHandlers.GetConversationMessagesHandler)
		})
	})

	return r
}

// enableCORS answers preflight requests and echoes allowed origins
func enableCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logger.Log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
			}).Info("HTTP request")
		}()
		next.ServeHTTP(ww, r)
	})
}
