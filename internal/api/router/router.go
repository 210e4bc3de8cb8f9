package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mediconnect/assistant-platform/internal/conversation"
	httpmiddleware "github.com/mediconnect/assistant-platform/internal/http/middleware"
	"github.com/mediconnect/assistant-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *conversation.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ChatHandler != nil {
		r.Route("/chat", func(chat chi.Router) {
			chat.Post("/message", cfg.ChatHandler.Message)
			chat.Post("/document", cfg.ChatHandler.Document)
			chat.Route("/sessions/{sessionID}", func(session chi.Router) {
				session.Get("/history", cfg.ChatHandler.History)
				session.Delete("/", cfg.ChatHandler.ClearSession)
			})
		})
		r.Post("/knowledge/{corpusID}", cfg.ChatHandler.AddKnowledge)
	}

	return r
}
