// Package api exposes the webhook ingestion HTTP surface.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/config"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/pkg/httputil"
)

// Server is the webhook ingestion HTTP server.
type Server struct {
	handler http.Handler
	server  *http.Server
}

// NewServer wires the router around the webhook handler.
func NewServer(cfg config.ServerConfig, webhook *WebhookHandler) *Server {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Signature", "X-Signing-Cert-Url"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth)

	r.Post("/webhook", webhook.Receive)
	r.Get("/webhook/stats", webhook.Stats)
	r.Get("/webhook/deadletters", webhook.DeadLetters)

	return &Server{handler: r}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
