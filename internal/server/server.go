// Package server exposes rendered artifacts, health, status and metrics
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"solana-sales-bot/internal/logging"
	"solana-sales-bot/internal/observability"
	"solana-sales-bot/internal/render"
)

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status            string            `json:"status"`
	Uptime            string            `json:"uptime"`
	Started           time.Time         `json:"started"`
	Feed              string            `json:"feed"`
	SecondaryMinPrice float64           `json:"secondary_min_price"`
	Channels          map[string]string `json:"channels"`
}

// Options configures the HTTP surface.
type Options struct {
	Addr string
	// StaticDir is served under /static/. Empty disables the route.
	StaticDir string
	// Status fills the /status response. Nil disables the route.
	Status func() StatusResponse
	Logger *logrus.Entry
}

// NewRouter builds the handler tree.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if opts.StaticDir != "" {
		r.Handle(render.StaticPrefix+"*", http.StripPrefix(render.StaticPrefix, http.FileServer(http.Dir(opts.StaticDir))))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.Handler())

	if opts.Status != nil {
		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(opts.Status())
		})
	}
	return r
}

// Server wraps http.Server with context-driven shutdown.
type Server struct {
	http *http.Server
	log  *logrus.Entry
}

// New creates a Server.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logging.WithComponent("server")
	}
	return &Server{
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           NewRouter(opts),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.http.Addr).Info("starting HTTP server")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}
