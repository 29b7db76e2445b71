// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	applog "pluck/internal/log"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// WindowResponse is the body of GET /api/window.
type WindowResponse struct {
	Samples []float64 `json:"samples"`
}

// PluckResponse is the body of POST /api/pluck.
type PluckResponse struct {
	Key      string `json:"key"`
	Accepted bool   `json:"accepted"`
}

// NewRouter mounts the WebSocket hub, metrics, health and the small JSON
// API on a chi router.
func NewRouter(hub *Hub, window WindowSource, plucker Plucker) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	if hub != nil {
		r.Handle("/ws", hub)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/window", windowHandler(window))
		r.Post("/pluck", pluckHandler(plucker))
	})
	return r
}

func windowHandler(window WindowSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		samples := make([]float64, window.Size())
		n := window.SnapshotInto(samples)
		writeJSON(w, http.StatusOK, WindowResponse{Samples: samples[:n]})
	}
}

func pluckHandler(plucker Plucker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		if key == "" {
			var msg Message
			if err := json.NewDecoder(r.Body).Decode(&msg); err == nil {
				key = msg.Key
			}
		}
		k, size := utf8.DecodeRuneInString(key)
		if size == 0 || k == utf8.RuneError {
			http.Error(w, `{"error":"missing key"}`, http.StatusBadRequest)
			return
		}
		if !plucker.Push(k) {
			writeJSON(w, http.StatusServiceUnavailable, PluckResponse{Key: string(k), Accepted: false})
			return
		}
		writeJSON(w, http.StatusAccepted, PluckResponse{Key: string(k), Accepted: true})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.Debugf("HTTP: Error encoding response: %v", err)
	}
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		applog.Debugf("HTTP: %s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

// Server runs the router until its context is cancelled.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run listens on the configured address and shuts down gracefully when ctx
// is done. It returns nil after a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		applog.Infof("HTTP: Listening on %s", ln.Addr())
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	applog.Infof("HTTP: Server stopped")
	return nil
}
