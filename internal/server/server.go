package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"LMPSentinel/internal/model"
)

// Server exposes metrics, health and the latest report over HTTP.
type Server struct {
	srv     *http.Server
	log     zerolog.Logger
	started time.Time

	mu     sync.RWMutex
	latest *model.Report
}

// New builds the router. gatherer backs /metrics.
func New(addr string, gatherer prometheus.Gatherer, log zerolog.Logger) *Server {
	s := &Server{log: log, started: time.Now()}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/report/flags", s.handleFlags).Methods(http.MethodGet)
	r.Path("/metrics").Handler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.srv = &http.Server{
		Addr:           addr,
		Handler:        r,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Publish replaces the report served by /report.
func (s *Server) Publish(r *model.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = r
}

func (s *Server) report() *model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		s.log.Info().Str("addr", s.srv.Addr).Msg("http server starting")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("http server failed")
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}
	if r := s.report(); r != nil {
		body["last_run"] = r.GeneratedAt
		body["last_flags"] = len(r.Flags)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	r := s.report()
	if r == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report yet"})
		return
	}
	writeJSON(w, http.StatusOK, r)
}

func (s *Server) handleFlags(w http.ResponseWriter, _ *http.Request) {
	r := s.report()
	if r == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report yet"})
		return
	}
	writeJSON(w, http.StatusOK, r.Flags)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
