// Package server exposes the orchestration engine over HTTP. Streaming
// queries use newline-delimited JSON rather than SSE so plain HTTP
// clients can consume them.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okabe/vidql/internal/engine"
	"github.com/okabe/vidql/internal/library"
	"github.com/okabe/vidql/internal/logging"
	"github.com/okabe/vidql/internal/metrics"
)

// Server provides the HTTP API for vidql.
type Server struct {
	engine  *engine.Engine
	library *library.Library
	mux     *http.ServeMux
	addr    string
	log     *logging.Logger
}

func New(eng *engine.Engine, lib *library.Library, addr string) *Server {
	s := &Server{
		engine:  eng,
		library: lib,
		mux:     http.NewServeMux(),
		addr:    addr,
		log:     logging.New("server"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /query", s.handleQuery)
	s.mux.HandleFunc("POST /stream", s.handleStream)
	s.mux.HandleFunc("GET /history", s.handleHistory)
	s.mux.HandleFunc("POST /report", s.handleReport)
	s.mux.HandleFunc("GET /sessions", s.handleSessions)
	s.mux.HandleFunc("GET /videos", s.handleVideos)
	s.mux.HandleFunc("GET /metrics", metrics.Global().Handler())
}

// Middleware for CORS
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Middleware for JSON content type
func JSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Recovery turns handler panics into 500s instead of dropped
// connections.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := logging.NewRecoveryHandler("server")
		err := rec.WrapError(func() error {
			next.ServeHTTP(w, r)
			return nil
		})
		if err != nil {
			http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		}
	})
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return CORS(JSON(Recovery(s.mux)))
}

// Serve starts the server and shuts down gracefully when ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("listening", map[string]interface{}{"addr": s.addr})
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
