// Package server exposes the generation pipeline over HTTP.
//
// # Endpoints
//
//	GET  /healthz       liveness, build and library version
//	GET  /v1/targets    supported implementation targets
//	POST /v1/generate   generate shaders for a document sent in the body
//	POST /v1/validate   validate a document sent in the body
//
// Documents are always sent inline; the server never reads paths named by a
// request. Every response carries an X-Request-ID header, and failures are
// returned as {"id", "error": {"code", "message"}} with the HTTP status
// derived from the error code.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	srv := server.New(runner, server.Config{Addr: ":8080"})
//	err := srv.ListenAndServe(ctx)
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/mtlxgen/pkg/mtlx"
	"github.com/matzehuels/mtlxgen/pkg/observability"
	"github.com/matzehuels/mtlxgen/pkg/pipeline"
)

// Defaults applied by New.
const (
	DefaultAddr             = ":8080"
	DefaultMaxDocumentBytes = 4 << 20
	shutdownTimeout         = 10 * time.Second
)

// RequestIDHeader carries the request ID in requests and responses.
const RequestIDHeader = "X-Request-ID"

// Config configures the server.
type Config struct {
	// Addr is the listen address.
	Addr string

	// MaxDocumentBytes limits request bodies.
	MaxDocumentBytes int64

	// LibrarySearchPath and LibraryFolders select the node libraries every
	// request is generated against.
	LibrarySearchPath string
	LibraryFolders    []string

	// Defaults for requests that leave them empty.
	TargetColorSpace   string
	TargetDistanceUnit string

	Logger *log.Logger
}

// Server serves the generation API.
type Server struct {
	cfg    Config
	runner *pipeline.Runner
	router chi.Router
}

// New returns a server that runs requests through runner.
func New(runner *pipeline.Runner, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxDocumentBytes <= 0 {
		cfg.MaxDocumentBytes = DefaultMaxDocumentBytes
	}
	if cfg.LibrarySearchPath == "" {
		cfg.LibrarySearchPath = mtlx.BuiltinSearchPath
	}
	if cfg.Logger == nil {
		cfg.Logger = runner.Logger
	}
	s := &Server{cfg: cfg, runner: runner}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/targets", s.handleTargets)
		r.Post("/generate", s.handleGenerate)
		r.Post("/validate", s.handleValidate)
	})
	return r
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("serving", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.cfg.Logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

type ctxKey int

const requestIDKey ctxKey = 0

// requestID assigns each request an ID, keeping a well-formed incoming one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := RequestID(r.Context())
		observability.HTTP().OnRequest(r.Context(), id, r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), id, r.Method, r.URL.Path, status, duration)
		s.cfg.Logger.Info("request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", duration)
	})
}
