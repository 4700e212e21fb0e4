// Package server wires the ugcreel HTTP surface onto a chi router.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/3leaps/ugcreel/internal/errors"
	"github.com/3leaps/ugcreel/internal/observability"
	"github.com/3leaps/ugcreel/internal/server/handlers"
	"github.com/3leaps/ugcreel/internal/server/middleware"
	"github.com/3leaps/ugcreel/pkg/compose"
	"github.com/3leaps/ugcreel/pkg/job"
)

// Server is the HTTP server.
type Server struct {
	host   string
	port   int
	router chi.Router
	http   *http.Server
	opts   options
}

type options struct {
	runner         compose.Runner
	composeTimeout time.Duration
	hooks          handlers.HookGenerator
	store          job.Store
	version        handlers.VersionInfo
	logger         *zap.Logger
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
}

// Option configures a Server.
type Option func(*options)

// WithComposer mounts POST /functions/combine-videos. timeout bounds each run.
func WithComposer(runner compose.Runner, timeout time.Duration) Option {
	return func(o *options) {
		o.runner = runner
		o.composeTimeout = timeout
	}
}

// WithHookGenerator mounts POST /functions/generate-hook.
func WithHookGenerator(gen handlers.HookGenerator) Option {
	return func(o *options) { o.hooks = gen }
}

// WithJobStore mounts the /v1/videos API.
func WithJobStore(store job.Store) Option {
	return func(o *options) { o.store = store }
}

// WithVersion sets the /version payload.
func WithVersion(info handlers.VersionInfo) Option {
	return func(o *options) { o.version = info }
}

// WithLogger overrides observability.ServerLogger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.logger = log }
}

// WithTimeouts sets http.Server read, write and idle timeouts.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(o *options) {
		o.readTimeout = read
		o.writeTimeout = write
		o.idleTimeout = idle
	}
}

// New builds a server listening on host:port. Endpoints whose collaborators
// are not configured are not mounted.
func New(host string, port int, opts ...Option) *Server {
	o := options{
		version:     handlers.VersionInfo{Version: "dev"},
		readTimeout: 30 * time.Second,
		idleTimeout: 120 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = observability.ServerLogger
	}

	s := &Server{host: host, port: port, opts: o}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           s.router,
		ReadTimeout:       o.readTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      o.writeTimeout,
		IdleTimeout:       o.idleTimeout,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)
	r.Use(middleware.RequestLogger(s.opts.logger))
	r.Use(middleware.Recovery)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apperrors.RespondWithError(w, r, apperrors.New(http.StatusNotFound, apperrors.CodeNotFound,
			fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apperrors.RespondWithError(w, r, apperrors.New(http.StatusMethodNotAllowed, apperrors.CodeMethodNotAllowed,
			fmt.Sprintf("method %s not allowed for %s", r.Method, r.URL.Path)))
	})

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", handlers.VersionHandler(s.opts.version))

	if s.opts.runner != nil {
		r.Method(http.MethodPost, "/functions/combine-videos",
			handlers.NewCombineVideosHandler(s.opts.runner, s.opts.composeTimeout, s.opts.logger))
	}
	if s.opts.hooks != nil {
		r.Method(http.MethodPost, "/functions/generate-hook",
			handlers.NewGenerateHookHandler(s.opts.hooks, s.opts.logger))
	}

	if s.opts.store != nil {
		r.Route("/v1/videos", handlers.NewVideosHandler(s.opts.store, s.opts.logger).Routes)
	}
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.opts.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// ListenAndServe listens on Addr and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ln)
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.opts.logger.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
