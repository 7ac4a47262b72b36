// Package server exposes the active rule over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/ezachrisen/gavel"
	"github.com/ezachrisen/gavel/internal/config"
	"github.com/ezachrisen/gavel/internal/logging"
	"github.com/ezachrisen/gavel/internal/metrics"
	"github.com/ezachrisen/gavel/internal/record"
	"github.com/gobuffalo/plush"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
)

// Server serves the rule service routes for one Vault.
type Server struct {
	vault   *gavel.Vault
	cfg     config.ServerConfig
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	// path the metrics are served on; empty if metrics are disabled
	metricsPath string

	records record.Decoder
	parsers fastjson.ParserPool
	page    *plush.Template
	now     func() time.Time
}

// Option configures a Server.
type Option func(s *Server)

// WithConfig sets the listener, timeouts and middleware configuration.
func WithConfig(cfg config.ServerConfig) Option {
	return func(s *Server) {
		s.cfg = cfg
	}
}

// WithLogger sets the logger. Default: a logger that discards everything.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithMetrics records metrics in m and serves them on path.
func WithMetrics(m *metrics.Metrics, path string) Option {
	return func(s *Server) {
		s.metrics = m
		s.metricsPath = path
	}
}

// WithClock sets the function used to show how long ago the rule was compiled.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a Server for the vault.
func New(v *gavel.Vault, opts ...Option) (*Server, error) {
	page, err := plush.NewTemplate(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}

	s := &Server{
		vault: v,
		cfg:   config.Default().Server,
		log:   logging.Discard(),
		page:  page,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Compile compiles text and makes it the active rule. source describes where
// the text came from, for the log.
func (s *Server) Compile(text, source string) (*gavel.Rule, error) {
	r, err := s.vault.Compile(text)
	code := "ok"
	if err != nil {
		code = errorCode(err)
	}
	s.metrics.ObserveCompilation(code)

	if err != nil {
		s.log.WithFields(logrus.Fields{
			"source": source,
			"error":  err.Error(),
		}).Warn("rule rejected")
		return nil, err
	}

	s.metrics.SetActiveRule(r.ID)
	s.log.WithFields(logrus.Fields{
		"source":    source,
		"rule_id":   r.ID,
		"canonical": r.Canonical(),
	}).Info("rule compiled")
	return r, nil
}

// Handler returns the routes wrapped in the configured middleware.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/", s.handleIndex)
	router.POST("/create_rule", s.handleCreateRule)
	router.POST("/evaluate_rule", s.handleEvaluateRule)
	router.GET("/rule", s.handleGetRule)
	router.GET("/healthz", s.handleHealth)
	if s.metrics != nil && s.metricsPath != "" {
		router.Handler(http.MethodGet, s.metricsPath, s.metrics.Handler())
	}

	var h http.Handler = router
	if s.cfg.CORS.Enabled {
		c := cors.New(cors.Options{
			AllowedOrigins: s.cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"},
			MaxAge:         s.cfg.CORS.MaxAge,
		})
		h = c.Handler(h)
	}
	if s.cfg.Gzip {
		h = gziphandler.GzipHandler(h)
	}
	return h
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is like Run but accepts connections on ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("address", ln.Addr().String()).Info("server starting")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server quit: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
