// Package server exposes the converter over HTTP.
//
// POST /api/convert accepts a multipart upload in the "file" field and an
// optional "width" field. curl clients receive ANSI text; everyone else
// receives {"ascii": "<structured encoding>"}. GET /api/convert hands curl
// clients a shell script that picks a local file and posts it back.
package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/asciidraw/ascii"
	"github.com/nvr-ai/asciidraw/cache"
	"github.com/nvr-ai/asciidraw/config"
	"github.com/nvr-ai/asciidraw/profiler"
)

// Server wires validation, conversion and caching behind HTTP handlers.
type Server struct {
	cfg       *config.Config
	validator *ascii.Validator
	converter *ascii.Converter
	cache     *cache.Cache
	prof      *profiler.Profiler
	mux       *http.ServeMux
}

// New builds a server from cfg. prof may be nil.
func New(cfg *config.Config, prof *profiler.Profiler) *Server {
	conv := ascii.NewConverter(ascii.WithResampleFilter(cfg.ResampleFilter()))
	conv.SetDebugMode(cfg.Conversion.Debug)

	s := &Server{
		cfg:       cfg,
		validator: ascii.NewValidator(ascii.WithMaxDimensions(cfg.Limits.MaxImageWidth, cfg.Limits.MaxImageHeight)),
		converter: conv,
		cache:     cache.New(cfg.Cache.Entries),
		prof:      prof,
		mux:       http.NewServeMux(),
	}

	if s.cache.Enabled() {
		prof.AddMetricsCollector(s.cache)
	}

	s.mux.HandleFunc("POST /api/convert", s.handleConvert)
	s.mux.HandleFunc("GET /api/convert", s.handleScript)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	return s
}

// Handler returns the root handler with request ids attached.
func (s *Server) Handler() http.Handler {
	return withRequestID(s.mux)
}

// Cache returns the conversion cache.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// Run serves on cfg.Server.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.cfg.Server.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	log.Printf("Shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shut down")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server stopped")
	}
	return nil
}
