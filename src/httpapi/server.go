// Package httpapi exposes the orchestrator over HTTP and pushes voice events
// to websocket clients.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	omnichat "github.com/Protocol-Lattice/omnichat"
	"github.com/Protocol-Lattice/omnichat/src/models"
	"github.com/Protocol-Lattice/omnichat/src/voice"
)

const shutdownTimeout = 10 * time.Second

// Orchestrator is the subset of *omnichat.Orchestrator the API serves.
type Orchestrator interface {
	Reply(ctx context.Context, prompt string, files []models.File) omnichat.Message
	StartVoiceRecording(ctx context.Context, onTranscribed func(string)) (*voice.Session, error)
	StopVoiceRecording() *voice.Session
	TextToSpeech(text string)
	ChangeProvider(id models.ProviderID) error
	ChangeImageProvider(id string) error
	Provider() models.ProviderID
	ImageProvider() string
	ImageProviders() []string
	Busy() bool
}

// Options configure a Server. Orchestrator is required.
type Options struct {
	Orchestrator Orchestrator
	Metrics      *omnichat.Metrics
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	// Mode is a gin mode: debug, release or test.
	Mode string
	// AutoReply sends non-empty voice transcripts to the orchestrator.
	AutoReply bool
}

// Server routes HTTP requests to the orchestrator.
type Server struct {
	orch      Orchestrator
	metrics   *omnichat.Metrics
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	hub       *Hub
	autoReply bool
	engine    *gin.Engine

	// base outlives individual requests; voice callbacks run on it.
	base   context.Context
	cancel context.CancelFunc
}

func New(opts Options) (*Server, error) {
	if opts.Orchestrator == nil {
		return nil, errors.New("httpapi: orchestrator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	base, cancel := context.WithCancel(context.Background())
	s := &Server{
		orch:      opts.Orchestrator,
		metrics:   opts.Metrics,
		gatherer:  opts.Gatherer,
		logger:    logger.With("component", "httpapi"),
		autoReply: opts.AutoReply,
		base:      base,
		cancel:    cancel,
	}
	s.hub = NewHub(s.logger)
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(Recovery(s.logger), RequestID(), Metrics(s.metrics), AccessLog(s.logger))

	r.GET("/healthz", s.health)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1")
	v1.POST("/messages", s.sendMessage)
	v1.PUT("/provider", s.changeProvider)
	v1.PUT("/image-provider", s.changeImageProvider)
	v1.POST("/speech", s.speak)
	v1.POST("/voice/start", s.startVoice)
	v1.POST("/voice/stop", s.stopVoice)
	v1.GET("/voice/events", s.voiceEvents)
	return r
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler { return s.engine }

// Hub returns the voice event hub.
func (s *Server) Hub() *Hub { return s.hub }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.Close()
		if ok {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close cancels pending voice replies and disconnects websocket clients.
func (s *Server) Close() {
	s.cancel()
	s.hub.Close()
}
