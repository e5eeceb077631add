// Package server exposes the generation pipeline, quota gate, and billing
// bridge over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tubescript/internal/common/config"
	apperrors "tubescript/internal/common/errors"
	"tubescript/internal/common/logger"
	"tubescript/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generator runs the two-step generation pipeline.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error)
}

// UsageGate enforces the free-tier quota.
type UsageGate interface {
	CheckAndReserve(ctx context.Context, identity models.Identity) error
	Commit(ctx context.Context, identity models.Identity) error
}

// BillingBridge creates checkout sessions and processes webhook events.
type BillingBridge interface {
	CreateCheckoutSession(ctx context.Context, userID, priceID string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// Pinger reports backing-store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GenerationRecorder mirrors generation outcomes into the otel meter.
type GenerationRecorder interface {
	RecordGeneration(ctx context.Context, status string)
	RecordGenerationDuration(ctx context.Context, duration time.Duration, status string)
}

type Server struct {
	config     *config.Config
	generator  Generator
	gate       UsageGate
	billing    BillingBridge
	db         Pinger
	redis      Pinger
	recorder   GenerationRecorder
	errHandler *apperrors.HTTPHandler
	logger     logger.Logger
}

func New(cfg *config.Config, gen Generator, gate UsageGate, bb BillingBridge, db, redis Pinger, log logger.Logger) *Server {
	return &Server{
		config:     cfg,
		generator:  gen,
		gate:       gate,
		billing:    bb,
		db:         db,
		redis:      redis,
		errHandler: apperrors.NewHTTPHandler(log),
		logger:     log.WithFields(map[string]interface{}{"component": "http-server"}),
	}
}

// WithRecorder attaches a meter for generation outcomes. Optional.
func (s *Server) WithRecorder(rec GenerationRecorder) *Server {
	s.recorder = rec
	return s
}

func (s *Server) recordOutcome(ctx context.Context, start time.Time, status string) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordGeneration(ctx, status)
	s.recorder.RecordGenerationDuration(ctx, time.Since(start), status)
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/scripts/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/billing/checkout", s.handleCheckout)
	mux.HandleFunc("POST /api/billing/webhook", s.handleWebhook)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.withRequestLogging(mux)
}

// ListenAndServe runs the server until ctx is canceled, then drains within
// the configured shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  config.GetDuration(s.config.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(s.config.Server.WriteTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", map[string]interface{}{"addr": srv.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			config.GetDuration(s.config.Server.ShutdownTimeout))
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if err := s.db.Ping(ctx); err != nil {
		status["status"] = "degraded"
		status["postgres"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := s.redis.Ping(ctx); err != nil {
		status["status"] = "degraded"
		status["redis"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, status)
}
