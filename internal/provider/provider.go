// Package provider abstracts hosted text-completion backends behind a single
// interface. The backend is chosen once from configuration; nothing outside
// this package branches on it.
package provider

import (
	"context"
	"errors"
	"fmt"

	"tubescript/internal/common/config"
	"tubescript/internal/common/logger"
	"tubescript/internal/common/metrics"
)

var (
	ErrProviderTimeout = errors.New("PROVIDER_TIMEOUT")
	ErrProviderFailed  = errors.New("PROVIDER_FAILED")
	ErrEmptyCompletion = errors.New("EMPTY_COMPLETION")
)

// CompletionRequest carries one instruction pair to a backend.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Provider is an opaque text-completion capability reached over HTTP.
type Provider interface {
	// Complete returns generated text for the request, or an error wrapping
	// one of the package sentinels. Implementations must never return an
	// empty string with a nil error.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Name identifies the backend for logging and metrics.
	Name() string
}

// recordCall counts one completion attempt per backend and outcome.
func recordCall(backend string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrProviderTimeout):
		outcome = "timeout"
	case errors.Is(err, ErrEmptyCompletion):
		outcome = "empty"
	default:
		outcome = "error"
	}
	metrics.ProviderCalls.WithLabelValues(backend, outcome).Inc()
}

// New constructs the configured backend.
func New(cfg config.ProviderConfig, log logger.Logger) (Provider, error) {
	switch cfg.Backend {
	case "gemini":
		return NewGemini(cfg, log), nil
	case "claude":
		return NewClaude(cfg, log), nil
	case "openai":
		return NewOpenAI(cfg, log)
	default:
		return nil, fmt.Errorf("unknown provider backend %q", cfg.Backend)
	}
}
