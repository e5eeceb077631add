// Package orchestrator composes style analysis and script generation for a
// single request.
package orchestrator

import (
	"context"
	"errors"
	"time"

	apperrors "tubescript/internal/common/errors"
	"tubescript/internal/common/logger"
	"tubescript/internal/common/metrics"
	"tubescript/internal/models"
	"tubescript/internal/provider"
)

// StyleAnalyzer derives a style guide from a reference URL.
type StyleAnalyzer interface {
	Analyze(ctx context.Context, referenceURL string) (string, error)
}

// ScriptWriter generates a script, optionally guided by a style guide.
type ScriptWriter interface {
	Write(ctx context.Context, topic, contentType, styleGuide string) (string, error)
}

type Orchestrator struct {
	analyzer StyleAnalyzer
	writer   ScriptWriter
	timeout  time.Duration
	logger   logger.Logger
}

func New(analyzer StyleAnalyzer, writer ScriptWriter, timeout time.Duration, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		analyzer: analyzer,
		writer:   writer,
		timeout:  timeout,
		logger:   log.WithFields(map[string]interface{}{"component": "orchestrator"}),
	}
}

// Generate runs the two-step pipeline. The steps are strictly sequential:
// the style guide, if any, must be fully resolved before generation starts.
//
// Failure policy is deliberately asymmetric: analyzer errors are swallowed
// and generation proceeds without a style guide (fail-open), writer errors
// are terminal. A reference URL that cannot be analyzed must never block
// script generation.
func (o *Orchestrator) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	start := time.Now()

	styleGuide := ""
	if req.ReferenceURL != "" {
		guide, err := o.analyzeStyle(ctx, req.ReferenceURL)
		if err != nil {
			metrics.StyleAnalysesSwallowed.Inc()
			o.logger.Warn("style analysis failed, generating without style guide", map[string]interface{}{
				"referenceUrl": req.ReferenceURL,
				"code":         string(apperrors.CodeOf(err)),
				"error":        err.Error(),
			})
		} else {
			styleGuide = guide
		}
	}

	script, err := o.write(ctx, req, styleGuide)
	if err != nil {
		genErr := o.asGenerationError(err)
		metrics.GenerationsFailed.WithLabelValues(string(apperrors.CodeOf(genErr))).Inc()
		return nil, genErr
	}

	metrics.GenerationsCompleted.WithLabelValues(req.ContentType, boolLabel(styleGuide != "")).Inc()
	metrics.GenerationDuration.WithLabelValues(req.ContentType).Observe(time.Since(start).Seconds())

	o.logger.Info("generation completed", map[string]interface{}{
		"contentType": req.ContentType,
		"styled":      styleGuide != "",
		"durationMs":  time.Since(start).Milliseconds(),
	})

	return &models.GenerationResult{
		Script:       script,
		StyleApplied: styleGuide != "",
	}, nil
}

func (o *Orchestrator) analyzeStyle(ctx context.Context, referenceURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.analyzer.Analyze(ctx, referenceURL)
}

func (o *Orchestrator) write(ctx context.Context, req models.GenerationRequest, styleGuide string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.writer.Write(ctx, req.Topic, req.ContentType, styleGuide)
}

// asGenerationError preserves validation errors and wraps everything else
// from the writer as a terminal GenerationError.
func (o *Orchestrator) asGenerationError(err error) error {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) && stdErr.Code == apperrors.ErrCodeValidationFailed {
		return stdErr
	}
	if errors.Is(err, provider.ErrProviderTimeout) {
		return apperrors.NewProviderTimeoutError(err.Error())
	}
	return apperrors.NewGenerationError(err)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
