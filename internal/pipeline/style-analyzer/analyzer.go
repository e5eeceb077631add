// Package styleanalyzer derives a natural-language style guide from a
// creator's reference URL with a single completion call.
package styleanalyzer

import (
	"context"
	"fmt"
	"strings"

	apperrors "tubescript/internal/common/errors"
	"tubescript/internal/common/logger"
	"tubescript/internal/common/validation"
	"tubescript/internal/provider"
)

const analystInstruction = "You are an expert content style analyst. " +
	"Analyze the content from the URL the user provides and create a style guide " +
	"that captures the content creator's unique style, including tone, vocabulary, " +
	"and presentation. Respond with the style guide as descriptive prose only."

type Analyzer struct {
	config   *Config
	provider provider.Provider
	logger   logger.Logger
}

func NewAnalyzer(config *Config, p provider.Provider, log logger.Logger) *Analyzer {
	return &Analyzer{
		config:   config,
		provider: p,
		logger:   log.WithFields(map[string]interface{}{"component": "style-analyzer"}),
	}
}

// Analyze produces a style guide for the reference URL. The page content is
// never fetched here; the URL is embedded in the instruction and its
// interpretation is delegated entirely to the provider. Exactly one outbound
// completion call per invocation.
func (a *Analyzer) Analyze(ctx context.Context, referenceURL string) (string, error) {
	if err := validation.ValidateReferenceURL(referenceURL); err != nil {
		return "", err
	}

	userPrompt := fmt.Sprintf("URL: %s\n\nStyle Guide:", referenceURL)

	guide, err := a.provider.Complete(ctx, provider.CompletionRequest{
		System:      analystInstruction,
		User:        userPrompt,
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
	})
	if err != nil {
		return "", apperrors.NewStyleAnalysisError(err)
	}

	if strings.TrimSpace(guide) == "" {
		return "", apperrors.NewStyleAnalysisError(provider.ErrEmptyCompletion)
	}

	a.logger.Info("style guide produced", map[string]interface{}{
		"referenceUrl": referenceURL,
		"chars":        len(guide),
	})

	return guide, nil
}
