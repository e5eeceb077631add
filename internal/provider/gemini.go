package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tubescript/internal/common/config"
	"tubescript/internal/common/logger"
)

// Gemini calls the generateContent REST endpoint directly.
type Gemini struct {
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	client     *http.Client
	logger     logger.Logger
}

func NewGemini(cfg config.ProviderConfig, log logger.Logger) *Gemini {
	baseURL := cfg.Gemini.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := cfg.Gemini.Model
	if model == "" {
		model = "gemini-1.5-pro"
	}
	return &Gemini{
		baseURL:    baseURL,
		apiKey:     cfg.Gemini.APIKey,
		model:      model,
		maxRetries: cfg.MaxRetries,
		// No client timeout; the per-call context bounds the request.
		client: &http.Client{},
		logger: log.WithFields(map[string]interface{}{"backend": "gemini"}),
	}
}

func (g *Gemini) Name() string { return "gemini" }

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func (g *Gemini) Complete(ctx context.Context, req CompletionRequest) (text string, err error) {
	defer func() { recordCall("gemini", err) }()

	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.User}}},
		},
		GenerationConfig: geminiGenConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
		},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	payload, _ := json.Marshal(body)
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)

	respBody, err := doWithRetry(ctx, g.client, g.maxRetries, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	})
	if err != nil {
		return "", err
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrProviderFailed, err)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", ErrEmptyCompletion)
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text = strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: candidate contained no text", ErrEmptyCompletion)
	}

	g.logger.Debug("completion received", map[string]interface{}{
		"chars":        len(text),
		"finishReason": parsed.Candidates[0].FinishReason,
	})

	return text, nil
}

// doWithRetry issues the request with exponential backoff on network errors
// and non-200 responses. The request is rebuilt each attempt so the body can
// be re-read.
func doWithRetry(ctx context.Context, client *http.Client, maxRetries int, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrProviderTimeout, ctx.Err())
			}
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrProviderTimeout, ctx.Err())
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			if readErr != nil {
				return nil, fmt.Errorf("%w: read error: %v", ErrProviderFailed, readErr)
			}
			return body, nil
		}

		lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))

		// Client errors other than rate limiting will not improve on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			break
		}
	}

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w: %v", ErrProviderTimeout, ctx.Err())
	}
	return nil, fmt.Errorf("%w: %v", ErrProviderFailed, lastErr)
}
