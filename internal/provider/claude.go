package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"tubescript/internal/common/config"
	"tubescript/internal/common/logger"
)

// Claude calls the Anthropic Messages API directly.
type Claude struct {
	baseURL    string
	apiKey     string
	model      string
	version    string
	maxRetries int
	client     *http.Client
	logger     logger.Logger
}

func NewClaude(cfg config.ProviderConfig, log logger.Logger) *Claude {
	baseURL := cfg.Claude.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	model := cfg.Claude.Model
	if model == "" {
		model = "claude-3-sonnet-20240229"
	}
	return &Claude{
		baseURL:    baseURL,
		apiKey:     cfg.Claude.APIKey,
		model:      model,
		version:    cfg.Claude.Version,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{},
		logger:     log.WithFields(map[string]interface{}{"backend": "claude"}),
	}
}

func (c *Claude) Name() string { return "claude" }

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *Claude) Complete(ctx context.Context, req CompletionRequest) (text string, err error) {
	defer func() { recordCall("claude", err) }()

	body := claudeRequest{
		Model:       c.model,
		MaxTokens:   req.MaxTokens,
		System:      req.System,
		Messages:    []claudeMessage{{Role: "user", Content: req.User}},
		Temperature: req.Temperature,
	}

	payload, _ := json.Marshal(body)
	url := c.baseURL + "/v1/messages"

	respBody, err := doWithRetry(ctx, c.client, c.maxRetries, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", c.apiKey)
		httpReq.Header.Set("anthropic-version", c.version)
		return httpReq, nil
	})
	if err != nil {
		return "", err
	}

	var parsed claudeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrProviderFailed, err)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text = strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: response contained no text blocks", ErrEmptyCompletion)
	}

	c.logger.Debug("completion received", map[string]interface{}{
		"chars":      len(text),
		"stopReason": parsed.StopReason,
	})

	return text, nil
}
