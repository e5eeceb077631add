package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tubescript/internal/common/config"
	"tubescript/internal/common/logger"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI uses the official openai-go SDK (chat completions).
type OpenAI struct {
	model  string
	opts   []option.RequestOption
	logger logger.Logger
}

func NewOpenAI(cfg config.ProviderConfig, log logger.Logger) (*OpenAI, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, errors.New("openai api key missing; provide providers.openai.api_key")
	}
	model := cfg.OpenAI.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAI.APIKey)}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	return &OpenAI{
		model:  model,
		opts:   opts,
		logger: log.WithFields(map[string]interface{}{"backend": "openai"}),
	}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Complete(ctx context.Context, req CompletionRequest) (text string, err error) {
	defer func() { recordCall("openai", err) }()

	client := openai.NewClient(o.opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.User))

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(o.model),
		Messages:            msgs,
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
		Temperature:         openai.Float(req.Temperature),
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrProviderTimeout, ctx.Err())
		}
		return "", fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrEmptyCompletion)
	}

	text = strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: choice contained no content", ErrEmptyCompletion)
	}

	o.logger.Debug("completion received", map[string]interface{}{"chars": len(text)})

	return text, nil
}
