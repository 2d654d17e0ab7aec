package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

type openAI struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates the provider named by the configuration. The base URL override
// lets the client target any OpenAI-compatible endpoint. Requests are never
// retried by the client; retry is left to the caller.
func New(cfg *Config, logger *slog.Logger) (Provider, error) {
	switch cfg.Name {
	case "openai":
		return newOpenAI(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Name)
	}
}

func newOpenAI(cfg *Config, logger *slog.Logger) *openAI {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &openAI{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.TimeoutDuration(),
		logger:  logger.With("system", "provider", "provider", cfg.Name),
	}
}

func (o *openAI) Complete(ctx context.Context, messages []Message, params Params) (*Response, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	model := params.Model
	if model == "" {
		model = o.model
	}

	req := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    toMessageParams(messages),
		Temperature: openai.Float(params.Temperature),
	}
	if params.MaxTokens > 0 {
		req.MaxCompletionTokens = openai.Int(int64(params.MaxTokens))
	}
	if params.ResponseFormat == FormatJSONObject {
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, req)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: status %d: %w", ErrRequestFailed, apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}

	choice := resp.Choices[0]

	o.logger.DebugContext(
		ctx, "completion received",
		"model", resp.Model,
		"finish_reason", choice.FinishReason,
		"total_tokens", resp.Usage.TotalTokens,
		"duration", time.Since(start),
	)

	return &Response{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: choice.FinishReason,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func toMessageParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params = append(params, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params = append(params, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		default:
			params = append(params, openai.UserMessage(m.Content))
		}
	}
	return params
}
