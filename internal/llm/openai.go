package llm

import (
	"context"
	stderrors "errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hindsightdev/hindsight/internal/config"
	"github.com/hindsightdev/hindsight/internal/errors"
)

type openAIBackend struct {
	client *openai.Client
	model  string
}

func newOpenAIBackend(cfg config.ProviderConfig) *openAIBackend {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openAIBackend{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

func (b *openAIBackend) Name() string { return "openai" }

func (b *openAIBackend) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:    b.model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := b.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", b.classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.KindProviderRejected, "openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (b *openAIBackend) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, "openai", apiErr.Message)
	}
	return errors.Newf(errors.KindProviderRejected, "openai call failed: %s", errors.Sanitize(err.Error()))
}
