package llm

import (
	"context"

	"github.com/go-resty/resty/v2"

	"github.com/hindsightdev/hindsight/internal/config"
	"github.com/hindsightdev/hindsight/internal/errors"
)

// compatBackend talks to any OpenAI-compatible chat-completions endpoint,
// such as a local Ollama or vLLM server.
type compatBackend struct {
	http  *resty.Client
	model string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func newCompatBackend(cfg config.ProviderConfig) (*compatBackend, error) {
	if cfg.BaseURL == "" {
		return nil, errors.ConfigErrorf("provider.base_url is required for the compat provider")
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &compatBackend{http: client, model: cfg.Model}, nil
}

func (b *compatBackend) Name() string { return "compat" }

func (b *compatBackend) Complete(ctx context.Context, req Request) (string, error) {
	body := chatRequest{Model: b.model, MaxTokens: req.MaxTokens}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.JSON {
		body.ResponseFormat = &respFormat{Type: "json_object"}
	}

	var result chatResponse
	resp, err := b.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/chat/completions")
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.Newf(errors.KindProviderRejected, "endpoint call failed: %s", errors.Sanitize(err.Error()))
	}
	if resp.IsError() {
		return "", classifyStatus(resp.StatusCode(), "compat", string(resp.Body()))
	}
	if len(result.Choices) == 0 {
		return "", errors.New(errors.KindProviderRejected, "endpoint returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}
