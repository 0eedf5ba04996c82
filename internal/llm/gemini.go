package llm

import (
	"context"
	stderrors "errors"

	"google.golang.org/genai"

	"github.com/hindsightdev/hindsight/internal/config"
	"github.com/hindsightdev/hindsight/internal/errors"
)

type geminiBackend struct {
	client *genai.Client
	model  string
}

func newGeminiBackend(ctx context.Context, cfg config.ProviderConfig) (*geminiBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "failed to create gemini client")
	}
	return &geminiBackend{client: client, model: cfg.Model}, nil
}

func (b *geminiBackend) Name() string { return "gemini" }

func (b *geminiBackend) Complete(ctx context.Context, req Request) (string, error) {
	var systemInstruction *genai.Content
	if req.System != "" {
		systemInstruction = genai.Text(req.System)[0]
	}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       ptrFloat32(0.1),
	}
	if req.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSON {
		genConfig.ResponseMIMEType = "application/json"
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(req.Prompt), genConfig)
	if err != nil {
		return "", b.classify(ctx, err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New(errors.KindProviderRejected, "gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New(errors.KindProviderRejected, "gemini returned no content parts")
	}
	return candidate.Content.Parts[0].Text, nil
}

func (b *geminiBackend) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, "gemini", apiErr.Message)
	}
	return errors.Newf(errors.KindProviderRejected, "gemini call failed: %s", errors.Sanitize(err.Error()))
}

func ptrFloat32(v float32) *float32 { return &v }
