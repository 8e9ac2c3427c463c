package llm

import (
	"context"

	"cloud.google.com/go/vertexai/genai"
	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/rfpsynth/internal/config"
	"github.com/Lllllllleong/rfpsynth/internal/gcp"
)

// VertexProvider sends completions to a Gemini model on Vertex AI.
type VertexProvider struct {
	client *gcp.VertexClient
}

// NewVertexProvider creates the Vertex AI client. Without a project id the
// provider is returned unconfigured so submissions fail validation instead
// of the process failing to start.
func NewVertexProvider(ctx context.Context, cfg *config.Config) (*VertexProvider, error) {
	if cfg.ProjectID == "" {
		return &VertexProvider{}, nil
	}
	client, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexRegion, cfg.VertexModel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create vertex client")
	}
	return &VertexProvider{client: client}, nil
}

func (p *VertexProvider) Name() string { return config.ProviderVertex }

func (p *VertexProvider) Validate() error {
	if p.client == nil {
		return errors.WithHint(ErrMissingCredentials, "set PROJECT_ID for the Vertex AI provider")
	}
	return nil
}

func (p *VertexProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	system, rest := splitSystem(req.Messages)
	model := p.client.Model(gcp.ModelOptions{
		SystemPrompt: system,
		Temperature:  req.Temperature,
		JSONOutput:   req.JSONResponse,
		MaxTokens:    req.MaxTokens,
	})

	parts := make([]genai.Part, 0, len(rest))
	for _, m := range rest {
		parts = append(parts, genai.Text(m.Content))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", errors.Wrap(err, "vertex generate content")
	}

	text := gcp.ResponseText(resp)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (p *VertexProvider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}
