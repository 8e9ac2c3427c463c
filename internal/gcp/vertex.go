package gcp

import (
	"context"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/cockroachdb/errors"
)

// ModelOptions configures one generative model handle.
type ModelOptions struct {
	SystemPrompt string
	Temperature  float32
	JSONOutput   bool
	MaxTokens    int
}

// VertexClient wraps the shared genai client; model handles are cheap and
// created per call so each call can carry its own sampling settings.
type VertexClient struct {
	modelName  string
	baseClient *genai.Client
}

// NewVertexClient creates the shared Vertex AI client.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, errors.New("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, errors.Wrap(err, "genai.NewClient")
	}

	return &VertexClient{
		modelName:  modelName,
		baseClient: baseClient,
	}, nil
}

// Model returns a generative model configured with opts.
func (c *VertexClient) Model(opts ModelOptions) *genai.GenerativeModel {
	model := c.baseClient.GenerativeModel(c.modelName)
	if opts.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(opts.SystemPrompt)},
		}
	}

	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr(opts.Temperature),
	}
	if opts.JSONOutput {
		model.GenerationConfig.ResponseMIMEType = "application/json"
	}
	if opts.MaxTokens > 0 {
		model.GenerationConfig.MaxOutputTokens = genai.Ptr(int32(opts.MaxTokens))
	}

	// RFP text talks about litigation, insurance and conflicts of interest,
	// which the default filters sometimes block.
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockOnlyHigh},
	}
	return model
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var contentBuilder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			contentBuilder.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(contentBuilder.String())
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
