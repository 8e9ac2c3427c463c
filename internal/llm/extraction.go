package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/rfpsynth/internal/models"
)

const extractionTemperature = 0.0

// ExtractionClient asks the model one analytical prompt about one document
// and parses the JSON answer. It never returns an error: failures are
// reported inside the result.
type ExtractionClient struct {
	provider Provider
	timeout  time.Duration
}

func NewExtractionClient(provider Provider, timeout time.Duration) *ExtractionClient {
	return &ExtractionClient{provider: provider, timeout: timeout}
}

// Extract runs prompt against text.
func (c *ExtractionClient) Extract(ctx context.Context, text string, prompt ExtractionPrompt) (result models.ExtractionResult) {
	result.Prompt = prompt.Name
	logCtx := slog.With("prompt", prompt.Name, "provider", c.provider.Name())

	defer func() {
		if r := recover(); r != nil {
			result = models.ExtractionResult{Prompt: prompt.Name, Error: fmt.Sprintf("extraction panicked: %v", r)}
			logCtx.Error("Extraction call panicked", "panic", r)
		}
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := c.provider.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: extractionSystemPrompt},
			{Role: RoleUser, Content: prompt.Instruction + "\n\nRFP document text:\n" + text},
		},
		JSONResponse: true,
		Temperature:  extractionTemperature,
	})
	if err != nil {
		logCtx.Warn("Extraction call failed", "error", err)
		result.Error = err.Error()
		return result
	}

	if err := parseExtraction(raw, prompt.Name, &result); err != nil {
		logCtx.Warn("Extraction response rejected", "error", err, "responseBody", truncate(raw, 500))
		result.Fields = nil
		result.Requirements = nil
		result.Error = err.Error()
	}
	return result
}

func parseExtraction(raw, promptName string, result *models.ExtractionResult) error {
	cleanJSON := extractJSONContent(raw)
	if cleanJSON == "" {
		return errors.New("model returned no JSON content")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(cleanJSON), &fields); err != nil {
		return errors.Wrap(err, "model response is not a JSON object")
	}
	if fields == nil {
		return errors.New("model response is not a JSON object")
	}
	result.Fields = fields

	if promptName != PromptCategorizedRequirements {
		return nil
	}

	if _, ok := fields[PromptCategorizedRequirements]; !ok {
		return errors.Newf("model response has no %q key", PromptCategorizedRequirements)
	}
	var typed struct {
		Categories []models.RequirementCategory `json:"categorized_requirements"`
	}
	if err := json.Unmarshal([]byte(cleanJSON), &typed); err != nil {
		return errors.Wrap(err, "categorized_requirements has the wrong shape")
	}
	result.Requirements = typed.Categories
	return nil
}

// extractJSONContent strips the markdown fences models like to add around JSON.
func extractJSONContent(raw string) string {
	cleanJSON := strings.TrimSpace(raw)
	cleanJSON = strings.TrimPrefix(cleanJSON, "```json")
	cleanJSON = strings.TrimPrefix(cleanJSON, "```")
	cleanJSON = strings.TrimSuffix(cleanJSON, "```")
	return strings.TrimSpace(cleanJSON)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
