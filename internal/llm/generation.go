package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/rfpsynth/internal/models"
)

const (
	generationTemperature = 0.7
	generationMaxTokens   = 1500
)

// GenerationClient writes the narrative of one output section.
type GenerationClient struct {
	provider Provider
	timeout  time.Duration
}

func NewGenerationClient(provider Provider, timeout time.Duration) *GenerationClient {
	return &GenerationClient{provider: provider, timeout: timeout}
}

// Generate never fails: on error the returned text names the section and the
// failure so the document is still produced.
func (c *GenerationClient) Generate(ctx context.Context, contextSummary string, section SectionSpec) (out models.SectionText) {
	out.Title = section.Title
	logCtx := slog.With("section", section.Title, "provider", c.provider.Name())

	defer func() {
		if r := recover(); r != nil {
			logCtx.Error("Generation call panicked", "panic", r)
			out = failedSection(section.Title, fmt.Sprintf("panic: %v", r))
		}
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf("Context: %s\n\nInstruction: %s\n\nOutput:", contextSummary, section.Instruction)
	text, err := c.provider.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: generationSystemPrompt},
			{Role: RoleUser, Content: prompt},
		},
		Temperature: generationTemperature,
		MaxTokens:   generationMaxTokens,
	})
	if err != nil {
		logCtx.Warn("Generation call failed", "error", err)
		return failedSection(section.Title, err.Error())
	}

	out.Text = text
	return out
}

func failedSection(title, description string) models.SectionText {
	return models.SectionText{
		Title:   title,
		Text:    fmt.Sprintf("[Error generating %s: %s]", title, description),
		Failure: description,
	}
}
