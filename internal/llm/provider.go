// Package llm talks to the external language model: a pluggable provider
// plus the extraction and generation clients built on top of it.
package llm

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/rfpsynth/internal/config"
)

var (
	// ErrMissingCredentials means the selected provider cannot authenticate.
	ErrMissingCredentials = errors.New("model provider credentials are not configured")
	// ErrEmptyCompletion is returned when the model answered with no text.
	ErrEmptyCompletion = errors.New("model returned an empty completion")
)

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is one chat completion call.
type CompletionRequest struct {
	Messages     []Message
	JSONResponse bool
	Temperature  float32
	MaxTokens    int
}

// Provider is a chat-completion backend.
type Provider interface {
	Name() string
	// Validate reports ErrMissingCredentials when no call can succeed.
	Validate() error
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// NewProvider builds the provider selected by cfg.ModelProvider. A provider
// whose credentials are missing is still returned; Validate reports it.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.ModelProvider {
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg), nil
	case config.ProviderVertex:
		return NewVertexProvider(ctx, cfg)
	default:
		return nil, errors.Newf("unknown model provider %q", cfg.ModelProvider)
	}
}

func splitSystem(messages []Message) (system string, rest []Message) {
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
