package llmfilter

import (
	"context"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// anthropicBackend classifies through the Anthropic Messages API.
type anthropicBackend struct {
	client sdk.Client
	model  string
}

// NewAnthropicBackend creates the Anthropic classifier backend.
func NewAnthropicBackend(apiKey, model string) Backend {
	return &anthropicBackend{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (b *anthropicBackend) Name() string {
	return fmt.Sprintf("llm_anthropic_%s", b.model)
}

func (b *anthropicBackend) Classify(ctx context.Context, system, user string) (string, error) {
	msg, err := b.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(b.model),
		MaxTokens:   4096,
		Temperature: sdk.Float(0.1),
		System: []sdk.TextBlockParam{
			{Text: system},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "llmfilter: anthropic create message")
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", eris.New("llmfilter: anthropic response has no text content")
}
