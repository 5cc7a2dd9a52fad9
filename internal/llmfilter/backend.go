// Package llmfilter runs rule-filter survivors through an LLM classifier in
// contiguous batches. A failing batch degrades to empty output and a failure
// count; it never aborts the run.
package llmfilter

import (
	"context"
	"fmt"

	"github.com/core-sentiment/pageviews-cli/pkg/ollama"
)

// Backend is one classifier implementation. Classify sends a system+user
// prompt pair and returns the raw reply text; response parsing and validation
// stay in the orchestrator so every backend degrades identically.
type Backend interface {
	// Name tags output rows with the backend and model that produced them.
	Name() string
	Classify(ctx context.Context, system, user string) (string, error)
}

// ollamaBackend classifies through a local Ollama chat endpoint.
type ollamaBackend struct {
	client ollama.Client
	model  string
}

// NewOllamaBackend wraps an Ollama client as a classifier backend.
func NewOllamaBackend(client ollama.Client, model string) Backend {
	return &ollamaBackend{client: client, model: model}
}

func (b *ollamaBackend) Name() string {
	return fmt.Sprintf("llm_ollama_%s", b.model)
}

func (b *ollamaBackend) Classify(ctx context.Context, system, user string) (string, error) {
	resp, err := b.client.Chat(ctx, system, user)
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}
