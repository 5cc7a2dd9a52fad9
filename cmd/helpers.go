package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/core-sentiment/pageviews-cli/internal/llmfilter"
	"github.com/core-sentiment/pageviews-cli/internal/store"
	"github.com/core-sentiment/pageviews-cli/pkg/ollama"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "pageviews.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initBackend() (llmfilter.Backend, error) {
	switch cfg.Filter.Backend {
	case "ollama":
		client := ollama.NewClient(cfg.Ollama.Host, cfg.Ollama.Model,
			ollama.WithTimeout(time.Duration(cfg.Ollama.TimeoutSecs)*time.Second),
			ollama.WithRateLimit(cfg.Ollama.RatePerSec),
			ollama.WithJSONFormat(),
		)
		return llmfilter.NewOllamaBackend(client, cfg.Ollama.Model), nil
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("anthropic API key is required (PAGEVIEWS_ANTHROPIC_KEY)")
		}
		return llmfilter.NewAnthropicBackend(cfg.Anthropic.Key, cfg.Anthropic.Model), nil
	default:
		return nil, eris.Errorf("unsupported classifier backend: %s", cfg.Filter.Backend)
	}
}

// parseDate resolves a --date flag value; empty means today (UTC).
func parseDate(value string) (time.Time, error) {
	if value == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "parse date %q", value)
	}
	return d, nil
}
