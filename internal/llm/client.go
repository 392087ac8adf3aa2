package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/config"
)

// Generator is the surface the rest of the app depends on; tests swap in a fake.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

type Client struct {
	model llms.Model
	cfg   config.LLMConfig
	log   *zap.SugaredLogger
}

// NewClient builds the provider selected by LLM_PROVIDER.
func NewClient(ctx context.Context, cfg config.LLMConfig, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: missing API key for provider %q", cfg.Provider)
	}

	var model llms.Model
	var err error
	switch cfg.Provider {
	case "googleai":
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.Model),
		)
	case "openai":
		model, err = openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("llm: create %s client: %w", cfg.Provider, err)
	}

	return &Client{model: model, cfg: cfg, log: log.Sugar()}, nil
}

func (c *Client) ModelName() string {
	return c.cfg.Model
}

// Unconfigured stands in when no API key is set. Every call fails, which the
// handlers surface as a 500 on the AI endpoints while everything else works.
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, string) (string, error) {
	return "", errors.New("llm: no API key configured")
}

func (Unconfigured) ModelName() string { return "unconfigured" }

// Generate runs a single-prompt completion with the configured temperature
// and timeout.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithTemperature(c.cfg.Temperature),
	)
	if err != nil {
		c.log.Errorw("llm.generate.error", "model", c.cfg.Model, "error", err)
		return "", fmt.Errorf("llm generate: %w", err)
	}
	c.log.Debugw("llm.generate.ok", "model", c.cfg.Model, "prompt_len", len(prompt), "resp_len", len(resp))
	return resp, nil
}
