package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	"google.golang.org/genai"

	"uigen/internal/domain/entity"
)

// GenAIOptions selects the Gemini backend. A non-empty Project switches to Vertex AI.
type GenAIOptions struct {
	APIKey   string
	Project  string
	Location string
	BaseURL  string
	Client   *http.Client
}

func NewGenAIClient(ctx context.Context, opts GenAIOptions) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		HTTPClient:  opts.Client,
		HTTPOptions: genai.HTTPOptions{BaseURL: opts.BaseURL},
	}
	if opts.Project != "" {
		cfg.Project = opts.Project
		cfg.Location = opts.Location
		cfg.Backend = genai.BackendVertexAI
	} else {
		if opts.APIKey == "" {
			return nil, errors.New("gemini api key is required")
		}
		cfg.APIKey = opts.APIKey
		cfg.Backend = genai.BackendGeminiAPI
	}
	return genai.NewClient(ctx, cfg)
}

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClientFromClient(c *genai.Client, model string) *GeminiClient {
	return &GeminiClient{
		client: c,
		model:  model,
	}
}

func (g *GeminiClient) Name() string { return "gemini" }

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (*entity.AIResponse, error) {
	start := time.Now()
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, err
	}

	resp := &entity.AIResponse{
		Content: result.Text(),
		Model:   g.model,
		Latency: time.Since(start).Milliseconds(),
	}
	if result.UsageMetadata != nil {
		resp.TokenCount = int(result.UsageMetadata.TotalTokenCount)
	}
	return resp, nil
}
