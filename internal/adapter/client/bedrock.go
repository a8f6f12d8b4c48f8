package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"uigen/internal/domain/entity"
)

const bedrockMaxTokens = 8192

type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient generates text with an Anthropic model hosted on Amazon Bedrock.
type BedrockClient struct {
	svc   bedrockInvoker
	model string
}

// NewBedrockClient resolves credentials through the default AWS config chain.
func NewBedrockClient(ctx context.Context, region, model string) (*BedrockClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("bedrock model is required")
	}
	if !strings.Contains(strings.ToLower(model), "anthropic.") {
		return nil, fmt.Errorf("unsupported Bedrock model family for %q", model)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if strings.TrimSpace(region) != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		return nil, errors.New("AWS region not resolved: set AWS_REGION or --bedrock-region")
	}
	return &BedrockClient{svc: bedrockruntime.NewFromConfig(cfg), model: model}, nil
}

func (b *BedrockClient) Name() string { return "bedrock" }

func (b *BedrockClient) Generate(ctx context.Context, prompt string) (*entity.AIResponse, error) {
	payload := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        bedrockMaxTokens,
		"messages": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": prompt},
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	start := time.Now()
	out, err := b.svc.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock invoke error: %w", err)
	}

	text, tokens, err := decodeAnthropic(out.Body)
	if err != nil {
		return nil, err
	}
	return &entity.AIResponse{
		Content:    text,
		Model:      b.model,
		TokenCount: tokens,
		Latency:    time.Since(start).Milliseconds(),
	}, nil
}

func decodeAnthropic(body []byte) (string, int, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", 0, fmt.Errorf("failed to decode Anthropic response: %w", err)
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	return strings.TrimSpace(sb.String()), resp.Usage.InputTokens + resp.Usage.OutputTokens, nil
}
