package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAnthropicModel = "claude-3-5-sonnet-20240620"
	DefaultMaxTokens      = 4096

	// NoAnalysisAvailable is returned when the model answers without any text block.
	NoAnalysisAvailable = "No analysis available"
)

var (
	ErrMissingAPIKey   = errors.New("api key is not configured")
	ErrEmptyCompletion = errors.New("empty completion from model")
)

// AnthropicConfig configures the vision client.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	// BaseURL overrides the API endpoint; empty uses the SDK default.
	BaseURL string
}

// AnthropicClient analyzes images with Claude's Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicClient validates the configuration and builds the SDK client.
// SDK-level retries are disabled; a failed call surfaces immediately.
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY: %w", ErrMissingAPIKey)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
	}, nil
}

// AnalyzeImage sends one image plus the accumulated document context and returns
// the model's free-text analysis.
func (c *AnthropicClient) AnalyzeImage(ctx context.Context, data []byte, mediaType, contextText string) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(data)

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(ImageAnalysisPrompt(contextText)),
				anthropic.NewImageBlockBase64(mediaType, encoded),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages call failed: %w", err)
	}

	if len(message.Content) == 0 {
		return NoAnalysisAvailable, nil
	}
	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return NoAnalysisAvailable, nil
	}
	return text.String(), nil
}
