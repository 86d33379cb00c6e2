// Package brain holds the text-generation collaborators behind ports.Brain.
package brain

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"redscout/internal/core/domain"
	"redscout/internal/core/ports"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenAIBrain generates replies through an OpenAI-compatible chat API.
// With an OpenRouter key it defaults to the OpenRouter endpoint and sends
// the referer/title headers OpenRouter recommends.
type OpenAIBrain struct {
	client openai.Client
	model  string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

func NewOpenAIBrain(cfg OpenAIConfig) (*OpenAIBrain, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" && strings.HasPrefix(cfg.APIKey, "sk-or-") {
		baseURL = defaultOpenRouterBaseURL
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if strings.HasPrefix(cfg.APIKey, "sk-or-") {
		opts = append(opts,
			option.WithHeader("HTTP-Referer", "http://localhost"),
			option.WithHeader("X-Title", "redscout"),
		)
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIBrain{client: openai.NewClient(opts...), model: model}, nil
}

var _ ports.Brain = (*OpenAIBrain)(nil)

func (b *OpenAIBrain) GenerateReply(ctx context.Context, system string, post domain.Post, keywords []string) (string, error) {
	user := fmt.Sprintf(
		"Reddit post title: %s\nReddit post body: %s\nMatched keywords: %s\nWrite one short reply (2-5 sentences) that follows the rules.",
		post.Title, post.Body, strings.Join(keywords, ", "))

	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: b.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxTokens:   openai.Int(160),
		Temperature: openai.Float(0.4),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
