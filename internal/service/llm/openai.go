package llm

import (
	"club-backend/internal/logger"
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
)

// OpenAIClient implements CompletionClient with the OpenAI chat completions API
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient creates a client for the OpenAI API or any compatible endpoint at baseURL
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// one attempt per turn; the caller falls back instead of waiting on retries
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Name returns the backend identifier
func (c *OpenAIClient) Name() string {
	return ProviderOpenAI
}

// Complete sends the turns as a chat completion request and returns the first choice
func (c *OpenAIClient) Complete(ctx context.Context, turns []Turn, opts Options) (string, error) {
	logger.Log.WithFields(logrus.Fields{
		"model":         c.model,
		"temperature":   opts.Temperature,
		"message_count": len(turns),
	}).Info("Calling OpenAI chat completions")

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: no response from API", ErrUnavailable)
	}

	logger.Log.WithFields(logrus.Fields{
		"completion_id":     resp.ID,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("Received completion")

	return resp.Choices[0].Message.Content, nil
}
