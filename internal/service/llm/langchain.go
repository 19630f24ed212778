package llm

import (
	"club-backend/internal/logger"
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// LangChainClient implements CompletionClient on a langchaingo model, typically a
// local OpenAI-compatible server such as Ollama
type LangChainClient struct {
	model llms.Model
	name  string
}

// NewLangChainClient creates a langchaingo OpenAI-compatible model
func NewLangChainClient(token, model, baseURL string) (*LangChainClient, error) {
	opts := []lcopenai.Option{
		lcopenai.WithToken(token),
		lcopenai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(baseURL))
	}

	m, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating langchain model: %w", err)
	}
	return &LangChainClient{model: m, name: model}, nil
}

// Name returns the backend identifier
func (c *LangChainClient) Name() string {
	return ProviderLangChain
}

// Complete maps turns to langchaingo message contents and generates a reply
func (c *LangChainClient) Complete(ctx context.Context, turns []Turn, opts Options) (string, error) {
	logger.Log.WithFields(logrus.Fields{
		"model":         c.name,
		"temperature":   opts.Temperature,
		"message_count": len(turns),
	}).Info("Calling langchain model")

	content := make([]llms.MessageContent, 0, len(turns))
	for _, turn := range turns {
		content = append(content, llms.TextParts(messageType(turn.Role), turn.Content))
	}

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	resp, err := c.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", fmt.Errorf("%w: no response from model", ErrUnavailable)
	}

	return resp.Choices[0].Content, nil
}

func messageType(role string) schema.ChatMessageType {
	switch role {
	case RoleSystem:
		return schema.ChatMessageTypeSystem
	case RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}
