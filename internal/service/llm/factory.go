package llm

import (
	"club-backend/internal/config"
	"club-backend/internal/logger"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Supported CHATBOT_PROVIDER values
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderLangChain  = "langchain"
)

// NewCompletionClient creates the completion client selected by the chatbot config.
// It returns ErrNotConfigured when no API key is set.
func NewCompletionClient(cfg config.ChatbotConfig) (CompletionClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	logger.Log.WithFields(logrus.Fields{
		"provider": cfg.Provider,
		"model":    cfg.Model,
	}).Info("Creating completion client")

	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.APIBaseURL), nil
	case ProviderOpenRouter:
		return NewOpenRouterClient(cfg.APIKey, cfg.Model, cfg.APIBaseURL, cfg.FrontendBaseURL), nil
	case ProviderLangChain:
		return NewLangChainClient(cfg.APIKey, cfg.Model, cfg.APIBaseURL)
	default:
		return nil, fmt.Errorf("unknown completion provider: %s", cfg.Provider)
	}
}
