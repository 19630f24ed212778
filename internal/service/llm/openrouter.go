package llm

import (
	"bytes"
	"club-backend/internal/logger"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterClient implements CompletionClient using direct OpenRouter API calls
type OpenRouterClient struct {
	apiKey  string
	model   string
	baseURL string
	referer string
	client  *http.Client
}

// NewOpenRouterClient creates a new OpenRouter client; an empty baseURL selects the public endpoint
func NewOpenRouterClient(apiKey, model, baseURL, referer string) *OpenRouterClient {
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}
	return &OpenRouterClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		referer: referer,
		client:  &http.Client{},
	}
}

type chatRequest struct {
	Model       string  `json:"model"`
	Messages    []Turn  `json:"messages"`
	Stream      bool    `json:"stream"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

type responseUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message Turn `json:"message"`
	} `json:"choices"`
	Usage *responseUsage `json:"usage,omitempty"`
}

// Name returns the backend identifier
func (c *OpenRouterClient) Name() string {
	return ProviderOpenRouter
}

// Complete sends the turns to OpenRouter and returns the first choice's content
func (c *OpenRouterClient) Complete(ctx context.Context, turns []Turn, opts Options) (string, error) {
	logger.Log.WithFields(logrus.Fields{
		"model":         c.model,
		"temperature":   opts.Temperature,
		"message_count": len(turns),
	}).Info("Calling OpenRouter API")

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    turns,
		Stream:      false,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: error marshaling request: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("%w: error creating request: %v", ErrUnavailable, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	req.Header.Set("X-Title", "Club Assistant")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: error sending request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: error reading response body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: API returned status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	logger.Log.WithField("response_length", len(body)).Debug("Received raw response")

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%w: error decoding response: %v", ErrUnavailable, err)
	}

	if len(chatResp.Choices) == 0 || strings.TrimSpace(chatResp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: no response from API", ErrUnavailable)
	}

	if chatResp.Usage != nil {
		logger.Log.WithFields(logrus.Fields{
			"generation_id":     chatResp.ID,
			"prompt_tokens":     chatResp.Usage.PromptTokens,
			"completion_tokens": chatResp.Usage.CompletionTokens,
		}).Debug("Captured usage data")
	}

	return chatResp.Choices[0].Message.Content, nil
}
