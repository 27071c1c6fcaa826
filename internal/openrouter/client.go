package openrouter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/models"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Client represents a client for any OpenAI-compatible chat completions API.
// OpenRouter is the default endpoint.
type Client struct {
	name         string
	client       *openai.Client
	baseURL      string
	modelName    string
	systemPrompt string
	logger       *zap.Logger
	maxRetries   int
	retryDelay   time.Duration
}

// Config holds configuration for the client
type Config struct {
	Name         string // reported as provider, default "openrouter"
	APIKey       string
	BaseURL      string
	ModelName    string // e.g., "deepseek/deepseek-chat-v3-0324:free"
	SystemPrompt string
	MaxRetries   int
	RetryDelay   time.Duration
}

// NewClient creates a new client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}

	if cfg.Name == "" {
		cfg.Name = "openrouter"
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.ModelName == "" {
		cfg.ModelName = "deepseek/deepseek-chat-v3-0324:free"
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}

	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	logger.Info("OpenAI-compatible client initialized",
		zap.String("provider", cfg.Name),
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		name:         cfg.Name,
		client:       openai.NewClientWithConfig(clientConfig),
		baseURL:      clientConfig.BaseURL,
		modelName:    cfg.ModelName,
		systemPrompt: cfg.SystemPrompt,
		logger:       logger,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
	}, nil
}

// Chat sends the query as the user message
func (c *Client) Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		result, err := c.chatOnce(ctx, req)
		if err == nil {
			return result, nil
		}

		lastErr = err
		c.logger.Warn("Chat completion attempt failed",
			zap.String("provider", c.name),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.maxRetries),
			zap.Error(err))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// client errors other than rate limits will not get better
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 && apiErr.HTTPStatusCode != 429 {
			break
		}

		if attempt < c.maxRetries {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("%s failed after retries: %w", c.name, lastErr)
}

func (c *Client) chatOnce(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: c.systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Query,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.modelName,
		Messages:    messages,
		Temperature: 0.4,
		User:        req.User,
	})
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", c.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in %s response", c.name)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return nil, fmt.Errorf("empty answer from %s", c.name)
	}

	c.logger.Debug("Chat completion answered",
		zap.String("provider", c.name),
		zap.String("model", resp.Model),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	model := resp.Model
	if model == "" {
		model = c.modelName
	}

	return &models.ChatResponse{
		Answer:         answer,
		ConversationID: resp.ID,
		Provider:       c.name,
		ModelVersion:   model,
	}, nil
}

// Close is a no-op; the underlying HTTP client is shared
func (c *Client) Close() error {
	return nil
}

// GetModelInfo returns information about the model being used
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider":    c.name,
		"model":       c.modelName,
		"base_url":    c.baseURL,
		"max_retries": c.maxRetries,
		"retry_delay": c.retryDelay.String(),
	}
}
