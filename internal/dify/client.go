package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/models"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.dify.ai/v1"

// Client talks to the chat-messages endpoint of a Dify application.
// The agent prompt lives in the Dify application, so each stage has its own key.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

// Config holds configuration for a Dify client
type Config struct {
	APIKey     string
	BaseURL    string // Default: https://api.dify.ai/v1
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client
}

type chatMessageResponse struct {
	Event          string `json:"event"`
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	Mode           string `json:"mode"`
	Answer         string `json:"answer"`
	Metadata       struct {
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	} `json:"metadata"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// StatusError is a non-200 answer from the Dify API
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("dify API returned status %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("dify API returned status %d: %s", e.StatusCode, e.Message)
}

// a client error other than 429 fails the same way on every attempt
func (e *StatusError) retryable() bool {
	return e.StatusCode < 400 || e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// NewClient creates a new Dify client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("dify API key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}

	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	if cfg.HTTPClient == nil {
		// blocking answers of long policies take a while; callers bound it with a context
		cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("Dify client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Chat sends a blocking chat message and returns the agent answer
func (c *Client) Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.chatOnce(ctx, req, attempt)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		c.logger.Warn("Dify API attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.maxRetries),
			zap.Error(err))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.retryable() {
			return nil, fmt.Errorf("dify API rejected request: %w", err)
		}

		if attempt < c.maxRetries {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) chatOnce(ctx context.Context, chatReq *models.ChatRequest, attempt int) (*models.ChatResponse, error) {
	body := *chatReq
	if body.ResponseMode == "" {
		body.ResponseMode = models.ResponseModeBlocking
	}
	if body.Inputs == nil {
		body.Inputs = map[string]interface{}{}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat-messages", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Dify API error", zap.Error(err), zap.Int("attempt", attempt))
		return nil, fmt.Errorf("dify API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var apiErr errorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			statusErr.Code = apiErr.Code
			statusErr.Message = apiErr.Message
		}
		return nil, statusErr
	}

	var apiResp chatMessageResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if strings.TrimSpace(apiResp.Answer) == "" {
		return nil, fmt.Errorf("empty answer from dify")
	}

	c.logger.Debug("Dify answered",
		zap.String("conversation_id", apiResp.ConversationID),
		zap.Int("total_tokens", apiResp.Metadata.Usage.TotalTokens),
		zap.Int("attempt", attempt))

	return &models.ChatResponse{
		Answer:         apiResp.Answer,
		ConversationID: apiResp.ConversationID,
		Provider:       "dify",
		ModelVersion:   apiResp.Mode,
	}, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// GetModelInfo returns information about the agent endpoint
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider":    "dify",
		"base_url":    c.baseURL,
		"max_retries": c.maxRetries,
		"retry_delay": c.retryDelay.String(),
	}
}
