package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/dify"
	"github.com/hiqiancheng/PoliPlay/internal/gemini"
	"github.com/hiqiancheng/PoliPlay/internal/models"
	"github.com/hiqiancheng/PoliPlay/internal/openrouter"

	"go.uber.org/zap"
)

// ProviderType represents the type of chat agent provider
type ProviderType string

const (
	ProviderDify       ProviderType = "dify"
	ProviderGemini     ProviderType = "gemini"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderGroq       ProviderType = "groq"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// ProviderConfig holds configuration for a single provider instance
type ProviderConfig struct {
	Type       ProviderType  `yaml:"type"`
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	ModelName  string        `yaml:"model_name"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	// Rate limiting per provider
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Provider is any chat agent that answers a query with free text
type Provider interface {
	Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error)
	Close() error
	GetModelInfo() map[string]interface{}
}

// NewProvider builds the client for cfg. systemPrompt is used by providers
// without a server side agent definition.
func NewProvider(cfg ProviderConfig, systemPrompt string, logger *zap.Logger) (Provider, error) {
	switch cfg.Type {
	case ProviderDify:
		return dify.NewClient(dify.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
		}, logger)
	case ProviderGemini:
		return gemini.NewClient(gemini.Config{
			APIKey:            cfg.APIKey,
			ModelName:         cfg.ModelName,
			SystemInstruction: systemPrompt,
			MaxRetries:        cfg.MaxRetries,
			RetryDelay:        cfg.RetryDelay,
		}, logger)
	case ProviderOpenRouter, ProviderGroq:
		baseURL := cfg.BaseURL
		if baseURL == "" && cfg.Type == ProviderGroq {
			baseURL = groqBaseURL
		}
		return openrouter.NewClient(openrouter.Config{
			Name:         string(cfg.Type),
			APIKey:       cfg.APIKey,
			BaseURL:      baseURL,
			ModelName:    cfg.ModelName,
			SystemPrompt: systemPrompt,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}
