package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hiqiancheng/PoliPlay/internal/models"

	"go.uber.org/zap"
)

// ErrNoProviders is returned when a stage has no usable provider configured
var ErrNoProviders = errors.New("no providers could be initialized")

// MultiProviderConfig holds configuration for the providers of one stage
type MultiProviderConfig struct {
	Providers   []ProviderConfig
	MaxFailures int // consecutive failures before the preferred provider changes
}

// MultiProviderClient tries the preferred provider first and falls back to
// the others in order. The preferred provider moves on after MaxFailures
// consecutive failures or a rate limit answer.
type MultiProviderClient struct {
	providers    []Provider
	currentIndex int
	mu           sync.RWMutex
	logger       *zap.Logger
	failureCount map[int]int
	maxFailures  int
}

// NewMultiProviderClient creates the providers described by cfg. Providers
// that fail to initialize are skipped.
func NewMultiProviderClient(cfg MultiProviderConfig, systemPrompt string, logger *zap.Logger) (*MultiProviderClient, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	providers := make([]Provider, 0, len(cfg.Providers))
	for i, providerCfg := range cfg.Providers {
		provider, err := NewProvider(providerCfg, systemPrompt, logger)
		if err != nil {
			logger.Error("Failed to create provider",
				zap.String("type", string(providerCfg.Type)),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}

		providers = append(providers, NewRateLimitedProvider(provider, providerCfg.RequestsPerMinute, logger))

		logger.Info("Provider initialized",
			zap.String("type", string(providerCfg.Type)),
			zap.String("model", providerCfg.ModelName),
			zap.Int("rate_limit", providerCfg.RequestsPerMinute),
			zap.Int("index", i))
	}

	return NewMultiProviderClientWithProviders(providers, cfg.MaxFailures, logger)
}

// NewMultiProviderClientWithProviders wraps ready-made providers
func NewMultiProviderClientWithProviders(providers []Provider, maxFailures int, logger *zap.Logger) (*MultiProviderClient, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	if maxFailures <= 0 {
		maxFailures = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MultiProviderClient{
		providers:    providers,
		logger:       logger,
		failureCount: make(map[int]int),
		maxFailures:  maxFailures,
	}, nil
}

func (c *MultiProviderClient) current() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentIndex
}

// switchFrom moves the preferred provider past index unless another
// request already did
func (c *MultiProviderClient) switchFrom(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.currentIndex != index {
		return
	}
	c.currentIndex = (index + 1) % len(c.providers)

	c.logger.Info("Switching provider",
		zap.Int("from_index", index),
		zap.Int("to_index", c.currentIndex),
		zap.Int("total_providers", len(c.providers)))
}

func (c *MultiProviderClient) recordFailure(providerIndex int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount[providerIndex]++

	if c.failureCount[providerIndex] >= c.maxFailures {
		c.logger.Warn("Provider reached max failures",
			zap.Int("provider_index", providerIndex),
			zap.Int("failures", c.failureCount[providerIndex]))
		c.failureCount[providerIndex] = 0
		return true
	}

	return false
}

func (c *MultiProviderClient) resetFailureCount(providerIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount[providerIndex] = 0
}

// Chat sends req to each provider in turn, starting with the preferred one,
// and returns the first answer
func (c *MultiProviderClient) Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	start := c.current()

	var lastErr error
	for attempt := 0; attempt < len(c.providers); attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("chat cancelled: %w", err)
		}

		index := (start + attempt) % len(c.providers)
		c.logger.Debug("Attempting chat",
			zap.Int("provider_index", index),
			zap.Int("attempt", attempt+1))

		resp, err := c.providers[index].Chat(ctx, req)
		if err == nil {
			c.resetFailureCount(index)
			return resp, nil
		}

		lastErr = err
		c.logger.Error("Provider failed",
			zap.Int("provider_index", index),
			zap.Error(err))

		if c.recordFailure(index) || isRateLimitError(err) {
			c.switchFrom(index)
		}
	}

	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "rate limit")
}

// Close closes all providers
func (c *MultiProviderClient) Close() error {
	var lastErr error
	for i, provider := range c.providers {
		if err := provider.Close(); err != nil {
			c.logger.Error("Failed to close provider",
				zap.Int("index", i),
				zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

// GetModelInfo returns information about the preferred provider
func (c *MultiProviderClient) GetModelInfo() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := c.providers[c.currentIndex].GetModelInfo()
	info["provider_index"] = c.currentIndex
	info["total_providers"] = len(c.providers)
	info["failure_count"] = c.failureCount[c.currentIndex]
	return info
}

// GetProvidersInfo returns information about all providers
func (c *MultiProviderClient) GetProvidersInfo() []map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := make([]map[string]interface{}, len(c.providers))
	for i, provider := range c.providers {
		providerInfo := provider.GetModelInfo()
		providerInfo["is_current"] = i == c.currentIndex
		providerInfo["failure_count"] = c.failureCount[i]
		info[i] = providerInfo
	}
	return info
}
