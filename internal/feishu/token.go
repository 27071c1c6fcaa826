package feishu

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	tokenCacheKey      = "tenant_access_token"
	defaultTokenMargin = 5 * time.Minute
)

type tokenRequest struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"` // seconds
}

// TokenSource issues tenant access tokens and caches each one until
// margin before it expires
type TokenSource struct {
	api       *apiClient
	appID     string
	appSecret string
	margin    time.Duration
	cache     *cache.Cache
	mu        sync.Mutex
	logger    *zap.Logger
}

func newTokenSource(api *apiClient, appID, appSecret string, margin time.Duration, logger *zap.Logger) *TokenSource {
	if margin <= 0 {
		margin = defaultTokenMargin
	}
	return &TokenSource{
		api:       api,
		appID:     appID,
		appSecret: appSecret,
		margin:    margin,
		cache:     cache.New(cache.NoExpiration, 10*time.Minute),
		logger:    logger,
	}
}

// Token returns a cached token or fetches a new one
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if token, ok := s.cached(); ok {
		return token, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// another caller may have refreshed it while we waited
	if token, ok := s.cached(); ok {
		return token, nil
	}

	var resp tokenResponse
	err := s.api.do(ctx, http.MethodPost, "/auth/v3/tenant_access_token/internal", "", tokenRequest{
		AppID:     s.appID,
		AppSecret: s.appSecret,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to get tenant access token: %w", err)
	}
	if resp.Code != 0 {
		return "", &APIError{Code: resp.Code, Msg: resp.Msg}
	}
	if resp.TenantAccessToken == "" {
		return "", fmt.Errorf("empty tenant access token")
	}

	ttl := time.Duration(resp.Expire)*time.Second - s.margin
	if ttl > 0 {
		s.cache.Set(tokenCacheKey, resp.TenantAccessToken, ttl)
	}

	s.logger.Info("Feishu tenant access token refreshed",
		zap.Int("expire_seconds", resp.Expire),
		zap.Duration("cached_for", maxDuration(ttl, 0)))

	return resp.TenantAccessToken, nil
}

// Invalidate drops the cached token
func (s *TokenSource) Invalidate() {
	s.cache.Delete(tokenCacheKey)
}

func (s *TokenSource) cached() (string, bool) {
	v, ok := s.cache.Get(tokenCacheKey)
	if !ok {
		return "", false
	}
	token, ok := v.(string)
	return token, ok
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
