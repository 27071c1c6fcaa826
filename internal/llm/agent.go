package llm

import (
	"context"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/models"

	"go.uber.org/zap"
)

const defaultStageTimeout = 60 * time.Second

// AgentConfig configures the chat agent of one analysis stage
type AgentConfig struct {
	Timeout                 time.Duration    `yaml:"timeout"`
	User                    string           `yaml:"user"`
	MaxFailuresBeforeSwitch int              `yaml:"max_failures_before_switch"`
	Providers               []ProviderConfig `yaml:"providers"`
}

// Chatter is anything that answers a chat request
type Chatter interface {
	Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error)
}

// Agent sends blocking queries for one stage under its own timeout
type Agent struct {
	name    string
	client  Chatter
	user    string
	timeout time.Duration
	logger  *zap.Logger
}

// NewAgent wraps client. A zero timeout uses the default of 60s.
func NewAgent(name string, client Chatter, user string, timeout time.Duration, logger *zap.Logger) *Agent {
	if timeout <= 0 {
		timeout = defaultStageTimeout
	}
	if user == "" {
		user = "poliplay"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{name: name, client: client, user: user, timeout: timeout, logger: logger}
}

// NewStageAgent builds the providers of cfg and wraps them in an agent
func NewStageAgent(name string, cfg AgentConfig, systemPrompt string, logger *zap.Logger) (*Agent, *MultiProviderClient, error) {
	client, err := NewMultiProviderClient(MultiProviderConfig{
		Providers:   cfg.Providers,
		MaxFailures: cfg.MaxFailuresBeforeSwitch,
	}, systemPrompt, logger)
	if err != nil {
		return nil, nil, err
	}
	return NewAgent(name, client, cfg.User, cfg.Timeout, logger), client, nil
}

// Ask sends query and returns the raw answer text
func (a *Agent) Ask(ctx context.Context, query string, inputs map[string]interface{}) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if inputs == nil {
		inputs = map[string]interface{}{}
	}

	start := time.Now()
	resp, err := a.client.Chat(ctx, &models.ChatRequest{
		Query:        query,
		ResponseMode: models.ResponseModeBlocking,
		User:         a.user,
		Inputs:       inputs,
	})
	if err != nil {
		return "", err
	}

	a.logger.Debug("Agent answered",
		zap.String("stage", a.name),
		zap.String("provider", resp.Provider),
		zap.Duration("duration", time.Since(start)),
		zap.Int("answer_length", len(resp.Answer)))

	return resp.Answer, nil
}
