package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/feishu"
	"github.com/hiqiancheng/PoliPlay/internal/llm"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when POLIPLAY_CONFIG is not set
const DefaultPath = "configs/config.yml"

// Export providers
const (
	ExportFeishu = "feishu"
	ExportDocx   = "docx"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Port            string        `yaml:"port"`
		Mode            string        `yaml:"mode"` // gin mode: debug, release, test
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Log struct {
		Mode string `yaml:"mode"` // development or production
	} `yaml:"log"`

	Database struct {
		Type string `yaml:"type"` // "sqlite" or "postgres"
		URL  string `yaml:"url"`  // SQLite path or PostgreSQL URL
	} `yaml:"database"`

	// One chat agent per analysis stage
	Agents struct {
		Clarify llm.AgentConfig `yaml:"clarify"`
		Analyze llm.AgentConfig `yaml:"analyze"`
	} `yaml:"agents"`

	Export struct {
		Provider string        `yaml:"provider"`
		Feishu   feishu.Config `yaml:"feishu"`
		Docx     struct {
			Dir           string `yaml:"dir"`
			PublicBaseURL string `yaml:"public_base_url"`
		} `yaml:"docx"`
	} `yaml:"export"`

	CORS struct {
		AllowOrigins []string `yaml:"allow_origins"`
	} `yaml:"cors"`
}

// Path returns the config file path, honoring POLIPLAY_CONFIG
func Path() string {
	if p := os.Getenv("POLIPLAY_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// LoadConfig loads .env (if present) and then the YAML file at configPath
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.expandEnv()
	config.setDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) expandEnv() {
	c.Database.URL = os.ExpandEnv(c.Database.URL)

	for _, agent := range []*llm.AgentConfig{&c.Agents.Clarify, &c.Agents.Analyze} {
		for i := range agent.Providers {
			agent.Providers[i].APIKey = os.ExpandEnv(agent.Providers[i].APIKey)
			agent.Providers[i].BaseURL = os.ExpandEnv(agent.Providers[i].BaseURL)
		}
	}

	c.Export.Feishu.AppID = os.ExpandEnv(c.Export.Feishu.AppID)
	c.Export.Feishu.AppSecret = os.ExpandEnv(c.Export.Feishu.AppSecret)
	c.Export.Feishu.FolderToken = os.ExpandEnv(c.Export.Feishu.FolderToken)
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "3001"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}

	if c.Log.Mode == "" {
		c.Log.Mode = "development"
	}

	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.URL == "" {
		c.Database.URL = "./data/poliplay.db"
	}

	for _, agent := range []*llm.AgentConfig{&c.Agents.Clarify, &c.Agents.Analyze} {
		if agent.Timeout == 0 {
			agent.Timeout = 60 * time.Second
		}
		if agent.MaxFailuresBeforeSwitch == 0 {
			agent.MaxFailuresBeforeSwitch = 3
		}
	}

	if c.Export.Provider == "" {
		c.Export.Provider = ExportFeishu
	}
	if c.Export.Docx.Dir == "" {
		c.Export.Docx.Dir = "./data/exports"
	}
	if c.Export.Docx.PublicBaseURL == "" {
		c.Export.Docx.PublicBaseURL = "http://localhost:" + c.Server.Port
	}
}

// Validate checks values that have no sensible default
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}

	switch c.Export.Provider {
	case ExportFeishu, ExportDocx:
	default:
		return fmt.Errorf("unsupported export provider %q", c.Export.Provider)
	}
	return nil
}
