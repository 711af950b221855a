// Package config loads castsift configuration from a YAML file with
// environment variable overrides. A .env file is loaded first, then the
// YAML document, then env overrides (env always wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/castsift/castsift/internal/logger"
)

// Default values applied by setDefaults.
const (
	DefaultAddress           = ":8000"
	DefaultReadTimeout       = 10 * time.Second
	DefaultKeepaliveInterval = 30 * time.Second
	DefaultConnectTimeout    = 30 * time.Second
	DefaultBaseRetryDelay    = 5 * time.Second
	DefaultMaxRetryDelay     = 60 * time.Second
	DefaultMaxRetries        = 5
	DefaultQueueSize         = 256
	DefaultTemplateTimeout   = 10 * time.Second
	DefaultTemplateStoreURL  = "https://ipfs.index.network/files"
)

// Config is the top-level castsift configuration.
type Config struct {
	Debug     bool            `yaml:"debug" env:"APP_DEBUG"`
	Logging   logger.Config   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Feed      FeedConfig      `yaml:"feed"`
	Templates TemplateConfig  `yaml:"templates"`
	LLM       LLMConfig       `yaml:"llm"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
}

// ServerConfig configures the subscriber-facing HTTP server.
type ServerConfig struct {
	Address string        `yaml:"address" env:"CASTSIFT_PORT_ADDR"` // e.g. ":8000"
	// ReadTimeout bounds request reads; writes are unbounded because SSE
	// responses are open-ended.
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// KeepaliveInterval is how long a stream may sit idle before a
	// keepalive comment frame is written.
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
}

// FeedConfig configures the upstream cast feed connection.
type FeedConfig struct {
	BaseURL string `yaml:"base_url" env:"FEED_BASE_URL"`
	// Source is the sources[] query value selecting which feed to follow.
	Source string `yaml:"source" env:"FEED_SOURCE"`
	// ConnectTimeout bounds the initial connect; the stream read itself has
	// no timeout.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	BaseRetryDelay time.Duration `yaml:"base_retry_delay"`
	MaxRetryDelay  time.Duration `yaml:"max_retry_delay"`
	// MaxRetries is the consecutive unexpected-error count at which the
	// backoff counter resets. The connector never stops retrying.
	MaxRetries int `yaml:"max_retries"`
}

// TemplateConfig configures the remote evaluation-template store.
type TemplateConfig struct {
	StoreURL string        `yaml:"store_url" env:"TEMPLATE_STORE_URL"`
	CID      string        `yaml:"cid" env:"TEMPLATE_CID"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LLMConfig selects and configures the completion providers.
type LLMConfig struct {
	// Provider names the default backend: "opengradient" or "claude".
	Provider     string             `yaml:"provider" env:"LLM_PROVIDER"`
	OpenGradient OpenGradientConfig `yaml:"opengradient"`
	Claude       ClaudeConfig       `yaml:"claude"`
}

// OpenGradientConfig configures the decentralized-inference backend.
type OpenGradientConfig struct {
	Endpoint string `yaml:"endpoint" env:"OG_ENDPOINT"`
	APIKey   string `yaml:"api_key" env:"OG_API_KEY"`
	ModelCID string `yaml:"model_cid"`
}

// ClaudeConfig configures the hosted generative-model backend.
type ClaudeConfig struct {
	APIKey string `yaml:"api_key" env:"ANTHROPIC_API_KEY"`
	Model  string `yaml:"model"`
}

// DispatchConfig configures per-subscription delivery and evaluation.
type DispatchConfig struct {
	// QueueSize is the per-subscription pending-decision buffer.
	QueueSize int `yaml:"queue_size"`
	// EvalConcurrency bounds concurrent prompt evaluations per update.
	// 1 serializes them.
	EvalConcurrency int `yaml:"eval_concurrency"`
}

// Load reads the YAML config at path and applies defaults and env overrides.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)

	// Re-apply env overrides after defaults (env always wins)
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c.Feed.BaseURL == "" {
		return errors.New("feed.base_url is required")
	}
	if c.Feed.Source == "" {
		return errors.New("feed.source is required")
	}
	if c.Templates.CID == "" {
		return errors.New("templates.cid is required")
	}
	switch c.LLM.Provider {
	case "opengradient":
		if c.LLM.OpenGradient.Endpoint == "" {
			return errors.New("llm.opengradient.endpoint is required when llm.provider is opengradient")
		}
	case "claude":
	default:
		return fmt.Errorf("llm.provider must be opengradient or claude, got %q", c.LLM.Provider)
	}
	if c.Dispatch.EvalConcurrency < 1 {
		return fmt.Errorf("dispatch.eval_concurrency must be at least 1, got %d", c.Dispatch.EvalConcurrency)
	}
	return nil
}

// setDefaults sets default values for configuration fields.
func setDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = DefaultAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.KeepaliveInterval == 0 {
		cfg.Server.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if cfg.Feed.ConnectTimeout == 0 {
		cfg.Feed.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.Feed.BaseRetryDelay == 0 {
		cfg.Feed.BaseRetryDelay = DefaultBaseRetryDelay
	}
	if cfg.Feed.MaxRetryDelay == 0 {
		cfg.Feed.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if cfg.Feed.MaxRetries == 0 {
		cfg.Feed.MaxRetries = DefaultMaxRetries
	}
	if cfg.Templates.StoreURL == "" {
		cfg.Templates.StoreURL = DefaultTemplateStoreURL
	}
	if cfg.Templates.Timeout == 0 {
		cfg.Templates.Timeout = DefaultTemplateTimeout
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "claude"
	}
	if cfg.LLM.OpenGradient.ModelCID == "" {
		cfg.LLM.OpenGradient.ModelCID = "meta-llama/Meta-Llama-3-8B-Instruct"
	}
	if cfg.LLM.Claude.Model == "" {
		cfg.LLM.Claude.Model = "claude-sonnet-4-5"
	}
	if cfg.Dispatch.QueueSize == 0 {
		cfg.Dispatch.QueueSize = DefaultQueueSize
	}
	if cfg.Dispatch.EvalConcurrency == 0 {
		cfg.Dispatch.EvalConcurrency = 1
	}
}

// FeedURL composes the upstream discovery endpoint from the configured base
// URL and source filter.
func (c *FeedConfig) FeedURL() string {
	return fmt.Sprintf("%s/discovery/updates?sources[]=%s", c.BaseURL, c.Source)
}
