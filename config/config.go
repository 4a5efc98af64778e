package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is read when CONFIG_PATH is not set
const DefaultPath = "config.yaml"

// Config aggregates all application configuration
type Config struct {
	Agent    AgentConfig    `yaml:"agent"`
	LLM      LLMConfig      `yaml:"llm"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Resolver ResolverConfig `yaml:"resolver"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// AgentConfig identifies this agent on the chat transport
type AgentConfig struct {
	Name    string `yaml:"name" env:"AGENT_NAME" env-default:"icrc2_token_agent"`
	Address string `yaml:"address" env:"AGENT_ADDRESS"`
	Port    int    `yaml:"port" env:"PORT" env-default:"8001"`
	// Endpoint is the public URL of this agent's /submit route, published to Redis when set
	Endpoint string `yaml:"endpoint" env:"AGENT_ENDPOINT"`
	// Peers maps agent addresses to their submit endpoints, e.g. "agent1q...:http://host:8000/submit"
	Peers       map[string]string `yaml:"peers" env:"AGENT_PEERS"`
	SendTimeout int               `yaml:"send_timeout_seconds" env:"AGENT_SEND_TIMEOUT_SECONDS" env-default:"10"`
}

type LLMConfig struct {
	APIKey  string `yaml:"api_key" env:"ASI1_API_KEY"`
	BaseURL string `yaml:"base_url" env:"ASI1_BASE_URL" env-default:"https://api.asi1.ai/v1"`
	Model   string `yaml:"model" env:"ASI1_MODEL" env-default:"asi1-mini"`
	Timeout int    `yaml:"timeout_seconds" env:"ASI1_TIMEOUT_SECONDS" env-default:"60"`
}

type LedgerConfig struct {
	BaseURL    string `yaml:"base_url" env:"LEDGER_BASE_URL" env-default:"https://a4gq6-oaaaa-aaaab-qaa4q-cai.raw.icp0.io"`
	CanisterID string `yaml:"canister_id" env:"LEDGER_CANISTER_ID" env-default:"mkv5r-3aaaa-aaaab-qabsq-cai"`
	Timeout    int    `yaml:"timeout_seconds" env:"LEDGER_TIMEOUT_SECONDS" env-default:"30"`
}

// ResolverConfig enables the Redis-backed address book. Empty Addr disables it.
type ResolverConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Key      string `yaml:"peers_key" env:"REDIS_PEERS_KEY" env-default:"agent:endpoints"`
}

// StorageConfig enables the exchange log. Empty Driver disables it.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER"`
	DSN    string `yaml:"dsn" env:"STORAGE_DSN"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Load reads configuration from the yaml file at CONFIG_PATH (default config.yaml)
// and environment variables.
// Priority: Env Vars > Config File > Defaults
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit path. A missing file falls back to env vars only.
func LoadFile(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env config: %w", err)
	}
	return &cfg, nil
}

// Validate reports settings the server cannot start without
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("ASI1_API_KEY must be set")
	}
	if c.Ledger.BaseURL == "" {
		return fmt.Errorf("LEDGER_BASE_URL must be set")
	}
	switch c.Storage.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	return nil
}

func (c LLMConfig) RequestTimeout() time.Duration {
	return seconds(c.Timeout)
}

func (c LedgerConfig) RequestTimeout() time.Duration {
	return seconds(c.Timeout)
}

func (c AgentConfig) SendTimeoutDuration() time.Duration {
	return seconds(c.SendTimeout)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
