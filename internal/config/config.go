package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Workers  int     `yaml:"workers"` // polling workers
	AdminIDs []int64 `yaml:"admin_ids"`
	Support  string  `yaml:"support_url"` // contact link shown on failures
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type LedgerConfig struct {
	Path string `yaml:"path"` // JSON document file
}

type RedisConfig struct {
	URL      string `yaml:"url"` // empty disables redis (in-memory state)
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ClassifierConfig struct {
	GeminiKey     string        `yaml:"gemini_key"`
	GeminiURL     string        `yaml:"gemini_url"`
	OpenAIKey     string        `yaml:"openai_key"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	Model         string        `yaml:"model"`
	Timeout       time.Duration `yaml:"timeout"` // whole-classification ceiling
}

type UpstreamConfig struct {
	APIURL    string        `yaml:"api_url"`
	APIKey    string        `yaml:"api_key"`
	SquadUUID string        `yaml:"squad_uuid"` // target access group
	Timeout   time.Duration `yaml:"timeout"`
}

type WebConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type Config struct {
	Bot        BotConfig        `yaml:"bot"`
	Log        LogConfig        `yaml:"log"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Redis      RedisConfig      `yaml:"redis"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Web        WebConfig        `yaml:"web"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.Support == "" {
		cfg.Bot.Support = "https://t.me/ospeto"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = "data/transactions.json"
	}
	if cfg.Classifier.Model == "" {
		cfg.Classifier.Model = "gemini-2.5-flash"
	}
	if cfg.Classifier.Timeout <= 0 {
		cfg.Classifier.Timeout = time.Minute
	}
	if cfg.Upstream.Timeout <= 0 {
		cfg.Upstream.Timeout = 15 * time.Second
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8081
	}

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Upstream.APIURL == "" || cfg.Upstream.APIKey == "" {
		return nil, errors.New("upstream.api_url and upstream.api_key are required")
	}
	if cfg.Classifier.GeminiKey == "" && cfg.Classifier.OpenAIKey == "" && !dev {
		return nil, errors.New("classifier: set classifier.gemini_key or classifier.openai_key")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
