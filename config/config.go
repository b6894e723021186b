package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        int         `mapstructure:"port"`
	DataFile    string      `mapstructure:"data_file"`
	SeedFile    string      `mapstructure:"seed_file"`
	UniqueNames bool        `mapstructure:"unique_names"`
	Debug       bool        `mapstructure:"debug"`
	LLM         LLMConfig   `mapstructure:"llm"`
	Redis       RedisConfig `mapstructure:"redis"`
}

type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxSteps    int           `mapstructure:"max_steps"`
}

// RedisConfig enables the chat reply cache when Addr is set
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

func DefaultConfig() *Config {
	return &Config{
		Port:     3000,
		DataFile: "data/alumnos.json",
		LLM: LLMConfig{
			BaseURL:     "http://localhost:11434/v1",
			APIKey:      "ollama",
			Model:       "qwen3:1.7b",
			Temperature: 0.75,
			Timeout:     2 * time.Minute,
			MaxSteps:    8,
		},
		Redis: RedisConfig{
			TTL: 10 * time.Minute,
		},
	}
}

// Load reads config.yaml (from path, or the working directory when path is
// empty) and overlays ROSTER_* environment variables. PORT is honoured as
// well. A missing config file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ROSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("port", "ROSTER_PORT", "PORT"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that are
// absent from the config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("port", cfg.Port)
	v.SetDefault("data_file", cfg.DataFile)
	v.SetDefault("seed_file", cfg.SeedFile)
	v.SetDefault("unique_names", cfg.UniqueNames)
	v.SetDefault("debug", cfg.Debug)
	v.SetDefault("llm.base_url", cfg.LLM.BaseURL)
	v.SetDefault("llm.api_key", cfg.LLM.APIKey)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.temperature", cfg.LLM.Temperature)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)
	v.SetDefault("llm.max_steps", cfg.LLM.MaxSteps)
	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.password", cfg.Redis.Password)
	v.SetDefault("redis.db", cfg.Redis.DB)
	v.SetDefault("redis.ttl", cfg.Redis.TTL)
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.DataFile == "" {
		return fmt.Errorf("config: data_file is required")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("config: llm.base_url is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("config: llm.model is required")
	}
	if c.LLM.MaxSteps < 1 {
		return fmt.Errorf("config: llm.max_steps must be at least 1, got %d", c.LLM.MaxSteps)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("config: llm.timeout must be positive")
	}
	if c.Redis.Addr != "" && c.Redis.TTL <= 0 {
		return fmt.Errorf("config: redis.ttl must be positive when redis.addr is set")
	}
	return nil
}
