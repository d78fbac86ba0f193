// Package config loads application configuration from defaults, an
// optional YAML config file, and CSVINSIGHTS_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Generation service
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	Model       string  `mapstructure:"model" yaml:"model"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP/retry configuration for the generation transport
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Pipeline budgets
	MaxUploadMB        int `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	MaxStoredReports   int `mapstructure:"max_stored_reports" yaml:"max_stored_reports"`
	SampleRows         int `mapstructure:"sample_rows" yaml:"sample_rows"`
	TopValues          int `mapstructure:"top_values" yaml:"top_values"`
	DigestBudgetBytes  int `mapstructure:"digest_budget_bytes" yaml:"digest_budget_bytes"`
	MaxDigestColumns   int `mapstructure:"max_digest_columns" yaml:"max_digest_columns"`
	ContextTokenBudget int `mapstructure:"context_token_budget" yaml:"context_token_budget"`

	// Server
	ListenAddr  string `mapstructure:"listen_addr" yaml:"listen_addr"`
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat   string `mapstructure:"log_format" yaml:"log_format"`
}

// MaxUploadBytes converts the configured megabyte cap to bytes.
func (c *Global) MaxUploadBytes() int { return c.MaxUploadMB << 20 }

// Save writes the configuration to cfgFile, or to
// ~/.csvinsights/config.yaml when cfgFile is empty.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".csvinsights")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CSVINSIGHTS")
	v.AutomaticEnv()

	// Keys need a default registered for env-only values to unmarshal.
	v.SetDefault("api_key", "")
	v.SetDefault("database_url", "")
	v.SetDefault("model", "llama-3.3-70b-versatile")
	v.SetDefault("base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("max_tokens", 800)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("max_upload_mb", 5)
	v.SetDefault("max_stored_reports", 5)
	v.SetDefault("sample_rows", 20)
	v.SetDefault("top_values", 8)
	v.SetDefault("digest_budget_bytes", 4096)
	v.SetDefault("max_digest_columns", 30)
	v.SetDefault("context_token_budget", 1500)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".csvinsights")
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
