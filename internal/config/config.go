package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General   GeneralConfig   `toml:"general"`
	API       APIConfig       `toml:"api"`
	Benchmark BenchmarkConfig `toml:"benchmark"`
	Judge     JudgeConfig     `toml:"judge"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DatabasePath string `toml:"database_path"`
	ModelsPath   string `toml:"models_path"`
	ExportDir    string `toml:"export_dir"`
}

// APIConfig holds OpenRouter API settings
type APIConfig struct {
	BaseURL string `toml:"base_url"`
}

// BenchmarkConfig holds per-run sampling settings
type BenchmarkConfig struct {
	Temperature         float64 `toml:"temperature"`
	MaxTokens           int     `toml:"max_tokens"`
	ModelTimeoutSeconds int     `toml:"model_timeout_seconds"`
}

// JudgeConfig holds evaluation settings
type JudgeConfig struct {
	Model string `toml:"model"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DatabasePath: filepath.Join(home, ".litmus", "litmus.db"),
			ModelsPath:   filepath.Join(home, ".litmus", "models.yaml"),
			ExportDir:    filepath.Join(home, ".litmus", "exports"),
		},
		API: APIConfig{
			BaseURL: "https://openrouter.ai/api/v1",
		},
		Benchmark: BenchmarkConfig{
			Temperature: 0.7,
			MaxTokens:   2048,
		},
		Judge: JudgeConfig{
			Model: "xiaomi/mimo-v2-flash:free",
		},
	}
}

// ModelTimeout returns the per-model streaming timeout, zero when disabled
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.Benchmark.ModelTimeoutSeconds) * time.Second
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Expand paths
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	cfg.General.ModelsPath = ExpandPath(cfg.General.ModelsPath)
	cfg.General.ExportDir = ExpandPath(cfg.General.ExportDir)

	return cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "litmus", "config.toml")
}
