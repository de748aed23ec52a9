package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

const (
	DefaultGroqModel       = "meta-llama/llama-4-scout-17b-16e-instruct"
	DefaultGroqBaseURL     = "https://api.groq.com/openai/v1"
	DefaultClassifierModel = "hamzab/roberta-fake-news-classification"
	DefaultHFBaseURL       = "https://api-inference.huggingface.co/models"
	DefaultSecretsPath     = ".secrets/secrets.toml"
	DefaultEnvFile         = ".env"
)

type GroqConfig struct {
	Model          string  `json:"model"`
	BaseURL        string  `json:"base_url"`
	TimeoutSeconds int     `json:"timeout_seconds"`
	Temperature    float32 `json:"temperature"`
	MaxTokens      int     `json:"max_tokens"`
	MaxConcurrent  int     `json:"max_concurrent"`
}

// HuggingFaceConfig configures the classifier. BreakerThreshold is the number
// of consecutive failures before calls are short-circuited.
type HuggingFaceConfig struct {
	Model                  string `json:"model"`
	BaseURL                string `json:"base_url"`
	TimeoutSeconds         int    `json:"timeout_seconds"`
	BreakerThreshold       int    `json:"breaker_threshold"`
	BreakerCooldownSeconds int    `json:"breaker_cooldown_seconds"`
}

type Config struct {
	Server struct {
		Host        string   `json:"host"`
		Port        int      `json:"port"`
		Subpath     string   `json:"subpath"`
		JWTSecret   string   `json:"jwtSecret"`
		CORSOrigins []string `json:"cors_origins"`
	} `json:"server"`
	Database struct {
		Driver string `json:"driver"` // "postgres" or "sqlite"
		DSN    string `json:"dsn"`
	} `json:"database"`
	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
	Groq        GroqConfig        `json:"groq"`
	HuggingFace HuggingFaceConfig `json:"huggingface"`
	Secrets     struct {
		Path    string `json:"path"`
		EnvFile string `json:"env_file"`
	} `json:"secrets"`
	Cache struct {
		Enabled    bool `json:"enabled"`
		TTLMinutes int  `json:"ttl_minutes"`
	} `json:"cache"`
	Article struct {
		TimeoutSeconds int    `json:"timeout_seconds"`
		UserAgent      string `json:"user_agent"`
		MaxSizeMB      int    `json:"max_size_mb"`
	} `json:"article"`
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads config.json from disk (singleton)
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		raw, err := os.ReadFile(path)
		if err != nil {
			cfgErr = fmt.Errorf("failed to read config file: %w", err)
			return
		}
		var c Config
		if err := json.Unmarshal(raw, &c); err != nil {
			cfgErr = fmt.Errorf("invalid config format: %w", err)
			return
		}
		// Minimal validation
		if c.Server.JWTSecret == "" {
			cfgErr = errors.New("jwtSecret must be set in config")
			return
		}
		if c.Database.Driver != "" && c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
			cfgErr = fmt.Errorf("unsupported database driver %q", c.Database.Driver)
			return
		}
		c.applyDefaults()
		cfg = &c
	})
	return cfg, cfgErr
}

// ResetConfigForTest resets the singleton state (for testing only)
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Groq.Model == "" {
		c.Groq.Model = DefaultGroqModel
	}
	if c.Groq.BaseURL == "" {
		c.Groq.BaseURL = DefaultGroqBaseURL
	}
	if c.HuggingFace.Model == "" {
		c.HuggingFace.Model = DefaultClassifierModel
	}
	if c.HuggingFace.BaseURL == "" {
		c.HuggingFace.BaseURL = DefaultHFBaseURL
	}
	if c.HuggingFace.TimeoutSeconds <= 0 {
		c.HuggingFace.TimeoutSeconds = 60
	}
	if c.HuggingFace.BreakerThreshold <= 0 {
		c.HuggingFace.BreakerThreshold = 5
	}
	if c.HuggingFace.BreakerCooldownSeconds <= 0 {
		c.HuggingFace.BreakerCooldownSeconds = 30
	}
	if c.Secrets.Path == "" {
		c.Secrets.Path = DefaultSecretsPath
	}
	if c.Secrets.EnvFile == "" {
		c.Secrets.EnvFile = DefaultEnvFile
	}
	if c.Cache.TTLMinutes <= 0 {
		c.Cache.TTLMinutes = 24 * 60
	}
	if c.Article.TimeoutSeconds <= 0 {
		c.Article.TimeoutSeconds = 30
	}
	if c.Article.UserAgent == "" {
		c.Article.UserAgent = "Mozilla/5.0 (compatible; fakenews-detector/1.0)"
	}
	if c.Article.MaxSizeMB <= 0 {
		c.Article.MaxSizeMB = 10
	}
}

// LoadEnv loads the dotenv file named by secrets.env_file.
func (c *Config) LoadEnv() error {
	return LoadEnvFile(c.Secrets.EnvFile)
}

// LoadEnvFile populates the process environment from a dotenv file.
// Variables already set in the environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	log.Printf("[Config] Loaded environment from %s", path)
	return nil
}
