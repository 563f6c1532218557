// Package config loads profilechat settings from defaults, an optional YAML
// file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported LLM providers.
const (
	ProviderGoogleAI  = "googleai"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-3-pro-preview"

var (
	// ErrMissingCredential means the selected provider has no API key.
	ErrMissingCredential = errors.New("missing API credential")

	// ErrUnsupportedProvider means the provider name is not recognized.
	ErrUnsupportedProvider = errors.New("unsupported LLM provider")
)

// Config holds all configuration values.
type Config struct {
	// Model provider
	LLMProvider     string `yaml:"provider"`
	LLMModel        string `yaml:"model"`
	GoogleAPIKey    string `yaml:"google_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OllamaHost      string `yaml:"ollama_host"`
	MaxTokens       int    `yaml:"max_tokens"`

	// Conversation
	PromptFile    string `yaml:"prompt_file"`
	SystemPrompt  string `yaml:"system_prompt"`
	VerboseErrors bool   `yaml:"verbose_errors"`
	ExportDir     string `yaml:"export_dir"`

	// Logging
	LogFile      string     `yaml:"log_file"`
	LogLevelName string     `yaml:"log_level"`
	LogLevel     slog.Level `yaml:"-"`

	// Server
	ServerAddr string `yaml:"server_addr"`
	ServerURL  string `yaml:"server_url"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LLMProvider:   ProviderGoogleAI,
		LLMModel:      DefaultModel,
		OllamaHost:    "http://localhost:11434",
		PromptFile:    "prompt.txt",
		VerboseErrors: true,
		ExportDir:     "logs",
		LogFile:       "/tmp/profilechat.log",
		LogLevelName:  "INFO",
		LogLevel:      slog.LevelInfo,
		ServerAddr:    ":8484",
		ServerURL:     "ws://localhost:8484/ws",
	}
}

// Load reads configuration. configPath may be empty, in which case
// PROFILECHAT_CONFIG and ./profilechat.yaml are tried.
func Load(configPath string) (Config, error) {
	cfg := Defaults()

	if path := discoverConfigFile(configPath); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)
	return cfg, nil
}

func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("PROFILECHAT_CONFIG"); envPath != "" {
		return envPath
	}
	if _, err := os.Stat("profilechat.yaml"); err == nil {
		return "profilechat.yaml"
	}
	return ""
}

func applyEnv(cfg *Config) {
	cfg.LLMProvider = getEnv("PROFILECHAT_PROVIDER", cfg.LLMProvider)
	cfg.LLMModel = getEnv("PROFILECHAT_MODEL", cfg.LLMModel)
	cfg.GoogleAPIKey = getEnv("GOOGLE_API_KEY", cfg.GoogleAPIKey)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)
	cfg.MaxTokens = getEnvInt("PROFILECHAT_MAX_TOKENS", cfg.MaxTokens)

	cfg.PromptFile = getEnv("PROFILECHAT_PROMPT_FILE", cfg.PromptFile)
	cfg.SystemPrompt = getEnv("PROFILECHAT_SYSTEM_PROMPT", cfg.SystemPrompt)
	cfg.VerboseErrors = getEnvBool("PROFILECHAT_VERBOSE_ERRORS", cfg.VerboseErrors)
	cfg.ExportDir = getEnv("PROFILECHAT_LOG_DIR", cfg.ExportDir)

	cfg.LogFile = getEnv("PROFILECHAT_LOG_FILE", cfg.LogFile)
	cfg.LogLevelName = getEnv("PROFILECHAT_LOG_LEVEL", cfg.LogLevelName)

	cfg.ServerAddr = getEnv("PROFILECHAT_SERVER_ADDR", cfg.ServerAddr)
	cfg.ServerURL = getEnv("PROFILECHAT_SERVER_URL", cfg.ServerURL)
}

// Validate checks that the selected provider is usable.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGoogleAI:
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("%w: set GOOGLE_API_KEY", ErrMissingCredential)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingCredential)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("%w: set ANTHROPIC_API_KEY", ErrMissingCredential)
		}
	case ProviderOllama:
		// local server, no credential
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedProvider, c.LLMProvider)
	}
	if c.LLMModel == "" {
		return errors.New("model name required")
	}
	return nil
}

// ProviderName returns the display name of the configured provider.
func (c Config) ProviderName() string {
	switch c.LLMProvider {
	case ProviderGoogleAI:
		return "Google Gemini"
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderAnthropic:
		return "Anthropic"
	case ProviderOllama:
		return "Ollama"
	default:
		return c.LLMProvider
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
