package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PROFILECHAT_CONFIG", "PROFILECHAT_PROVIDER", "PROFILECHAT_MODEL",
		"GOOGLE_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OLLAMA_HOST",
		"PROFILECHAT_MAX_TOKENS", "PROFILECHAT_PROMPT_FILE", "PROFILECHAT_SYSTEM_PROMPT",
		"PROFILECHAT_VERBOSE_ERRORS", "PROFILECHAT_LOG_DIR", "PROFILECHAT_LOG_FILE",
		"PROFILECHAT_LOG_LEVEL", "PROFILECHAT_SERVER_ADDR", "PROFILECHAT_SERVER_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderGoogleAI, cfg.LLMProvider)
	assert.Equal(t, DefaultModel, cfg.LLMModel)
	assert.Equal(t, "prompt.txt", cfg.PromptFile)
	assert.Equal(t, "logs", cfg.ExportDir)
	assert.True(t, cfg.VerboseErrors)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "profilechat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: OpenAI
model: gpt-4o-mini
verbose_errors: false
export_dir: /var/log/chats
log_level: debug
max_tokens: 256
`), 0644))

	t.Setenv("PROFILECHAT_MODEL", "gpt-4.1")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider, "provider is normalized")
	assert.Equal(t, "gpt-4.1", cfg.LLMModel, "env overrides file")
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.False(t, cfg.VerboseErrors)
	assert.Equal(t, "/var/log/chats", cfg.ExportDir)
	assert.Equal(t, 256, cfg.MaxTokens)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDiscoversFromEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: from-file\n"), 0644))
	t.Setenv("PROFILECHAT_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.LLMModel)
}

func TestLoadBadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvParsing(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("PROFILECHAT_VERBOSE_ERRORS", "not-a-bool")
	t.Setenv("PROFILECHAT_MAX_TOKENS", "abc")
	t.Setenv("PROFILECHAT_LOG_LEVEL", "warning")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.VerboseErrors, "invalid bool keeps default")
	assert.Equal(t, 0, cfg.MaxTokens, "invalid int keeps default")
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"google without key", func(c *Config) {}, ErrMissingCredential},
		{"google with key", func(c *Config) { c.GoogleAPIKey = "k" }, nil},
		{"openai without key", func(c *Config) { c.LLMProvider = ProviderOpenAI }, ErrMissingCredential},
		{"anthropic without key", func(c *Config) { c.LLMProvider = ProviderAnthropic }, ErrMissingCredential},
		{"ollama needs no key", func(c *Config) { c.LLMProvider = ProviderOllama }, nil},
		{"unknown provider", func(c *Config) { c.LLMProvider = "bard" }, ErrUnsupportedProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestProviderName(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "Google Gemini", cfg.ProviderName())
	cfg.LLMProvider = ProviderOllama
	assert.Equal(t, "Ollama", cfg.ProviderName())
}

func TestLoadSystemPrompt(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.txt")
	require.NoError(t, os.WriteFile(promptPath, []byte("  Profile the user carefully.\n"), 0644))
	emptyPath := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(emptyPath, []byte("\n\n"), 0644))

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"inline override wins", Config{SystemPrompt: "inline", PromptFile: promptPath}, "inline"},
		{"file is trimmed", Config{PromptFile: promptPath}, "Profile the user carefully."},
		{"missing file falls back", Config{PromptFile: filepath.Join(dir, "missing.txt")}, DefaultSystemPrompt},
		{"empty file falls back", Config{PromptFile: emptyPath}, DefaultSystemPrompt},
		{"no file configured", Config{}, DefaultSystemPrompt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadSystemPrompt(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLoggerFanout(t *testing.T) {
	var console, file bytes.Buffer
	logger := NewLogger(&console, &file, slog.LevelInfo)

	logger.Info("turn completed", "outcome", "normal")
	logger.Debug("hidden")

	assert.Contains(t, console.String(), "outcome=normal")
	assert.NotContains(t, console.String(), "hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(file.String())), &entry))
	assert.Equal(t, "turn completed", entry["msg"])
	assert.Equal(t, "normal", entry["outcome"])
}

func TestNewLoggerFileOnly(t *testing.T) {
	var file bytes.Buffer
	logger := NewLogger(nil, &file, slog.LevelDebug)

	logger.Debug("quiet")
	assert.Contains(t, file.String(), `"msg":"quiet"`)
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo, false)
	logger.Info("hello")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
