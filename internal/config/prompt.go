package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// DefaultSystemPrompt is used when no prompt file or override is present.
const DefaultSystemPrompt = "Your goal is to profile the user you are talking to. " +
	"The possible profiles are: A) the playful type; B) the serious type. " +
	"Ask a few questions to understand which type of user you are talking to."

// LoadSystemPrompt returns the system instruction for new sessions:
// the inline override, else the prompt file, else DefaultSystemPrompt.
func LoadSystemPrompt(cfg Config) (string, error) {
	if s := strings.TrimSpace(cfg.SystemPrompt); s != "" {
		return s, nil
	}
	if cfg.PromptFile == "" {
		return DefaultSystemPrompt, nil
	}

	data, err := os.ReadFile(cfg.PromptFile)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultSystemPrompt, nil
	}
	if err != nil {
		return "", fmt.Errorf("read prompt file: %w", err)
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return DefaultSystemPrompt, nil
	}
	return prompt, nil
}
