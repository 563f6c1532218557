// Package llm adapts langchaingo chat models to the conversation engine.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/raphaelgruber/profilechat/internal/config"
	"github.com/raphaelgruber/profilechat/internal/conversation"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Model wraps a langchaingo LLM as a conversation.ChatClient.
type Model struct {
	llm       llms.Model
	modelName string
	provider  string
	maxTokens int
	logger    *slog.Logger
}

// Compile-time check that Model implements conversation.ChatClient.
var _ conversation.ChatClient = (*Model)(nil)

// NewModel creates an LLM model based on configuration.
func NewModel(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderGoogleAI:
		if cfg.GoogleAPIKey == "" {
			return nil, fmt.Errorf("Google API key required")
		}
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.GoogleAPIKey),
			googleai.WithDefaultModel(cfg.LLMModel),
			googleai.WithHarmThreshold(googleai.HarmBlockNone),
		)
		if err != nil {
			return nil, fmt.Errorf("create googleai model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Model{
		llm:       model,
		modelName: cfg.LLMModel,
		provider:  cfg.LLMProvider,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// Submit sends the system instruction, the history and the new message as
// one chat completion and converts the provider response.
func (m *Model) Submit(ctx context.Context, req conversation.Request) (*conversation.Result, error) {
	messages := buildMessages(req)

	var opts []llms.CallOption
	if m.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(m.maxTokens))
	}

	m.logger.Debug("submitting turn", "model", m.modelName, "provider", m.provider, "history_len", len(req.History))

	start := time.Now()
	resp, err := m.llm.GenerateContent(ctx, messages, opts...)
	duration := time.Since(start)

	if err != nil {
		if res, ok := blockedResult(err); ok {
			m.logger.Info("response blocked by provider", "model", m.modelName, "candidates", len(res.Candidates), "duration_ms", duration.Milliseconds())
			return res, nil
		}
		apiErr := newAPIError(err)
		level := slog.LevelWarn
		if errors.Is(apiErr, ErrFatalAPI) {
			level = slog.LevelError
		}
		m.logger.Log(ctx, level, "generate failed", "model", m.modelName, "category", apiErr.Category(), "duration_ms", duration.Milliseconds(), "error", err)
		return nil, apiErr
	}

	res := convertResponse(resp)
	var stop string
	if resp != nil && len(resp.Choices) > 0 && resp.Choices[0] != nil {
		stop = resp.Choices[0].StopReason
	}
	m.logger.Debug("generate complete",
		"model", m.modelName,
		"candidates", len(res.Candidates),
		"stop_reason", stop,
		"input_tokens", res.Usage.InputTokens,
		"output_tokens", res.Usage.OutputTokens,
		"duration_ms", duration.Milliseconds(),
	)
	return res, nil
}

// buildMessages maps a request onto langchaingo messages: the system
// instruction first, then the history in order, then the new user message.
func buildMessages(req conversation.Request) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemInstruction))
	}
	for _, msg := range req.History {
		role := llms.ChatMessageTypeHuman
		if msg.Speaker == conversation.SpeakerModel {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, msg.Content))
	}
	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Message))
}

// blockedResult converts provider "blocked" errors into results: a response
// with no candidates or a candidate carrying the blocking finish reason.
// genai reports a block on any candidate, so only a block on the first one
// becomes a result; other blocks stay errors.
func blockedResult(err error) (*conversation.Result, bool) {
	if errors.Is(err, googleai.ErrNoContentInResponse) {
		return &conversation.Result{}, true
	}

	var blocked *genai.BlockedError
	if !errors.As(err, &blocked) {
		return nil, false
	}
	if blocked.Candidate == nil {
		// the prompt itself was blocked
		return &conversation.Result{}, true
	}
	c := blocked.Candidate
	if c.Index != 0 {
		return nil, false
	}
	return &conversation.Result{Candidates: []conversation.Candidate{{
		Text:          candidateText(c),
		FinishStatus:  conversation.FinishStatus(c.FinishReason),
		SafetyRatings: convertSafetyRatings(c.SafetyRatings),
	}}}, true
}

func candidateText(c *genai.Candidate) string {
	if c.Content == nil {
		return ""
	}
	var text string
	for _, part := range c.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	return text
}
