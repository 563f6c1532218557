package conversation

import (
	"context"
	"log/slog"
	"time"
)

// Recorder observes completed submissions.
type Recorder interface {
	RecordSubmit(outcome string, duration time.Duration, inputTokens, outputTokens int64)
}

// Options configures an Engine.
type Options struct {
	// ModelID and Provider identify the remote model in logs and exports.
	ModelID  string
	Provider string

	// Verbose adds finish-code tables, safety ratings and error categories
	// to diagnostic turns.
	Verbose bool

	Logger   *slog.Logger
	Recorder Recorder

	// Now overrides the clock used to stamp turns.
	Now func() time.Time
}

// Engine submits user turns to a chat model and records both sides of the
// exchange in a transcript.
type Engine struct {
	client   ChatClient
	opts     Options
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

// NewEngine creates an engine that talks to client.
func NewEngine(client ChatClient, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		client:   client,
		opts:     opts,
		logger:   logger,
		recorder: opts.Recorder,
		now:      now,
	}
}

// Options returns the engine configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// Project converts a transcript into the history format of the remote API.
func Project(t Transcript) []Message {
	history := make([]Message, 0, t.Len())
	for _, turn := range t.turns {
		speaker := SpeakerUser
		if turn.Role == RoleAssistant {
			speaker = SpeakerModel
		}
		history = append(history, Message{Speaker: speaker, Content: turn.Content})
	}
	return history
}

// SubmitTurn sends userText with the full transcript history and appends the
// user turn and the interpreted assistant turn. Failures of the remote call
// become error turns; the returned transcript is always two turns longer.
func (e *Engine) SubmitTurn(ctx context.Context, t Transcript, systemInstruction, userText string) (Transcript, Turn) {
	req := Request{
		SystemInstruction: systemInstruction,
		History:           Project(t),
		Message:           userText,
	}
	userTurn := Turn{Role: RoleUser, Content: userText, Timestamp: e.now()}

	start := time.Now()
	res, err := e.client.Submit(ctx, req)
	duration := time.Since(start)

	content, kind := Interpret(res, err, e.opts.Verbose)
	assistantTurn := Turn{
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: e.now(),
		Kind:      kind,
	}

	attrs := []any{
		"model", e.opts.ModelID,
		"history_len", len(req.History),
		"outcome", string(kind),
		"duration_ms", duration.Milliseconds(),
	}
	if err != nil {
		e.logger.Warn("turn failed", append(attrs, "error", err)...)
	} else {
		e.logger.Debug("turn completed", attrs...)
	}

	if e.recorder != nil {
		var usage Usage
		if res != nil {
			usage = res.Usage
		}
		e.recorder.RecordSubmit(string(kind), duration, usage.InputTokens, usage.OutputTokens)
	}

	return t.Append(userTurn, assistantTurn), assistantTurn
}
