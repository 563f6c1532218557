package conversation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Greeting is shown before the first message of a session.
const Greeting = "👋 Hi! I'm here to get to know you better. Start by writing me a message!"

// Session owns the transcript of one conversation.
// A session must not be used by more than one submission at a time.
type Session struct {
	ID                string
	SystemInstruction string

	engine     *Engine
	exporter   *Exporter
	transcript Transcript
}

// NewSession starts an empty session.
func NewSession(engine *Engine, exporter *Exporter, systemInstruction string) *Session {
	return &Session{
		ID:                uuid.New().String(),
		SystemInstruction: systemInstruction,
		engine:            engine,
		exporter:          exporter,
	}
}

// Submit sends userText and returns the assistant turn appended for it.
func (s *Session) Submit(ctx context.Context, userText string) Turn {
	var reply Turn
	s.transcript, reply = s.engine.SubmitTurn(ctx, s.transcript, s.SystemInstruction, userText)
	return reply
}

// Engine returns the engine serving the session.
func (s *Session) Engine() *Engine {
	return s.engine
}

// Reset clears the transcript.
func (s *Session) Reset() {
	s.transcript = Reset()
}

// Transcript returns the current transcript.
func (s *Session) Transcript() Transcript {
	return s.transcript
}

// Len returns the number of turns in the transcript.
func (s *Session) Len() int {
	return s.transcript.Len()
}

// Started reports whether any message has been exchanged.
func (s *Session) Started() bool {
	return s.transcript.Len() > 0
}

// Export writes the transcript to a file and returns its path.
func (s *Session) Export() (string, error) {
	if s.exporter == nil {
		return "", fmt.Errorf("%w: no exporter configured", ErrExport)
	}
	return s.exporter.Export(s.transcript, s.engine.Options().ModelID)
}
