// Package conversation implements the conversation engine: the transcript of
// a chat session, its projection onto the remote model's wire format, and
// the interpretation of model responses into transcript turns.
package conversation

import (
	"slices"
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TurnKind records which interpretation outcome produced an assistant turn.
type TurnKind string

const (
	KindNormal    TurnKind = "normal"
	KindTruncated TurnKind = "truncated"
	KindBlocked   TurnKind = "blocked"
	KindAnomalous TurnKind = "anomalous"
	KindError     TurnKind = "error"
)

// Turn is one entry of a transcript.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Kind      TurnKind  `json:"kind,omitempty"`
}

// Transcript is an append-only, ordered sequence of turns.
// The zero value is an empty transcript.
type Transcript struct {
	turns []Turn
}

// NewTranscript builds a transcript from existing turns, in order.
func NewTranscript(turns ...Turn) Transcript {
	return Transcript{turns: slices.Clone(turns)}
}

// Len returns the number of turns.
func (t Transcript) Len() int {
	return len(t.turns)
}

// At returns the turn at index i.
func (t Transcript) At(i int) Turn {
	return t.turns[i]
}

// Turns returns a copy of the turns in conversation order.
func (t Transcript) Turns() []Turn {
	return slices.Clone(t.turns)
}

// Append returns a new transcript with turns added at the end.
// The receiver is left unchanged.
func (t Transcript) Append(turns ...Turn) Transcript {
	return Transcript{turns: append(slices.Clip(t.turns), turns...)}
}

// Reset discards a transcript unconditionally.
func Reset() Transcript {
	return Transcript{}
}
