package conversation

import "context"

// Speaker is a role in the remote model's wire format.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerModel Speaker = "model"
)

// Message is one projected history entry.
type Message struct {
	Speaker Speaker
	Content string
}

// Request is a single submission to the remote chat model.
type Request struct {
	SystemInstruction string
	History           []Message
	Message           string
}

// SafetyRating is a per-category safety score attached to a candidate.
type SafetyRating struct {
	Category string
	Severity string
}

// Candidate is one response alternative returned by the model.
// An empty Text means no text could be retrieved.
type Candidate struct {
	Text          string
	FinishStatus  FinishStatus
	SafetyRatings []SafetyRating
}

// Usage reports token counts for a submission, when the provider supplies them.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Result is the model's answer to a Request.
type Result struct {
	Candidates []Candidate
	Usage      Usage
}

// ChatClient submits a conversation to a remote chat model.
// A returned error is a transport or provider-level failure.
type ChatClient interface {
	Submit(ctx context.Context, req Request) (*Result, error)
}

// Categorized is implemented by errors that know their failure category
// (for example "auth" or "quota").
type Categorized interface {
	Category() string
}
