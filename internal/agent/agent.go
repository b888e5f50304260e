// Package agent defines the conversational backend the chat client talks to:
// a streaming send operation plus a set of optional capabilities. Backends
// that lack a capability return ErrNotSupported, which callers treat as a
// warning, never a failure.
package agent

import (
	"context"
	"errors"
)

// ErrNotSupported is returned by capability methods a backend does not
// implement.
var ErrNotSupported = errors.New("agent: capability not supported")

// ToolCall is one tool invocation announced by the assistant.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Usage reports token consumption for the conversation so far.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	ContextWindow    int
}

// StreamChunk is one unit of streamed output. Exactly the set fields are
// meaningful: a text delta, a reasoning delta, an announced tool call, a
// usage update, a terminal error, or the Done marker. The channel closes
// after the final chunk.
type StreamChunk struct {
	Delta     string
	Reasoning string
	ToolCall  *ToolCall
	Usage     *Usage
	Err       error
	Done      bool
}

// Mode selects the conversational behavior of the backend.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModePlan   Mode = "plan"
	ModeAuto   Mode = "auto"
)

// NextMode cycles normal → plan → auto → normal.
func NextMode(m Mode) Mode {
	switch m {
	case ModeNormal:
		return ModePlan
	case ModePlan:
		return ModeAuto
	default:
		return ModeNormal
	}
}

// Handle is the conversational backend. SendMessageStream is the one
// mandatory operation; everything else is a capability.
type Handle interface {
	// SendMessageStream submits text and returns a channel of chunks. The
	// channel closes after a Done or Err chunk. Cancelling ctx aborts the
	// stream.
	SendMessageStream(ctx context.Context, text string) (<-chan StreamChunk, error)

	// ClearHistory forgets the conversation.
	ClearHistory() error

	// SwitchModel changes the active model.
	SwitchModel(ctx context.Context, model string) error

	// FetchAvailableModels lists model ids the backend can switch to.
	FetchAvailableModels(ctx context.Context) ([]string, error)

	// SetThinkingBudget adjusts how much reasoning the backend performs.
	SetThinkingBudget(level string) error

	// SetMode switches the conversational mode.
	SetMode(mode Mode) error

	// Model reports the active model id.
	Model() string
}
