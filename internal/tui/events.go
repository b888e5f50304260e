package tui

import "github.com/asynkron/ember/internal/agent"

// Event is one occurrence from the terminal: a key press or a resize. The
// terminal event channel closing means the input source is gone, which is the
// one fatal condition for the loop.
type Event interface{ event() }

// KeyEvent carries one decoded key press.
type KeyEvent struct{ Key Key }

// ResizeEvent carries new terminal dimensions.
type ResizeEvent struct{ Width, Height int }

func (KeyEvent) event()    {}
func (ResizeEvent) event() {}

// Msg is an internal message routed through the loop's queue. Stream chunks
// are split into these before they touch application state.
type Msg interface{ msg() }

// TextDeltaMsg appends streamed assistant text.
type TextDeltaMsg struct{ Text string }

// ThinkingDeltaMsg appends streamed reasoning text.
type ThinkingDeltaMsg struct{ Text string }

// ToolCallMsg announces a tool invocation.
type ToolCallMsg struct{ Call agent.ToolCall }

// UsageMsg updates the context-usage statusline.
type UsageMsg struct{ Usage agent.Usage }

// StreamCompleteMsg marks the active response as finished.
type StreamCompleteMsg struct{}

// StreamErrorMsg reports a mid-response failure; recoverable.
type StreamErrorMsg struct{ Err error }

// StreamCancelledMsg reports a user-initiated cancellation.
type StreamCancelledMsg struct{}

// ModelsLoadedMsg delivers the available model ids for the selector.
type ModelsLoadedMsg struct{ IDs []string }

// ModelsFetchFailedMsg reports that listing models failed.
type ModelsFetchFailedMsg struct{ Err error }

// ModelSwitchedMsg confirms the active model changed.
type ModelSwitchedMsg struct{ ID string }

// SystemNoteMsg adds an informational line to the transcript.
type SystemNoteMsg struct{ Text string }

func (TextDeltaMsg) msg()         {}
func (ThinkingDeltaMsg) msg()     {}
func (ToolCallMsg) msg()          {}
func (UsageMsg) msg()             {}
func (StreamCompleteMsg) msg()    {}
func (StreamErrorMsg) msg()       {}
func (StreamCancelledMsg) msg()   {}
func (ModelsLoadedMsg) msg()      {}
func (ModelsFetchFailedMsg) msg() {}
func (ModelSwitchedMsg) msg()     {}
func (SystemNoteMsg) msg()        {}

// Action is what handling an event or message resolves to. The runner
// processes actions through an explicit work list; a Quit anywhere in the
// chain ends the loop.
type Action interface{ action() }

// ContinueAction means nothing further to do.
type ContinueAction struct{}

// QuitAction ends the loop.
type QuitAction struct{}

// SendAction submits a user message: audit first, then a new stream.
type SendAction struct{ Text string }

// CancelAction aborts the active stream, if any.
type CancelAction struct{}

// ClearAction resets the conversation on both sides.
type ClearAction struct{}

// FetchModelsAction asks the backend for its model list.
type FetchModelsAction struct{}

// SwitchModelAction changes the active model.
type SwitchModelAction struct{ ID string }

// SetThinkingAction adjusts the backend's reasoning budget.
type SetThinkingAction struct{ Level string }

// SetModeAction forwards the chat mode to the backend.
type SetModeAction struct{ Mode agent.Mode }

// BatchAction groups several actions, processed in order.
type BatchAction struct{ Actions []Action }

func (ContinueAction) action()    {}
func (QuitAction) action()        {}
func (SendAction) action()        {}
func (CancelAction) action()      {}
func (ClearAction) action()       {}
func (FetchModelsAction) action() {}
func (SwitchModelAction) action() {}
func (SetThinkingAction) action() {}
func (SetModeAction) action()     {}
func (BatchAction) action()       {}
