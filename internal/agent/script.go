package agent

import (
	"context"
	"sync"
)

// ScriptedAgent replays canned chunk sequences, one per SendMessageStream
// call. Hosts and tests use it to drive the UI without a network.
type ScriptedAgent struct {
	mu       sync.Mutex
	scripts  [][]StreamChunk
	next     int
	model    string
	models   []string
	mode     Mode
	sent     []string
	cleared  int
	supports map[string]bool
}

// NewScriptedAgent builds an agent that replays the given chunk sequences in
// order. A Done chunk is appended to any script that lacks a terminal chunk.
func NewScriptedAgent(scripts ...[]StreamChunk) *ScriptedAgent {
	return &ScriptedAgent{
		scripts: scripts,
		model:   "scripted-1",
		models:  []string{"scripted-1", "scripted-2"},
		mode:    ModeNormal,
		supports: map[string]bool{
			"thinking": true,
			"mode":     true,
		},
	}
}

// DenyCapability makes the named capability return ErrNotSupported.
func (s *ScriptedAgent) DenyCapability(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supports[name] = false
}

// Sent returns every submitted message in order.
func (s *ScriptedAgent) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

// ClearCount reports how many times the history was cleared.
func (s *ScriptedAgent) ClearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared
}

func (s *ScriptedAgent) SendMessageStream(ctx context.Context, text string) (<-chan StreamChunk, error) {
	s.mu.Lock()
	s.sent = append(s.sent, text)
	var script []StreamChunk
	if s.next < len(s.scripts) {
		script = s.scripts[s.next]
		s.next++
	}
	s.mu.Unlock()

	chunks := make(chan StreamChunk, len(script)+1)
	go func() {
		defer close(chunks)
		terminal := false
		for _, c := range script {
			select {
			case chunks <- c:
			case <-ctx.Done():
				chunks <- StreamChunk{Err: ctx.Err()}
				return
			}
			if c.Done || c.Err != nil {
				terminal = true
			}
		}
		if !terminal {
			chunks <- StreamChunk{Done: true}
		}
	}()
	return chunks, nil
}

func (s *ScriptedAgent) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
	return nil
}

func (s *ScriptedAgent) SwitchModel(_ context.Context, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
	return nil
}

func (s *ScriptedAgent) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

func (s *ScriptedAgent) FetchAvailableModels(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.models...), nil
}

func (s *ScriptedAgent) SetThinkingBudget(string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.supports["thinking"] {
		return ErrNotSupported
	}
	return nil
}

func (s *ScriptedAgent) SetMode(mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.supports["mode"] {
		return ErrNotSupported
	}
	s.mode = mode
	return nil
}
