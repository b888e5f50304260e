package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/asynkron/ember/internal/agent"
	"github.com/asynkron/ember/internal/audit"
	"github.com/asynkron/ember/internal/scene"
)

func startRunner(t *testing.T, backend agent.Handle, term *MemoryTerminal) (*Runner, *audit.Ring, chan error) {
	t.Helper()
	ring := audit.NewRing(16)
	r, err := NewRunner(RunnerOptions{
		Agent:        backend,
		Terminal:     term,
		Audit:        ring,
		App:          NewApp("test-model", nil),
		TickInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()
	return r, ring, done
}

func waitDone(t *testing.T, done chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("runner did not exit")
	}
}

func enterKey() Key { return Key{Kind: KeyEnter} }

func TestRunnerSubmitAuditsThenStreamsToScrollback(t *testing.T) {
	backend := agent.NewScriptedAgent([]agent.StreamChunk{
		{Delta: "Hello "},
		{Delta: "there"},
		{Done: true},
	})
	term := NewMemoryTerminal(80, 24)
	_, ring, done := startRunner(t, backend, term)

	term.PushText("hi agent")
	term.PushKeys(enterKey())

	require.Eventually(t, func() bool {
		return strings.Contains(scene.StripStyles(term.Scrollback()), "Hello there")
	}, 5*time.Second, 5*time.Millisecond, "completed reply must graduate to scrollback")

	events := ring.Events()
	require.NotEmpty(t, events)
	require.Equal(t, audit.KindMessageReceived, events[0].Kind)
	require.Equal(t, "hi agent", events[0].Content)
	require.Equal(t, "user", events[0].Participant)
	require.Equal(t, []string{"hi agent"}, backend.Sent())

	term.PushKeys(Key{Kind: KeyCtrlC})
	waitDone(t, done)
}

func TestRunnerStreamErrorIsRecoverable(t *testing.T) {
	backend := agent.NewScriptedAgent(
		[]agent.StreamChunk{{Delta: "part"}, {Err: errors.New("wire broke")}},
		[]agent.StreamChunk{{Delta: "recovered"}, {Done: true}},
	)
	term := NewMemoryTerminal(80, 24)
	_, _, done := startRunner(t, backend, term)

	term.PushText("one")
	term.PushKeys(enterKey())
	require.Eventually(t, func() bool {
		return strings.Contains(scene.StripStyles(term.Scrollback()), "wire broke")
	}, 5*time.Second, 5*time.Millisecond, "stream error must surface visibly")

	// The loop survived; a second exchange succeeds.
	term.PushText("two")
	term.PushKeys(enterKey())
	require.Eventually(t, func() bool {
		return strings.Contains(scene.StripStyles(term.Scrollback()), "recovered")
	}, 5*time.Second, 5*time.Millisecond)

	term.PushKeys(Key{Kind: KeyCtrlC})
	waitDone(t, done)
}

func TestRunnerQuitCommandExitsLoop(t *testing.T) {
	backend := agent.NewScriptedAgent()
	term := NewMemoryTerminal(80, 24)
	_, _, done := startRunner(t, backend, term)

	term.PushText("/quit")
	term.PushKeys(enterKey())
	waitDone(t, done)
}

func TestRunnerInputEOFExitsCleanly(t *testing.T) {
	backend := agent.NewScriptedAgent()
	term := NewMemoryTerminal(80, 24)
	_, _, done := startRunner(t, backend, term)

	term.CloseInput()
	waitDone(t, done)
}

// blockingAgent streams one delta and then holds the channel open until the
// request context is cancelled.
type blockingAgent struct {
	agent.ScriptedAgent
	started chan struct{}
}

func (b *blockingAgent) SendMessageStream(ctx context.Context, _ string) (<-chan agent.StreamChunk, error) {
	chunks := make(chan agent.StreamChunk, 2)
	chunks <- agent.StreamChunk{Delta: "never finishes"}
	close(b.started)
	go func() {
		<-ctx.Done()
		chunks <- agent.StreamChunk{Err: ctx.Err()}
		close(chunks)
	}()
	return chunks, nil
}

func TestRunnerEscCancelsActiveStream(t *testing.T) {
	backend := &blockingAgent{started: make(chan struct{})}
	term := NewMemoryTerminal(80, 24)
	_, _, done := startRunner(t, backend, term)

	term.PushText("talk")
	term.PushKeys(enterKey())
	select {
	case <-backend.started:
	case <-time.After(5 * time.Second):
		t.Fatalf("stream never started")
	}

	require.Eventually(t, func() bool {
		frame := scene.StripStyles(strings.Join(term.LastFrame(), "\n"))
		return strings.Contains(frame, "never finishes")
	}, 5*time.Second, 5*time.Millisecond)

	term.PushKeys(Key{Kind: KeyEsc})
	require.Eventually(t, func() bool {
		return strings.Contains(scene.StripStyles(term.Scrollback()), "cancelled")
	}, 5*time.Second, 5*time.Millisecond, "cancellation must finalize the partial reply")

	term.PushKeys(Key{Kind: KeyCtrlC})
	waitDone(t, done)
}

func TestRunnerClearCommandResetsBothSides(t *testing.T) {
	backend := agent.NewScriptedAgent([]agent.StreamChunk{{Delta: "answer"}, {Done: true}})
	term := NewMemoryTerminal(80, 24)
	_, ring, done := startRunner(t, backend, term)

	term.PushText("question")
	term.PushKeys(enterKey())
	require.Eventually(t, func() bool {
		return strings.Contains(scene.StripStyles(term.Scrollback()), "answer")
	}, 5*time.Second, 5*time.Millisecond)

	term.PushText("/clear")
	term.PushKeys(enterKey())
	require.Eventually(t, func() bool {
		return strings.Contains(scene.StripStyles(strings.Join(term.LastFullscreen(), "\n")), "Clear conversation")
	}, 5*time.Second, 5*time.Millisecond, "clear asks for confirmation on the alternate screen")

	term.PushKeys(Key{Kind: KeyRune, Rune: 'y'})
	require.Eventually(t, func() bool { return backend.ClearCount() == 1 },
		5*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		for _, e := range ring.Events() {
			if e.Kind == audit.KindHistoryCleared {
				return true
			}
		}
		return false
	}, 5*time.Second, 5*time.Millisecond)

	term.PushKeys(Key{Kind: KeyCtrlC})
	waitDone(t, done)
}

func TestRunnerModalUsesFullscreenPath(t *testing.T) {
	backend := agent.NewScriptedAgent()
	term := NewMemoryTerminal(80, 24)
	_, _, done := startRunner(t, backend, term)

	term.PushText("/clear")
	term.PushKeys(enterKey())
	require.Eventually(t, func() bool {
		return strings.Contains(scene.StripStyles(strings.Join(term.LastFullscreen(), "\n")), "Clear conversation")
	}, 5*time.Second, 5*time.Millisecond, "blocking modal must render on the alternate screen")

	// While the modal is up, inline frames stop.
	before := term.FrameCount()
	term.PushKeys(Key{Kind: KeyEsc})
	require.Eventually(t, func() bool { return term.FrameCount() > before },
		5*time.Second, 5*time.Millisecond, "dismissing the modal resumes inline frames")
	require.Equal(t, 0, backend.ClearCount(), "dismissal must not clear anything")

	term.PushText("/quit")
	term.PushKeys(enterKey())
	waitDone(t, done)
}

func TestRunnerModeChangeForwardedToAgent(t *testing.T) {
	backend := agent.NewScriptedAgent()
	term := NewMemoryTerminal(80, 24)
	r, _, done := startRunner(t, backend, term)

	term.PushKeys(Key{Kind: KeyShiftTab})
	require.Eventually(t, func() bool {
		return r.app.Mode() == agent.ModePlan
	}, 5*time.Second, 5*time.Millisecond)

	term.PushKeys(Key{Kind: KeyCtrlC})
	waitDone(t, done)
}

func TestRunnerUnsupportedCapabilityIsNonFatal(t *testing.T) {
	backend := agent.NewScriptedAgent()
	backend.DenyCapability("mode")
	term := NewMemoryTerminal(80, 24)
	_, _, done := startRunner(t, backend, term)

	term.PushKeys(Key{Kind: KeyShiftTab})
	// Still alive and interactive afterwards.
	term.PushText("/quit")
	term.PushKeys(enterKey())
	waitDone(t, done)
}

func TestRunnerRequiresCollaborators(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)
}
