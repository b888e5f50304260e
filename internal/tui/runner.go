package tui

import (
	"context"
	"errors"
	"time"

	"github.com/asynkron/ember/internal/agent"
	"github.com/asynkron/ember/internal/audit"
	"github.com/asynkron/ember/internal/logging"
	"github.com/asynkron/ember/internal/scene"
)

// Terminal is the terminal-control collaborator: it delivers input events,
// writes composited frames, and receives graduated scrollback blocks. The
// event channel closing signals the input source is gone, which ends the
// session.
type Terminal interface {
	scene.Sink
	Size() (width, height int)
	Events() <-chan Event
	WriteFrame(lines []string) error
	// WriteFullscreen paints on the alternate screen while a blocking modal
	// is up; the next WriteFrame or WriteBlock returns to the inline viewport.
	WriteFullscreen(lines []string) error
	ForceRedraw()
	Close() error
}

// RunnerOptions configures a session runner.
type RunnerOptions struct {
	Agent    agent.Handle
	Terminal Terminal
	Audit    audit.Sink
	App      *App
	Logger   logging.Logger

	// TickInterval drives time-based redraws; defaults to 50ms.
	TickInterval time.Duration
	// MsgBuffer sizes the internal message queue.
	MsgBuffer int
}

func (o *RunnerOptions) setDefaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = 50 * time.Millisecond
	}
	if o.MsgBuffer <= 0 {
		o.MsgBuffer = 64
	}
	if o.Logger == nil {
		o.Logger = &logging.NoOpLogger{}
	}
	if o.Audit == nil {
		o.Audit = audit.NewRing(0)
	}
}

func (o *RunnerOptions) validate() error {
	if o.Agent == nil {
		return errors.New("tui: agent is required")
	}
	if o.Terminal == nil {
		return errors.New("tui: terminal is required")
	}
	if o.App == nil {
		return errors.New("tui: app is required")
	}
	return nil
}

// Runner drives one chat session: a cooperative loop that renders a frame,
// drains the internal queue, then suspends on a biased wait over terminal
// input, the active stream and a tick. The graduation ledger and the focus
// context are the only state that outlives a frame.
type Runner struct {
	app   *App
	agent agent.Handle
	term  Terminal
	sink  audit.Sink
	log   logging.Logger

	planner *scene.Planner
	focus   *scene.FocusContext
	msgs    chan Msg

	stream       <-chan agent.StreamChunk
	cancelStream context.CancelFunc

	width, height int
	forceRedraw   bool
	tick          time.Duration
	baseCtx       context.Context
}

// NewRunner wires a runner from options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Runner{
		app:     opts.App,
		agent:   opts.Agent,
		term:    opts.Terminal,
		sink:    opts.Audit,
		log:     opts.Logger,
		planner: scene.NewPlanner(opts.Terminal),
		focus:   scene.NewFocusContext(),
		msgs:    make(chan Msg, opts.MsgBuffer),
		tick:    opts.TickInterval,
	}, nil
}

// Run executes the session until quit, terminal-input EOF, or context
// cancellation. Stream errors never end the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.baseCtx = ctx
	r.width, r.height = r.term.Size()
	r.app.SetSize(r.width, r.height)

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	defer r.cancelActive()

	events := r.term.Events()

	for {
		if r.forceRedraw {
			r.term.ForceRedraw()
			r.forceRedraw = false
		}
		r.render()

		// Drain the queue fully before suspending; a quit observed here ends
		// the loop without waiting.
		if r.drainMsgs() {
			return nil
		}

		// Biased wait: terminal input is checked before anything else so a
		// cancel or quit is never starved by a fast stream.
		select {
		case ev, ok := <-events:
			if !ok {
				r.log.Info(ctx, "terminal input ended")
				return nil
			}
			if r.handleEvent(ev) {
				return nil
			}
		default:
			select {
			case ev, ok := <-events:
				if !ok {
					r.log.Info(ctx, "terminal input ended")
					return nil
				}
				if r.handleEvent(ev) {
					return nil
				}
			case chunk, ok := <-r.stream:
				r.handleChunk(chunk, ok)
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (r *Runner) render() {
	vc := scene.NewViewContext(r.focus, r.width, r.height)
	if r.app.ModalActive() {
		// Blocking modal: fullscreen alternate path, no planning and no
		// graduation until the inline viewport returns.
		lines := scene.RenderLines(r.app.ModalView(vc), r.width)
		if err := r.term.WriteFullscreen(lines); err != nil {
			r.log.Warn(r.baseCtx, "fullscreen write failed", logging.Field("error", err))
		}
		return
	}
	tree := r.app.View(vc)
	snap := r.planner.Plan(tree, r.width, r.height)
	lines := scene.Composite(snap.Plan.Content, snap.Overlays, r.width)
	if err := r.term.WriteFrame(lines); err != nil {
		r.log.Warn(r.baseCtx, "frame write failed", logging.Field("error", err))
	}
}

// drainMsgs empties the internal queue, applying each message immediately.
// Returns true when a quit surfaced.
func (r *Runner) drainMsgs() bool {
	for {
		select {
		case m := <-r.msgs:
			if r.processActions(r.app.Apply(m)) {
				return true
			}
		default:
			return false
		}
	}
}

func (r *Runner) handleEvent(ev Event) bool {
	switch v := ev.(type) {
	case ResizeEvent:
		r.width, r.height = v.Width, v.Height
		r.app.SetSize(v.Width, v.Height)
		r.forceRedraw = true
		return false
	case KeyEvent:
		return r.processActions(r.app.HandleKey(v.Key))
	}
	return false
}

// processActions works through the action chain with an explicit work list,
// stopping at the first quit.
func (r *Runner) processActions(initial Action) bool {
	work := []Action{initial}
	for len(work) > 0 {
		act := work[0]
		work = work[1:]
		switch v := act.(type) {
		case nil, ContinueAction:
		case QuitAction:
			return true
		case BatchAction:
			work = append(append([]Action(nil), v.Actions...), work...)
		case SendAction:
			r.startStream(v.Text)
		case CancelAction:
			if r.stream != nil {
				r.cancelActive()
				r.post(StreamCancelledMsg{})
			}
		case ClearAction:
			r.clearConversation()
		case FetchModelsAction:
			r.fetchModels()
		case SwitchModelAction:
			r.switchModel(v.ID)
		case SetThinkingAction:
			if err := r.agent.SetThinkingBudget(v.Level); err != nil {
				r.warnCapability("thinking budget", err)
			}
		case SetModeAction:
			if err := r.agent.SetMode(v.Mode); err != nil {
				r.warnCapability("chat mode", err)
			}
		}
	}
	return false
}

// startStream publishes the message to the audit sink, then opens the
// response stream. The single-stream guard lives here; the app also refuses
// submits while streaming, so hitting this path means a logic race, not user
// error.
func (r *Runner) startStream(text string) {
	if r.stream != nil {
		r.log.Warn(r.baseCtx, "send ignored, stream already active")
		return
	}
	if err := r.sink.Publish(audit.MessageReceived("user", text)); err != nil {
		r.log.Warn(r.baseCtx, "audit publish failed", logging.Field("error", err))
	}

	ctx, cancel := context.WithCancel(r.baseCtx)
	ctx = logging.WithTraceID(ctx, logging.NewTraceID())
	chunks, err := r.agent.SendMessageStream(ctx, text)
	if err != nil {
		cancel()
		r.post(StreamErrorMsg{Err: err})
		return
	}
	r.stream = chunks
	r.cancelStream = cancel
}

// cancelActive drops the stream handle; nothing polls it afterwards, so no
// further chunks are observed.
func (r *Runner) cancelActive() {
	if r.cancelStream != nil {
		r.cancelStream()
		r.cancelStream = nil
	}
	r.stream = nil
}

func (r *Runner) handleChunk(chunk agent.StreamChunk, ok bool) {
	if !ok {
		r.clearStreamSlot()
		return
	}
	if chunk.Err != nil {
		r.clearStreamSlot()
		r.post(StreamErrorMsg{Err: chunk.Err})
		return
	}
	if chunk.Delta != "" {
		r.post(TextDeltaMsg{Text: chunk.Delta})
	}
	if chunk.Reasoning != "" {
		r.post(ThinkingDeltaMsg{Text: chunk.Reasoning})
	}
	if chunk.ToolCall != nil {
		r.post(ToolCallMsg{Call: *chunk.ToolCall})
	}
	if chunk.Usage != nil {
		r.post(UsageMsg{Usage: *chunk.Usage})
	}
	if chunk.Done {
		r.clearStreamSlot()
		r.post(StreamCompleteMsg{})
	}
}

func (r *Runner) clearStreamSlot() {
	if r.cancelStream != nil {
		r.cancelStream()
		r.cancelStream = nil
	}
	r.stream = nil
}

func (r *Runner) clearConversation() {
	r.cancelActive()
	if err := r.agent.ClearHistory(); err != nil {
		r.warnCapability("clear history", err)
	}
	r.app.ResetConversation()
	r.planner = scene.NewPlanner(r.term)
	if err := r.sink.Publish(audit.HistoryCleared("user")); err != nil {
		r.log.Warn(r.baseCtx, "audit publish failed", logging.Field("error", err))
	}
	r.post(SystemNoteMsg{Text: "conversation cleared"})
	r.forceRedraw = true
}

// fetchModels lists models off-loop and reports back through the queue.
func (r *Runner) fetchModels() {
	ctx, cancel := context.WithTimeout(r.baseCtx, 10*time.Second)
	go func() {
		defer cancel()
		ids, err := r.agent.FetchAvailableModels(ctx)
		if err != nil {
			r.post(ModelsFetchFailedMsg{Err: err})
			return
		}
		r.post(ModelsLoadedMsg{IDs: ids})
	}()
}

func (r *Runner) switchModel(id string) {
	if err := r.agent.SwitchModel(r.baseCtx, id); err != nil {
		r.warnCapability("model switch", err)
		return
	}
	if err := r.sink.Publish(audit.ModelSwitched("user", id)); err != nil {
		r.log.Warn(r.baseCtx, "audit publish failed", logging.Field("error", err))
	}
	r.post(ModelSwitchedMsg{ID: id})
}

// warnCapability logs an unsupported or failed capability call; these are
// never fatal.
func (r *Runner) warnCapability(what string, err error) {
	if errors.Is(err, agent.ErrNotSupported) {
		r.log.Warn(r.baseCtx, "capability not supported", logging.Field("capability", what))
	} else {
		r.log.Warn(r.baseCtx, "capability call failed",
			logging.Field("capability", what), logging.Field("error", err))
	}
	r.app.notes.Warn(what + " unavailable")
}

// post enqueues an internal message without blocking. A full queue drops the
// message: at-most-once, no retry.
func (r *Runner) post(m Msg) {
	select {
	case r.msgs <- m:
	default:
		r.log.Debug(r.baseCtx, "internal message dropped")
	}
}
