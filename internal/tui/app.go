package tui

import (
	"fmt"
	"strings"

	glam "github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/asynkron/ember/internal/agent"
	"github.com/asynkron/ember/internal/notify"
	"github.com/asynkron/ember/internal/scene"
)

type itemKind int

const (
	itemUser itemKind = iota
	itemAssistant
	itemTool
	itemSystem
	itemError
)

// chatItem is one completed transcript entry. Completed entries graduate to
// terminal scrollback; only the streaming tail stays live.
type chatItem struct {
	kind itemKind
	text string
	key  string
}

type command struct {
	name string
	desc string
}

// builtinCommands is the slash palette, filtered by the typed prefix.
var builtinCommands = []command{
	{"/help", "Show available commands"},
	{"/model", "Switch the active model"},
	{"/clear", "Clear the conversation"},
	{"/thinking", "Toggle reasoning display"},
	{"/quit", "Exit the session"},
}

type paletteState struct {
	open      bool
	dismissed bool
	filtered  []command
	selected  int
	offset    int
}

type selectorState struct {
	open     bool
	loading  bool
	models   []string
	selected int
	offset   int
}

// modalState is a blocking confirmation: while open it owns key routing and
// the whole screen, and holds the action to emit on confirm.
type modalState struct {
	open   bool
	title  string
	body   string
	accept Action
}

var (
	modalTitle  = lipgloss.NewStyle().Bold(true)
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	toolStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	noteStyle   = lipgloss.NewStyle().Faint(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	statusStyle = lipgloss.NewStyle().Faint(true)
)

// App holds the chat state and turns it into a scene tree each frame. It has
// no side effects; the runner owns every collaborator.
type App struct {
	input    InputBuffer
	items    []chatItem
	nextItem int

	streamText   strings.Builder
	thinkingText strings.Builder
	streaming    bool
	showThinking bool

	usage *agent.Usage
	mode  agent.Mode
	model string

	palette  paletteState
	selector selectorState
	modal    modalState

	notes *notify.Center

	glam *glam.TermRenderer
	wrap int
}

// NewApp builds the application state around the given model id and
// notification center.
func NewApp(model string, notes *notify.Center) *App {
	if notes == nil {
		notes = notify.NewCenter()
	}
	return &App{model: model, mode: agent.ModeNormal, notes: notes}
}

// SetSize rebuilds the markdown renderer for the new wrap width.
func (a *App) SetSize(width, _ int) {
	wrap := width - 2
	if wrap < 10 {
		wrap = 10
	}
	if wrap == a.wrap && a.glam != nil {
		return
	}
	a.wrap = wrap
	r, err := glam.NewTermRenderer(
		glam.WithStylePath("dark"), // fixed style to avoid OSC queries
		glam.WithWordWrap(wrap),
	)
	if err != nil {
		a.glam = nil
		return
	}
	a.glam = r
}

// Streaming reports whether a response stream is active.
func (a *App) Streaming() bool { return a.streaming }

// Mode reports the current chat mode.
func (a *App) Mode() agent.Mode { return a.mode }

// Model reports the displayed model id.
func (a *App) Model() string { return a.model }

func (a *App) appendItem(kind itemKind, text string) {
	a.items = append(a.items, chatItem{
		kind: kind,
		text: text,
		key:  fmt.Sprintf("msg-%d", a.nextItem),
	})
	a.nextItem++
}

// renderMarkdown renders completed assistant text, falling back to the plain
// text when the renderer is unavailable or fails.
func (a *App) renderMarkdown(text string) string {
	if a.glam == nil {
		return text
	}
	rendered, err := a.glam.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

// HandleKey routes one key press by UI state: blocking modal first, then the
// model selector, then the slash palette, then the input box.
func (a *App) HandleKey(k Key) Action {
	if a.modal.open {
		return a.handleModalKey(k)
	}
	if a.selector.open {
		return a.handleSelectorKey(k)
	}

	switch k.Kind {
	case KeyShiftTab:
		a.mode = agent.NextMode(a.mode)
		return SetModeAction{Mode: a.mode}
	case KeyCtrlC:
		if a.streaming {
			return CancelAction{}
		}
		return QuitAction{}
	case KeyEsc:
		if a.streaming {
			return CancelAction{}
		}
		if a.palette.open {
			a.palette.dismissed = true
			a.refreshPalette()
		}
		return ContinueAction{}
	case KeyUp:
		if a.palette.open {
			a.movePaletteSelection(-1)
		}
		return ContinueAction{}
	case KeyDown:
		if a.palette.open {
			a.movePaletteSelection(1)
		}
		return ContinueAction{}
	case KeyTab:
		if a.palette.open {
			a.acceptPaletteSelection()
			return ContinueAction{}
		}
		return ContinueAction{}
	case KeyEnter:
		return a.handleSubmit()
	case KeyBackspace:
		a.input.Backspace()
		a.refreshPalette()
		return ContinueAction{}
	case KeyDelete:
		a.input.Delete()
		a.refreshPalette()
		return ContinueAction{}
	case KeyLeft:
		a.input.Left()
		return ContinueAction{}
	case KeyRight:
		a.input.Right()
		return ContinueAction{}
	case KeyHome, KeyCtrlA:
		a.input.Home()
		return ContinueAction{}
	case KeyEnd, KeyCtrlE:
		a.input.End()
		return ContinueAction{}
	case KeyCtrlU:
		a.input.Clear()
		a.refreshPalette()
		return ContinueAction{}
	case KeyRune:
		a.input.InsertRune(k.Rune)
		a.palette.dismissed = false
		a.refreshPalette()
		return ContinueAction{}
	}
	return ContinueAction{}
}

// handleModalKey confirms or dismisses the active modal; every other key is
// swallowed while it blocks.
func (a *App) handleModalKey(k Key) Action {
	switch k.Kind {
	case KeyEnter:
		act := a.modal.accept
		a.modal = modalState{}
		return act
	case KeyRune:
		switch k.Rune {
		case 'y', 'Y':
			act := a.modal.accept
			a.modal = modalState{}
			return act
		case 'n', 'N':
			a.modal = modalState{}
		}
	case KeyEsc, KeyCtrlC:
		a.modal = modalState{}
	}
	return ContinueAction{}
}

func (a *App) handleSelectorKey(k Key) Action {
	switch k.Kind {
	case KeyUp:
		if a.selector.selected > 0 {
			a.selector.selected--
		}
	case KeyDown:
		if a.selector.selected < len(a.selector.models)-1 {
			a.selector.selected++
		}
	case KeyEnter:
		if a.selector.loading || len(a.selector.models) == 0 {
			return ContinueAction{}
		}
		id := a.selector.models[a.selector.selected]
		a.selector = selectorState{}
		return SwitchModelAction{ID: id}
	case KeyEsc:
		a.selector = selectorState{}
	case KeyCtrlC:
		a.selector = selectorState{}
		return ContinueAction{}
	}
	a.selector.offset = scene.EnsureVisible(
		a.selector.selected, a.selector.offset, selectorMaxVisible, len(a.selector.models))
	return ContinueAction{}
}

const (
	paletteMaxVisible  = 6
	selectorMaxVisible = 8
)

func (a *App) movePaletteSelection(delta int) {
	a.palette.selected += delta
	if a.palette.selected < 0 {
		a.palette.selected = 0
	}
	if a.palette.selected >= len(a.palette.filtered) {
		a.palette.selected = len(a.palette.filtered) - 1
	}
	a.palette.offset = scene.EnsureVisible(
		a.palette.selected, a.palette.offset, paletteMaxVisible, len(a.palette.filtered))
}

// acceptPaletteSelection completes the input to the selected command without
// running it.
func (a *App) acceptPaletteSelection() {
	if len(a.palette.filtered) == 0 {
		return
	}
	a.input.Clear()
	a.input.InsertString(a.palette.filtered[a.palette.selected].name)
	a.refreshPalette()
}

// refreshPalette recomputes palette visibility from the input content. The
// palette opens while the draft starts with "/" and at least one command
// matches, so removing the trigger closes it on the same frame.
func (a *App) refreshPalette() {
	content := a.input.String()
	if a.palette.dismissed || !strings.HasPrefix(content, "/") {
		a.palette = paletteState{dismissed: a.palette.dismissed}
		return
	}
	var filtered []command
	for _, c := range builtinCommands {
		if strings.HasPrefix(c.name, content) {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		a.palette = paletteState{}
		return
	}
	a.palette.open = true
	a.palette.filtered = filtered
	if a.palette.selected >= len(filtered) {
		a.palette.selected = len(filtered) - 1
	}
	a.palette.offset = scene.EnsureVisible(
		a.palette.selected, a.palette.offset, paletteMaxVisible, len(filtered))
}

func (a *App) handleSubmit() Action {
	if a.palette.open {
		cmd := a.palette.filtered[a.palette.selected].name
		a.input.Clear()
		a.refreshPalette()
		return a.runCommand(cmd)
	}
	content := strings.TrimSpace(a.input.String())
	if content == "" {
		return ContinueAction{}
	}
	if strings.HasPrefix(content, "/") {
		a.input.Clear()
		a.refreshPalette()
		return a.runCommand(content)
	}
	if a.streaming {
		// One stream at a time; submissions during a response are ignored,
		// not queued.
		a.notes.Warn("a response is still streaming")
		return ContinueAction{}
	}
	a.input.Clear()
	a.refreshPalette()
	a.appendItem(itemUser, content)
	a.streaming = true
	return SendAction{Text: content}
}

func (a *App) runCommand(name string) Action {
	switch name {
	case "/help":
		var b strings.Builder
		b.WriteString("Available commands:\n")
		for _, c := range builtinCommands {
			fmt.Fprintf(&b, "  %-10s %s\n", c.name, c.desc)
		}
		a.appendItem(itemSystem, strings.TrimRight(b.String(), "\n"))
		return ContinueAction{}
	case "/clear":
		a.modal = modalState{
			open:  true,
			title: "Clear conversation",
			body: "The live transcript and the agent's history will be reset.\n" +
				"Graduated messages stay in terminal scrollback.",
			accept: ClearAction{},
		}
		return ContinueAction{}
	case "/quit":
		return QuitAction{}
	case "/model":
		a.selector = selectorState{open: true, loading: true}
		return FetchModelsAction{}
	case "/thinking":
		a.showThinking = !a.showThinking
		state := "hidden"
		if a.showThinking {
			state = "shown"
		}
		a.appendItem(itemSystem, "reasoning display "+state)
		return ContinueAction{}
	default:
		a.notes.Warn("unknown command " + name)
		return ContinueAction{}
	}
}

// Apply folds one internal message into the state.
func (a *App) Apply(m Msg) Action {
	switch v := m.(type) {
	case TextDeltaMsg:
		a.streamText.WriteString(v.Text)
	case ThinkingDeltaMsg:
		a.thinkingText.WriteString(v.Text)
	case ToolCallMsg:
		if err := agent.ValidateToolCall(v.Call); err != nil {
			a.notes.Warn("malformed tool call: " + err.Error())
			return ContinueAction{}
		}
		a.appendItem(itemTool, fmt.Sprintf("● %s(%s)", v.Call.Name, v.Call.Arguments))
	case UsageMsg:
		usage := v.Usage
		a.usage = &usage
	case StreamCompleteMsg:
		a.finalizeStream("")
	case StreamErrorMsg:
		a.finalizeStream("")
		a.appendItem(itemError, "stream failed: "+v.Err.Error())
	case StreamCancelledMsg:
		a.finalizeStream("cancelled")
	case ModelsLoadedMsg:
		a.selector.loading = false
		a.selector.models = v.IDs
		a.selector.selected = 0
		a.selector.offset = 0
		if len(v.IDs) == 0 {
			a.selector = selectorState{}
			a.notes.Warn("no models available")
		}
	case ModelsFetchFailedMsg:
		a.selector = selectorState{}
		a.notes.Error("could not list models: " + v.Err.Error())
	case ModelSwitchedMsg:
		a.model = v.ID
		a.appendItem(itemSystem, "model switched to "+v.ID)
	case SystemNoteMsg:
		a.appendItem(itemSystem, v.Text)
	}
	return ContinueAction{}
}

// finalizeStream moves the streamed tail into the transcript.
func (a *App) finalizeStream(note string) {
	if text := a.streamText.String(); text != "" {
		a.appendItem(itemAssistant, a.renderMarkdown(text))
	}
	a.streamText.Reset()
	a.thinkingText.Reset()
	a.streaming = false
	if note != "" {
		a.appendItem(itemSystem, note)
	}
}

// ResetConversation wipes the transcript and streaming state. Graduated
// history stays in terminal scrollback; only the live view resets.
func (a *App) ResetConversation() {
	a.items = nil
	a.streamText.Reset()
	a.thinkingText.Reset()
	a.streaming = false
	a.usage = nil
}

// ModalActive reports whether a blocking modal owns the screen.
func (a *App) ModalActive() bool { return a.modal.open }

// ModalView builds the fullscreen scene tree for the active modal. The runner
// routes it through the terminal's alternate-screen path, so the inline
// viewport and its scrollback stay untouched underneath.
func (a *App) ModalView(vc scene.ViewContext) scene.Node {
	vc.Focus.Register("modal", true)
	return scene.ColGap(1,
		scene.Styled(a.modal.title, modalTitle),
		scene.Text(a.modal.body),
		scene.Styled("enter/y confirm  ·  esc/n cancel", noteStyle),
	)
}

// View builds the frame's scene tree from the current state.
func (a *App) View(vc scene.ViewContext) scene.Node {
	vc.Focus.Register("input", !a.paletteOrSelectorOpen())

	var nodes []scene.Node
	for _, it := range a.items {
		nodes = append(nodes, scene.Scrollback(it.key, a.renderItem(it)))
	}

	if a.showThinking && a.thinkingText.Len() > 0 {
		nodes = append(nodes, scene.Styled(a.thinkingText.String(), noteStyle))
	}
	if a.streamText.Len() > 0 {
		nodes = append(nodes, scene.Text(a.streamText.String()))
	} else if a.streaming {
		nodes = append(nodes, scene.Styled("waiting for response…", noteStyle))
	}

	inputNode := scene.Input(a.input.String(), a.input.Cursor())
	nodes = append(nodes, scene.Spacer(), inputNode, scene.Styled(a.statusLine(), statusStyle))

	if overlay := a.overlayNode(vc, inputNode); overlay != nil {
		nodes = append(nodes, overlay)
	}
	return scene.Col(nodes...)
}

func (a *App) paletteOrSelectorOpen() bool {
	return a.palette.open || a.selector.open
}

// overlayNode builds the palette or selector popup anchored just above the
// input box.
func (a *App) overlayNode(vc scene.ViewContext, inputNode scene.Node) scene.Node {
	// Status line plus the input box sit below the popup.
	offset := 1 + len(scene.RenderLines(inputNode, vc.Width))

	if a.selector.open {
		vc.Focus.Register("selector", true)
		if a.selector.loading {
			return scene.OverlayFromBottom(scene.Styled("loading models…", noteStyle), offset)
		}
		items := make([]scene.PopupItem, len(a.selector.models))
		for i, id := range a.selector.models {
			items[i] = scene.Item(id).Kind("model")
		}
		popup := scene.PopupNode{
			Items:          items,
			Selected:       a.selector.selected,
			MaxVisible:     selectorMaxVisible,
			ViewportOffset: a.selector.offset,
		}
		return scene.OverlayFromBottom(popup, offset)
	}

	if a.palette.open {
		vc.Focus.Register("palette", true)
		items := make([]scene.PopupItem, len(a.palette.filtered))
		for i, c := range a.palette.filtered {
			items[i] = scene.Item(c.name).Desc(c.desc)
		}
		popup := scene.PopupNode{
			Items:          items,
			Selected:       a.palette.selected,
			MaxVisible:     paletteMaxVisible,
			ViewportOffset: a.palette.offset,
		}
		return scene.OverlayFromBottom(popup, offset)
	}
	return nil
}

func (a *App) renderItem(it chatItem) scene.Node {
	switch it.kind {
	case itemUser:
		return scene.Frag(scene.Styled("> ", userStyle), scene.Text(it.text))
	case itemTool:
		return scene.Styled(it.text, toolStyle)
	case itemSystem:
		return scene.Styled(it.text, noteStyle)
	case itemError:
		return scene.Styled(it.text, errStyle)
	default:
		return scene.Text(it.text)
	}
}

func (a *App) statusLine() string {
	parts := []string{a.model, string(a.mode)}
	if a.usage != nil {
		if a.usage.ContextWindow > 0 {
			parts = append(parts, fmt.Sprintf("tokens %d/%d", a.usage.TotalTokens, a.usage.ContextWindow))
		} else {
			parts = append(parts, fmt.Sprintf("tokens %d", a.usage.TotalTokens))
		}
	}
	if a.streaming {
		parts = append(parts, "streaming")
	}
	if note, ok := a.notes.Latest(); ok {
		parts = append(parts, note.Text)
	}
	return strings.Join(parts, " • ")
}
