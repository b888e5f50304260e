package tui

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/x/term"
	"github.com/muesli/cancelreader"
	"github.com/muesli/termenv"

	"github.com/asynkron/ember/internal/logging"
)

// TermDriver renders the live viewport inline at the bottom of the terminal
// and emits graduated blocks above it, where they become native scrollback.
// It owns raw mode, the key-reader goroutine, and resize signals.
type TermDriver struct {
	out    *termenv.Output
	reader cancelreader.CancelReader
	fd     uintptr
	state  *term.State
	log    logging.Logger

	events chan Event

	mu        sync.Mutex
	lastLines int
	alt       bool
	width     int
	height    int

	closeOnce sync.Once
}

// NewTermDriver enters raw mode and starts the input and resize readers.
func NewTermDriver(logger logging.Logger) (*TermDriver, error) {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	fd := os.Stdin.Fd()
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("tui: stdin is not a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("tui: enter raw mode: %w", err)
	}
	reader, err := cancelreader.NewReader(os.Stdin)
	if err != nil {
		term.Restore(fd, state)
		return nil, fmt.Errorf("tui: stdin reader: %w", err)
	}

	width, height, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		width, height = 80, 24
	}

	d := &TermDriver{
		out:    termenv.NewOutput(os.Stdout),
		reader: reader,
		fd:     fd,
		state:  state,
		log:    logger,
		events: make(chan Event, 32),
		width:  width,
		height: height,
	}
	d.out.HideCursor()
	go d.readKeys()
	go d.watchResize()
	return d, nil
}

// readKeys decodes raw stdin bytes into key events. EOF or a read failure
// closes the event channel, which the runner treats as fatal.
func (d *TermDriver) readKeys() {
	defer close(d.events)
	var pending []byte
	buf := make([]byte, 256)
	for {
		n, err := d.reader.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			var keys []Key
			keys, pending = decodeKeys(pending)
			for _, k := range keys {
				d.events <- KeyEvent{Key: k}
			}
		}
		if err != nil {
			return
		}
	}
}

func (d *TermDriver) watchResize() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGWINCH)
	defer signal.Stop(sig)
	for range sig {
		width, height, err := term.GetSize(d.fd)
		if err != nil || width <= 0 {
			continue
		}
		d.mu.Lock()
		d.width, d.height = width, height
		d.mu.Unlock()
		select {
		case d.events <- ResizeEvent{Width: width, Height: height}:
		default:
		}
	}
}

// Size returns the current terminal dimensions.
func (d *TermDriver) Size() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

// Events returns the terminal event channel.
func (d *TermDriver) Events() <-chan Event {
	return d.events
}

// exitAltLocked leaves the alternate screen. The inline frame anchor is void
// afterwards, so the next frame repaints from scratch.
func (d *TermDriver) exitAltLocked() {
	if !d.alt {
		return
	}
	d.out.ExitAltScreen()
	d.alt = false
	d.lastLines = 0
}

// WriteFullscreen paints lines on the alternate screen, entering it first
// when needed. The inline viewport and its scrollback stay untouched
// underneath until a frame or block write switches back.
func (d *TermDriver) WriteFullscreen(lines []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.alt {
		d.out.AltScreen()
		d.alt = true
	}
	var b strings.Builder
	fmt.Fprintf(&b, termenv.CSI+termenv.CursorPositionSeq, 1, 1)
	fmt.Fprintf(&b, termenv.CSI+termenv.EraseDisplaySeq, 2)
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	_, err := io.WriteString(d.out, b.String())
	return err
}

// WriteFrame repaints the live region in place: cursor up to the top of the
// previous frame, rewrite every line, blank any leftover rows.
func (d *TermDriver) WriteFrame(lines []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exitAltLocked()

	var b strings.Builder
	if d.lastLines > 0 {
		fmt.Fprintf(&b, termenv.CSI+termenv.CursorUpSeq, d.lastLines)
	}
	b.WriteString("\r")
	for _, line := range lines {
		fmt.Fprintf(&b, termenv.CSI+termenv.EraseLineSeq, 2)
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	extra := d.lastLines - len(lines)
	for i := 0; i < extra; i++ {
		fmt.Fprintf(&b, termenv.CSI+termenv.EraseLineSeq, 2)
		b.WriteString("\r\n")
	}
	if extra > 0 {
		fmt.Fprintf(&b, termenv.CSI+termenv.CursorUpSeq, extra)
	}
	d.lastLines = len(lines)
	_, err := io.WriteString(d.out, b.String())
	return err
}

// WriteBlock emits one graduated block where the live frame used to start.
// The lines scroll into native scrollback as later frames push them up; the
// live region repaints fresh below on the next WriteFrame.
func (d *TermDriver) WriteBlock(_ string, lines []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exitAltLocked()

	var b strings.Builder
	if d.lastLines > 0 {
		fmt.Fprintf(&b, termenv.CSI+termenv.CursorUpSeq, d.lastLines)
	}
	b.WriteString("\r")
	fmt.Fprintf(&b, termenv.CSI+termenv.EraseDisplaySeq, 0)
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	d.lastLines = 0
	_, err := io.WriteString(d.out, b.String())
	return err
}

// ForceRedraw discards the repaint anchor so the next frame rewrites from a
// clean region. Used after resizes, where the old frame's geometry is void.
func (d *TermDriver) ForceRedraw() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exitAltLocked()
	var b strings.Builder
	if d.lastLines > 0 {
		fmt.Fprintf(&b, termenv.CSI+termenv.CursorUpSeq, d.lastLines)
	}
	b.WriteString("\r")
	fmt.Fprintf(&b, termenv.CSI+termenv.EraseDisplaySeq, 0)
	d.lastLines = 0
	io.WriteString(d.out, b.String())
}

// Close restores the terminal. Safe to call more than once.
func (d *TermDriver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.reader.Cancel()
		d.mu.Lock()
		d.exitAltLocked()
		d.mu.Unlock()
		d.out.ShowCursor()
		io.WriteString(d.out, "\r\n")
		err = term.Restore(d.fd, d.state)
	})
	return err
}

// MemoryTerminal is an in-memory Terminal for tests and headless hosts:
// frames and graduated blocks are captured, events are pushed by the caller.
type MemoryTerminal struct {
	mu          sync.Mutex
	width       int
	height      int
	frames      [][]string
	fullscreens [][]string
	blocks      []string
	events      chan Event
}

// NewMemoryTerminal builds a memory terminal at the given size.
func NewMemoryTerminal(width, height int) *MemoryTerminal {
	return &MemoryTerminal{width: width, height: height, events: make(chan Event, 64)}
}

// Push delivers an event as if the terminal produced it.
func (m *MemoryTerminal) Push(ev Event) {
	m.events <- ev
}

// PushKeys delivers one key event per key.
func (m *MemoryTerminal) PushKeys(keys ...Key) {
	for _, k := range keys {
		m.events <- KeyEvent{Key: k}
	}
}

// PushText delivers the runes of s as key events.
func (m *MemoryTerminal) PushText(s string) {
	for _, r := range s {
		m.events <- KeyEvent{Key: Key{Kind: KeyRune, Rune: r}}
	}
}

// CloseInput simulates the input source ending.
func (m *MemoryTerminal) CloseInput() {
	close(m.events)
}

func (m *MemoryTerminal) Size() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width, m.height
}

func (m *MemoryTerminal) Events() <-chan Event { return m.events }

func (m *MemoryTerminal) WriteFrame(lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	frame := make([]string, len(lines))
	copy(frame, lines)
	m.frames = append(m.frames, frame)
	return nil
}

func (m *MemoryTerminal) WriteFullscreen(lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	frame := make([]string, len(lines))
	copy(frame, lines)
	m.fullscreens = append(m.fullscreens, frame)
	return nil
}

func (m *MemoryTerminal) WriteBlock(_ string, lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks = append(m.blocks, strings.Join(lines, "\n"))
	return nil
}

func (m *MemoryTerminal) ForceRedraw() {}

func (m *MemoryTerminal) Close() error { return nil }

// LastFrame returns the most recently written frame, or nil.
func (m *MemoryTerminal) LastFrame() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return nil
	}
	return m.frames[len(m.frames)-1]
}

// LastFullscreen returns the most recent alternate-screen frame, or nil.
func (m *MemoryTerminal) LastFullscreen() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.fullscreens) == 0 {
		return nil
	}
	return m.fullscreens[len(m.fullscreens)-1]
}

// FrameCount reports how many frames were written.
func (m *MemoryTerminal) FrameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// Scrollback returns everything graduated so far.
func (m *MemoryTerminal) Scrollback() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.blocks, "\n")
}
