// Package termprobe inspects the terminal the process is attached to and
// reports its capabilities. The CLI runs it at startup so that rendering
// problems can be diagnosed from a single summary instead of guesswork.
package termprobe

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/muesli/termenv"
)

// Context supplies the environment lookups the probes need. Tests inject
// their own functions; production code uses NewContext.
type Context struct {
	Getenv   func(string) string
	IsTTY    func(fd uintptr) bool
	TermSize func(fd uintptr) (width, height int, err error)
	Profile  func() termenv.Profile
}

// NewContext returns a Context backed by the real process environment.
func NewContext() *Context {
	return &Context{
		Getenv:   os.Getenv,
		IsTTY:    term.IsTerminal,
		TermSize: func(fd uintptr) (int, int, error) { return term.GetSize(fd) },
		Profile:  termenv.ColorProfile,
	}
}

// Result captures what the probes detected about the attached terminal.
type Result struct {
	InputTTY     bool
	OutputTTY    bool
	Width        int
	Height       int
	Term         string
	ColorProfile string
	NoColor      bool
	Unicode      bool
	Multiplexer  string
	RemoteSSH    bool
}

// Run executes all probes and returns a consolidated result.
func Run(ctx *Context) Result {
	r := Result{
		InputTTY:     ctx.IsTTY(os.Stdin.Fd()),
		OutputTTY:    ctx.IsTTY(os.Stdout.Fd()),
		Term:         ctx.Getenv("TERM"),
		ColorProfile: profileName(ctx.Profile()),
		NoColor:      ctx.Getenv("NO_COLOR") != "",
		Unicode:      detectUnicode(ctx),
		Multiplexer:  detectMultiplexer(ctx),
		RemoteSSH:    ctx.Getenv("SSH_CONNECTION") != "" || ctx.Getenv("SSH_TTY") != "",
	}
	if w, h, err := ctx.TermSize(os.Stdout.Fd()); err == nil {
		r.Width, r.Height = w, h
	}
	return r
}

// Interactive reports whether both ends of the session are terminals, which is
// what the full-screen UI requires.
func (r Result) Interactive() bool {
	return r.InputTTY && r.OutputTTY
}

func detectUnicode(ctx *Context) bool {
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		value := strings.ToLower(ctx.Getenv(key))
		if value == "" {
			continue
		}
		return strings.Contains(value, "utf-8") || strings.Contains(value, "utf8")
	}
	return false
}

func detectMultiplexer(ctx *Context) string {
	if ctx.Getenv("TMUX") != "" {
		return "tmux"
	}
	if ctx.Getenv("STY") != "" {
		return "screen"
	}
	return ""
}

func profileName(p termenv.Profile) string {
	switch p {
	case termenv.TrueColor:
		return "truecolor"
	case termenv.ANSI256:
		return "ansi256"
	case termenv.ANSI:
		return "ansi"
	default:
		return "ascii"
	}
}

// FormatSummary renders a Result into human-readable bullet lines.
func FormatSummary(r Result) string {
	lines := []string{
		fmt.Sprintf("terminal: %s (input tty: %t, output tty: %t)", orUnknown(r.Term), r.InputTTY, r.OutputTTY),
		fmt.Sprintf("size: %dx%d", r.Width, r.Height),
		fmt.Sprintf("colors: %s", colorSummary(r)),
		fmt.Sprintf("unicode locale: %t", r.Unicode),
	}
	if r.Multiplexer != "" {
		lines = append(lines, "multiplexer: "+r.Multiplexer)
	}
	if r.RemoteSSH {
		lines = append(lines, "session: ssh")
	}
	for i, line := range lines {
		lines[i] = "- " + line
	}
	return strings.Join(lines, "\n")
}

func colorSummary(r Result) string {
	if r.NoColor {
		return r.ColorProfile + " (disabled by NO_COLOR)"
	}
	return r.ColorProfile
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
