package scene

import "strings"

// Harness drives the planner and compositor against an in-memory sink. It
// renders trees exactly the way the terminal runtime does, minus the
// terminal, which makes graduation and compositing behavior observable in
// tests and in headless hosts.
type Harness struct {
	planner   *Planner
	sink      *memorySink
	width     int
	height    int
	viewport  []string
	composite []string
}

type memorySink struct {
	blocks []string
}

func (m *memorySink) WriteBlock(key string, lines []string) error {
	m.blocks = append(m.blocks, strings.Join(lines, "\n"))
	return nil
}

// NewHarness builds a harness with a fresh planner at the given size.
func NewHarness(width, height int) *Harness {
	sink := &memorySink{}
	return &Harness{planner: NewPlanner(sink), sink: sink, width: width, height: height}
}

// Resize changes the target dimensions for subsequent renders.
func (h *Harness) Resize(width, height int) {
	h.width = width
	h.height = height
}

// Render plans and composites one frame, returning the composited lines.
func (h *Harness) Render(tree Node) []string {
	snap := h.planner.Plan(tree, h.width, h.height)
	h.viewport = snap.Plan.Content
	h.composite = Composite(snap.Plan.Content, snap.Overlays, h.width)
	return h.composite
}

// StdoutContent returns everything graduated to the persistent sink so far.
func (h *Harness) StdoutContent() string {
	return strings.Join(h.sink.blocks, "\n")
}

// ViewportContent returns the live viewport of the last rendered frame,
// before compositing.
func (h *Harness) ViewportContent() string {
	return strings.Join(h.viewport, "\n")
}

// CompositedContent returns the last frame as displayed.
func (h *Harness) CompositedContent() string {
	return strings.Join(h.composite, "\n")
}

// GraduatedCount reports how many keys have graduated.
func (h *Harness) GraduatedCount() int {
	return h.planner.Ledger().Len()
}

// Planner exposes the underlying planner.
func (h *Harness) Planner() *Planner {
	return h.planner
}
